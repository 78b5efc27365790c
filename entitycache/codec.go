package entitycache

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// RefPrefix marks a stored value as an indirection pointer to the payload
// key. Values without the prefix that are not JSON documents are read as
// bare pointers written by older writers.
const RefPrefix = "@"

var (
	// ErrNotDocument is returned when a codec produces a payload that does not
	// start with '{' or '['.
	ErrNotDocument = errors.New("entitycache: encoded payload is not a JSON document")
	// ErrMissingID is returned when a record without an id is written.
	ErrMissingID = errors.New("entitycache: record has no id")
)

// Codec converts records to and from their cached JSON document.
type Codec[T any] interface {
	Encode(v T) (string, error)
	Decode(raw string) (T, error)
}

// JSONCodec encodes records with goccy/go-json.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONCodec[T]) Decode(raw string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(raw), &v)
	return v, err
}

type valueKind int

const (
	kindInvalid valueKind = iota
	kindDocument
	kindRef
)

// classify tells documents from indirection pointers. It returns the pointer
// target for kindRef.
func classify(raw string) (valueKind, string) {
	if raw == "" {
		return kindInvalid, ""
	}
	if isDocument(raw) {
		return kindDocument, ""
	}
	target := strings.TrimPrefix(raw, RefPrefix)
	if target == "" {
		return kindInvalid, ""
	}
	return kindRef, target
}

func isDocument(raw string) bool {
	return raw != "" && (raw[0] == '{' || raw[0] == '[')
}

func encodeRef(target string) string {
	return RefPrefix + target
}
