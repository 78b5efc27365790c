package testsupport

import (
	"context"
	"sync"
)

// IndexCall records one call made against a RecordingIndex.
type IndexCall struct {
	Op  string
	IDs []string
}

// RecordingIndex is a search.Index that records calls. Op names are "add",
// "update" and "remove".
type RecordingIndex struct {
	mu    sync.Mutex
	calls []IndexCall
	err   error
}

// NewRecordingIndex returns an empty RecordingIndex.
func NewRecordingIndex() *RecordingIndex {
	return &RecordingIndex{}
}

func (r *RecordingIndex) AddDocuments(ctx context.Context, ids []string) error {
	return r.record("add", ids)
}

func (r *RecordingIndex) UpdateDocuments(ctx context.Context, ids []string) error {
	return r.record("update", ids)
}

func (r *RecordingIndex) RemoveDocuments(ctx context.Context, ids []string) error {
	return r.record("remove", ids)
}

// FailWith makes every call return err after recording it.
func (r *RecordingIndex) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Calls returns a copy of the recorded calls.
func (r *RecordingIndex) Calls() []IndexCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]IndexCall(nil), r.calls...)
}

// Reset clears the call log.
func (r *RecordingIndex) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *RecordingIndex) record(op string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, IndexCall{Op: op, IDs: append([]string(nil), ids...)})
	return r.err
}
