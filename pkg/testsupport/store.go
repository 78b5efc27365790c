package testsupport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-entitycache/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore is a generic in-memory store.Store used as a test double. It
// counts calls per method and records the ids requested by FindMany.
type MemoryStore[T any] struct {
	rows *xsync.MapOf[string, T]
	id   func(T) string
	key  func(T) string

	mu       sync.Mutex
	calls    map[string]int
	findMany [][]string
	failures map[string]error
}

// NewMemoryStore creates a store keyed by id. key may be nil for records
// without a secondary key.
func NewMemoryStore[T any](id func(T) string, key func(T) string, rows ...T) *MemoryStore[T] {
	s := &MemoryStore[T]{
		rows:     xsync.NewMapOf[string, T](),
		id:       id,
		key:      key,
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
	for _, r := range rows {
		s.rows.Store(id(r), r)
	}
	return s
}

var _ store.Store[struct{}] = (*MemoryStore[struct{}])(nil)

func (s *MemoryStore[T]) FindUnique(ctx context.Context, lookup store.Lookup) (T, error) {
	var zero T
	if err := s.track("FindUnique"); err != nil {
		return zero, err
	}

	if lookup.Key != "" && s.key != nil {
		var (
			found T
			ok    bool
		)
		s.rows.Range(func(_ string, row T) bool {
			if strings.EqualFold(s.key(row), strings.TrimSpace(lookup.Key)) {
				found, ok = row, true
				return false
			}
			return true
		})
		if ok {
			return found, nil
		}
		return zero, store.NotFound(fmt.Sprintf("%T", zero), lookup.String())
	}

	row, ok := s.rows.Load(lookup.ID)
	if !ok || lookup.ID == "" {
		return zero, store.NotFound(fmt.Sprintf("%T", zero), lookup.String())
	}
	return row, nil
}

func (s *MemoryStore[T]) FindMany(ctx context.Context, ids []string) ([]T, error) {
	s.mu.Lock()
	s.findMany = append(s.findMany, append([]string(nil), ids...))
	s.mu.Unlock()

	if err := s.track("FindMany"); err != nil {
		return nil, err
	}

	var out []T
	for _, id := range ids {
		if row, ok := s.rows.Load(id); ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *MemoryStore[T]) Create(ctx context.Context, record *T) error {
	if err := s.track("Create"); err != nil {
		return err
	}
	s.rows.Store(s.id(*record), *record)
	return nil
}

func (s *MemoryStore[T]) Update(ctx context.Context, record *T) error {
	if err := s.track("Update"); err != nil {
		return err
	}
	id := s.id(*record)
	if _, ok := s.rows.Load(id); !ok {
		return store.NotFound(fmt.Sprintf("%T", *record), store.ByID(id).String())
	}
	s.rows.Store(id, *record)
	return nil
}

func (s *MemoryStore[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	if err := s.track("Delete"); err != nil {
		return zero, err
	}
	row, ok := s.rows.LoadAndDelete(id)
	if !ok {
		return zero, store.NotFound(fmt.Sprintf("%T", zero), store.ByID(id).String())
	}
	return row, nil
}

// Put stores a row without counting a call.
func (s *MemoryStore[T]) Put(rows ...T) {
	for _, r := range rows {
		s.rows.Store(s.id(r), r)
	}
}

// Row returns the stored row for id.
func (s *MemoryStore[T]) Row(id string) (T, bool) {
	return s.rows.Load(id)
}

// Rows returns every stored row ordered by id.
func (s *MemoryStore[T]) Rows() []T {
	var out []T
	s.rows.Range(func(_ string, row T) bool {
		out = append(out, row)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return s.id(out[i]) < s.id(out[j]) })
	return out
}

// Remove deletes a row without counting a call.
func (s *MemoryStore[T]) Remove(id string) {
	s.rows.Delete(id)
}

// CallCount returns how many times method was called.
func (s *MemoryStore[T]) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// FindManyCalls returns the id lists passed to FindMany, in call order.
func (s *MemoryStore[T]) FindManyCalls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.findMany...)
}

// Fail makes method return err until Heal is called.
func (s *MemoryStore[T]) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Heal removes every injected failure.
func (s *MemoryStore[T]) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
}

func (s *MemoryStore[T]) track(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.failures[method]
}
