package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// KVCall records one call made against a MemoryKV.
type KVCall struct {
	Op   string
	Keys []string
}

// MemoryKV is a recording in-memory cache.KeyValueStore for tests. Errors
// can be injected per operation, optionally restricted to a key prefix.
type MemoryKV struct {
	data *xsync.MapOf[string, string]
	ttls *xsync.MapOf[string, time.Duration]

	mu       sync.Mutex
	calls    []KVCall
	failures map[string]failure
}

type failure struct {
	prefix string
	err    error
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:     xsync.NewMapOf[string, string](),
		ttls:     xsync.NewMapOf[string, time.Duration](),
		failures: make(map[string]failure),
	}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.record("get", key)
	if err := m.failureFor("get", key); err != nil {
		return "", false, err
	}
	v, ok := m.data.Load(key)
	return v, ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.record("set", key)
	if err := m.failureFor("set", key); err != nil {
		return err
	}
	m.data.Store(key, value)
	m.ttls.Store(key, ttl)
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, keys ...string) (int64, error) {
	m.record("delete", keys...)
	for _, key := range keys {
		if err := m.failureFor("delete", key); err != nil {
			return 0, err
		}
	}

	var n int64
	for _, key := range keys {
		if _, ok := m.data.LoadAndDelete(key); ok {
			n++
		}
		m.ttls.Delete(key)
	}
	return n, nil
}

// Fail makes op ("get", "set" or "delete") return err for keys starting
// with prefix. An empty prefix matches every key.
func (m *MemoryKV) Fail(op, prefix string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = failure{prefix: prefix, err: err}
}

// Heal removes every injected failure.
func (m *MemoryKV) Heal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]failure)
}

// Put stores a raw value without recording a call.
func (m *MemoryKV) Put(key, value string) {
	m.data.Store(key, value)
}

// Raw returns the stored value without recording a call.
func (m *MemoryKV) Raw(key string) (string, bool) {
	return m.data.Load(key)
}

// Has reports whether key is stored.
func (m *MemoryKV) Has(key string) bool {
	_, ok := m.data.Load(key)
	return ok
}

// TTL returns the ttl key was last written with.
func (m *MemoryKV) TTL(key string) time.Duration {
	ttl, _ := m.ttls.Load(key)
	return ttl
}

// Keys returns every stored key, sorted.
func (m *MemoryKV) Keys() []string {
	var keys []string
	m.data.Range(func(key, _ string) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// Calls returns a copy of the recorded calls.
func (m *MemoryKV) Calls() []KVCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]KVCall(nil), m.calls...)
}

// CallCount returns how many times op was called.
func (m *MemoryKV) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// DeletedKeys returns every key passed to Delete, sorted and deduplicated.
func (m *MemoryKV) DeletedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	var keys []string
	for _, c := range m.calls {
		if c.Op != "delete" {
			continue
		}
		for _, k := range c.Keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ResetCalls clears the call log.
func (m *MemoryKV) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MemoryKV) record(op string, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, KVCall{Op: op, Keys: append([]string(nil), keys...)})
}

func (m *MemoryKV) failureFor(op, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.failures[op]
	if !ok || !strings.HasPrefix(key, f.prefix) {
		return nil
	}
	return f.err
}
