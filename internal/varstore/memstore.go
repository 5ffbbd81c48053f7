package varstore

import (
	"context"
	"sync"

	"mokctl/internal/efi"
	"mokctl/internal/mokerr"
)

// MemStore is an in-memory Store used by every other package's tests and
// by the simulator's default fixture mode. It supports fault injection the
// way internal/storage's spyFileSystem does in the teacher repo: configure
// a variable name to fail N calls of a given kind before (optionally)
// succeeding, to exercise the Storage error paths Actions must leave state
// intact for.
type MemStore struct {
	mu   sync.Mutex
	vars map[string]Variable

	failGetAt    map[string]int
	failSetAt    map[string]int
	failAppendAt map[string]int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		vars:         make(map[string]Variable),
		failGetAt:    make(map[string]int),
		failSetAt:    make(map[string]int),
		failAppendAt: make(map[string]int),
	}
}

// Seed pre-populates a variable, for test fixtures.
func (m *MemStore) Seed(name string, attrs efi.Attributes, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[name] = Variable{Attrs: attrs, Data: append([]byte(nil), data...)}
}

// FailGetOnce arranges for the next Get(name) call to fail with a Storage
// error instead of returning the variable's value.
func (m *MemStore) FailGetOnce(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGetAt[name]++
}

// FailSetOnce arranges for the next Set(name, ...) call to fail.
func (m *MemStore) FailSetOnce(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSetAt[name]++
}

// FailAppendOnce arranges for the next Append(name, ...) call to fail.
func (m *MemStore) FailAppendOnce(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAppendAt[name]++
}

func (m *MemStore) Get(_ context.Context, name string) (Variable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGetAt[name] > 0 {
		m.failGetAt[name]--
		return Variable{}, mokerr.New(mokerr.Storage, "simulated read failure: "+name)
	}

	v, ok := m.vars[name]
	if !ok {
		return Variable{}, ErrNotFound
	}
	return Variable{Attrs: v.Attrs, Data: append([]byte(nil), v.Data...)}, nil
}

func (m *MemStore) Set(_ context.Context, name string, attrs efi.Attributes, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSetAt[name] > 0 {
		m.failSetAt[name]--
		return mokerr.New(mokerr.Storage, "simulated write failure: "+name)
	}

	if len(data) == 0 {
		delete(m.vars, name)
		return nil
	}
	m.vars[name] = Variable{Attrs: attrs, Data: append([]byte(nil), data...)}
	return nil
}

func (m *MemStore) Append(_ context.Context, name string, attrs efi.Attributes, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAppendAt[name] > 0 {
		m.failAppendAt[name]--
		return mokerr.New(mokerr.Storage, "simulated append failure: "+name)
	}

	existing, ok := m.vars[name]
	if !ok {
		m.vars[name] = Variable{Attrs: attrs, Data: append([]byte(nil), data...)}
		return nil
	}
	merged := append(append([]byte(nil), existing.Data...), data...)
	m.vars[name] = Variable{Attrs: attrs, Data: merged}
	return nil
}

func (m *MemStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, name)
	return nil
}

// SetRuntimeAccessible marks name as carrying the runtime-access attribute,
// for constructing the Tamper scenario in tests without going through Set
// (which a real firmware would never allow for these variables).
func (m *MemStore) SetRuntimeAccessible(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.vars[name]
	v.Attrs |= efi.RuntimeAccess
	m.vars[name] = v
}
