package kv

import (
	"context"
	"sync"
)

// Memory is an in-process Store. FailWrites and FailReads let tests simulate a
// disabled or broken substrate.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	FailWrites error
	FailReads  error
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// SetRaw writes a value bypassing failure injection.
func (m *Memory) SetRaw(key string, value []byte) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func (m *Memory) Close() error { return nil }
