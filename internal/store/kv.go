// Package store holds the client's durable local state: alert preferences,
// location history and the device's push record, each kept as a JSON value in
// its own key-value slot.
// Persistence is best-effort. A failed write is logged and the in-memory
// snapshot stays authoritative for the rest of the session.
package store

import (
	"context"
	"sync"
)

// Slot keys.
const (
	KeyPreferences = "vaichover.alertPrefs"
	KeyHistory     = "vaichover.history"
	KeyDevice      = "vaichover.device"
)

// KV is a durable string-keyed byte store.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// MemoryKV is a process-local KV, used when no state file is configured.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

var _ KV = (*MemoryKV)(nil)
