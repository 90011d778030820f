package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Memory is an in-process shared tier backed by sturdyc. sturdyc applies a
// single TTL fixed at construction, so the ttl argument of Put is ignored.
type Memory struct {
	client *sturdyc.Client[string]
}

// Shard count and eviction percentage for the sturdyc client.
const (
	memoryShards          = 10
	memoryEvictionPercent = 10
)

// NewMemory builds a Memory tier holding up to capacity entries for ttl.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity < memoryShards {
		capacity = memoryShards
	}
	return &Memory{client: sturdyc.New[string](capacity, memoryShards, ttl, memoryEvictionPercent)}
}

// Get implements Shared.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.client.Get(key)
	return v, ok, nil
}

// Put implements Shared.
func (m *Memory) Put(_ context.Context, key, value string, _ time.Duration) error {
	m.client.Set(key, value)
	return nil
}

// Forget implements Shared.
func (m *Memory) Forget(_ context.Context, key string) error {
	m.client.Delete(key)
	return nil
}

// Noop is a shared tier that stores nothing.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (Noop) Put(context.Context, string, string, time.Duration) error { return nil }
func (Noop) Forget(context.Context, string) error                     { return nil }
