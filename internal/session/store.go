// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe registry of live proxy nodes, keyed by resource
// handle, for high concurrency across many simultaneously connected
// client processes.

package session

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/proxynode"
)

// Registry defines operations on the set of live proxy node entries.
type Registry interface {
	Create(handle api.ResourceHandle, node *proxynode.ProxyNode) (ProxyEntry, error)
	Get(handle api.ResourceHandle) (ProxyEntry, bool)
	Delete(handle api.ResourceHandle)
	Range(func(ProxyEntry))
}

// ProxyEntry abstracts one registered proxy node's lifecycle state.
type ProxyEntry interface {
	Handle() api.ResourceHandle
	Node() *proxynode.ProxyNode
	Context() api.Context
	Cancel()
	Done() <-chan struct{}
	Deadline() (time.Time, bool)
}

// registry implements sharded storage for proxy entries.
type registry struct {
	shards     []*registryShard
	mask       uint32
	ctxFactory api.ContextFactory
}

type registryShard struct {
	mu      sync.RWMutex
	entries map[api.ResourceHandle]*proxyEntryImpl
}

// NewRegistry constructs a sharded registry with shardCount shards.
// ctxFactory builds each entry's ambient api.Context; a nil factory
// falls back to the package's own contextStore.
func NewRegistry(shardCount int, ctxFactory api.ContextFactory) Registry {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*registryShard, m)
	for i := range shards {
		shards[i] = &registryShard{entries: make(map[api.ResourceHandle]*proxyEntryImpl)}
	}
	return &registry{shards: shards, mask: m - 1, ctxFactory: ctxFactory}
}

// shard picks the correct shard for a given handle.
func (m *registry) shard(handle api.ResourceHandle) *registryShard {
	h := fnv32(string(handle))
	return m.shards[h&m.mask]
}

// Create returns the existing entry for handle or registers node under it.
func (m *registry) Create(handle api.ResourceHandle, node *proxynode.ProxyNode) (ProxyEntry, error) {
	sh := m.shard(handle)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[handle]; ok {
		return e, nil
	}
	e := newProxyEntry(handle, node, m.ctxFactory)
	sh.entries[handle] = e
	return e, nil
}

// Get fetches an entry if present.
func (m *registry) Get(handle api.ResourceHandle) (ProxyEntry, bool) {
	sh := m.shard(handle)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[handle]
	return e, ok
}

// Delete cancels and removes the entry.
func (m *registry) Delete(handle api.ResourceHandle) {
	sh := m.shard(handle)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[handle]; ok {
		e.Cancel()
		delete(sh.entries, handle)
	}
}

// Range applies fn to every registered entry.
func (m *registry) Range(fn func(ProxyEntry)) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			fn(e)
		}
		sh.mu.RUnlock()
	}
}

// fnv32 hashes a string to uint32.
func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
