// File: internal/memtable/memtable.go
// Package memtable implements the proxy node's registered-memory table:
// the add_mem(fd, flags, offset, size) -> mem_id bookkeeping that backs
// port_use_buffers (§4.4), so that a ClientBuffer's BufferDatum entries
// can reference a previously registered memory region by a small integer
// id instead of repeating fd/offset/size on every buffer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package memtable

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/graph-proxy-node/api"
)

// Entry is one registered memory region.
type Entry struct {
	FD     int
	Flags  uint32
	Offset int64
	Size   uint32
}

// Table is a sharded registered-memory map: mem_id -> Entry. Sharding
// mirrors the session store's shard-by-hash approach, sized down since a
// proxy node's buffer count is small relative to a connection manager's
// session count, but the pattern (power-of-two shard count, per-shard
// mutex) is the same.
type Table struct {
	shards []*shard
	mask   uint32
	nextID atomic.Uint32
}

type shard struct {
	mu      sync.RWMutex
	entries map[uint32]Entry
}

// New builds a Table with shardCount shards (rounded up to a power of
// two; defaults to 8 if non-positive).
func New(shardCount int) *Table {
	if shardCount <= 0 {
		shardCount = 8
	}
	n := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[uint32]Entry)}
	}
	return &Table{shards: shards, mask: n - 1}
}

// AddMem registers a new memory region and returns its mem_id.
func (t *Table) AddMem(datum api.BufferDatum) (uint32, error) {
	if datum.FD < 0 && datum.Kind == api.DataMemFd {
		return 0, fmt.Errorf("%w: negative fd for mem-fd buffer", api.ErrArgInvalid)
	}
	id := t.nextID.Add(1)
	e := Entry{FD: datum.FD, Flags: datum.Flags, Offset: datum.MapOffset, Size: datum.MaxSize}
	sh := t.shardFor(id)
	sh.mu.Lock()
	sh.entries[id] = e
	sh.mu.Unlock()
	return id, nil
}

// Lookup returns the entry registered under id.
func (t *Table) Lookup(id uint32) (Entry, bool) {
	sh := t.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[id]
	return e, ok
}

// Release forgets a mem_id, e.g. once every buffer datum referencing it
// has been reused and a port is torn down.
func (t *Table) Release(id uint32) {
	sh := t.shardFor(id)
	sh.mu.Lock()
	delete(sh.entries, id)
	sh.mu.Unlock()
}

func (t *Table) shardFor(id uint32) *shard {
	return t.shards[id&t.mask]
}

func nextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
