// File: fake/buffer.go
// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fake api.BufferPool/api.BytePool implementations for testing.

package fake

import (
	"sync"

	"github.com/momentics/graph-proxy-node/api"
)

// BufferPool is a fake api.BufferPool that tracks total allocation/free
// counts and, per NUMA node, the number of buffers currently in use,
// without doing any actual pooling or reuse.
type BufferPool struct {
	mu        sync.Mutex
	allocated int64
	freed     int64
	inUse     int64
	numaStats map[int]int64
}

// NewBufferPool creates an empty fake buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{numaStats: make(map[int]int64)}
}

func (p *BufferPool) Get(size int, numaPreferred int) api.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allocated++
	p.inUse++
	p.numaStats[numaPreferred]++
	return api.Buffer{Data: make([]byte, size), NUMA: numaPreferred, Pool: p}
}

func (p *BufferPool) Put(b api.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freed++
	if p.inUse > 0 {
		p.inUse--
	}
	if p.numaStats[b.NUMA] > 0 {
		p.numaStats[b.NUMA]--
	}
}

func (p *BufferPool) Stats() api.BufferPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	numaStats := make(map[int]int64, len(p.numaStats))
	for k, v := range p.numaStats {
		numaStats[k] = v
	}
	return api.BufferPoolStats{
		TotalAlloc: p.allocated,
		TotalFree:  p.freed,
		InUse:      p.inUse,
		NUMAStats:  numaStats,
	}
}

// BytePool is a fake api.BytePool. Every Acquire is recorded and every
// Release is recorded, so tests can assert on staging-buffer lifecycle
// (e.g. internal/proxynode's dispatch loop) without a real pool.
type BytePool struct {
	mu        sync.Mutex
	Acquired  []int
	Released [][]byte
}

func NewBytePool() *BytePool { return &BytePool{} }

func (p *BytePool) Acquire(n int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Acquired = append(p.Acquired, n)
	return make([]byte, n)
}

func (p *BytePool) Release(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Released = append(p.Released, buf)
}

var (
	_ api.BufferPool = (*BufferPool)(nil)
	_ api.BytePool   = (*BytePool)(nil)
)
