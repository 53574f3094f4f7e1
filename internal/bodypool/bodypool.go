// File: internal/bodypool/bodypool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool implements api.BytePool as a fixed-capacity channel of
// fixed-size buffers, the same shape as the teacher's SimpleBytePool:
// every slot holds exactly size bytes, oversized requests fall back to
// a fresh allocation, and a full pool simply discards the returned
// buffer instead of blocking the releaser.

package bodypool

import "github.com/momentics/graph-proxy-node/api"

// Pool is used by the proxy node's data-loop dispatch to stage ring
// message bodies (internal/proxynode.dispatch.go) without allocating on
// every cycle once steady state is reached.
type Pool struct {
	bufs chan []byte
	size int
}

// New creates a pool of capacity buffers, each size bytes.
func New(capacity, size int) *Pool {
	p := &Pool{bufs: make(chan []byte, capacity), size: size}
	for i := 0; i < capacity; i++ {
		p.bufs <- make([]byte, size)
	}
	return p
}

// Acquire returns a slice of at least n bytes, truncated to exactly n.
// Requests larger than the pool's slot size bypass the pool entirely.
func (p *Pool) Acquire(n int) []byte {
	if n > p.size {
		return make([]byte, n)
	}
	select {
	case b := <-p.bufs:
		return b[:n]
	default:
		return make([]byte, n)
	}
}

var _ api.BytePool = (*Pool)(nil)

// Release returns buf to the pool if it was one of this pool's slots
// (by capacity) and the pool has room; otherwise it is discarded.
func (p *Pool) Release(buf []byte) {
	if cap(buf) < p.size {
		return
	}
	select {
	case p.bufs <- buf[:p.size]:
	default:
	}
}
