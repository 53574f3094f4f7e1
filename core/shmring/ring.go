// File: core/shmring/ring.go
// Package shmring implements the lock-free, single-producer/single-consumer
// byte ring used by the shared-memory transport.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unlike the generic RingBuffer[T] in internal/concurrency, this ring
// carries no payload storage of its own: indices only. The caller supplies
// the backing byte storage (which, for the transport, lives in the shared
// memory region both peers map) and this package only does the index
// arithmetic and the wrap-around copy. read_index/write_index grow without
// bound modulo 2^32; their signed difference is the fill level in bytes.

package shmring

import "sync/atomic"

// RingBuffer is a fixed-capacity, power-of-two-sized index pair over
// externally owned storage.
type RingBuffer struct {
	readIndex  atomic.Uint32
	_          [60]byte // cache-line pad between the two hot indices
	writeIndex atomic.Uint32
	_          [60]byte
	size       uint32
	mask       uint32
}

// New builds a RingBuffer for a storage region of the given size, which
// must be a power of two.
func New(size uint32) *RingBuffer {
	if size == 0 || size&(size-1) != 0 {
		panic("shmring: size must be a power of two")
	}
	return &RingBuffer{size: size, mask: size - 1}
}

// Size returns the ring's fixed byte capacity.
func (r *RingBuffer) Size() uint32 { return r.size }

// GetReadIndex returns the current read index and the producer-visible
// fill level. The read index is loaded with relaxed intent (only the
// consumer ever advances it); the write index is loaded with acquire
// intent so that any byte writes the producer released before publishing
// it become visible here. Go's atomic package provides at least that
// ordering for every load/store, which is all the single-writer-per-index
// discipline below requires.
func (r *RingBuffer) GetReadIndex() (index uint32, fill int32) {
	read := r.readIndex.Load()
	write := r.writeIndex.Load()
	return read, int32(write - read)
}

// GetWriteIndex returns the current write index and the fill level
// (write - read), the same value GetReadIndex reports; the producer's
// free space is Size() minus that fill.
func (r *RingBuffer) GetWriteIndex() (index uint32, fill int32) {
	write := r.writeIndex.Load()
	read := r.readIndex.Load()
	return write, int32(write - read)
}

// ReadData copies min(len(out), size-offset) bytes from storage[offset:]
// into out, wrapping around to storage[0:] for any remainder. offset must
// already be masked (index & mask) by the caller.
func ReadData(storage []byte, offset uint32, out []byte) {
	copyWrapped(storage, offset, out)
}

// WriteData is the producer-side mirror of ReadData.
func WriteData(storage []byte, offset uint32, in []byte) {
	copyWrappedWrite(storage, offset, in)
}

func copyWrapped(storage []byte, offset uint32, out []byte) {
	size := uint32(len(storage))
	first := size - offset
	if uint32(len(out)) <= first {
		copy(out, storage[offset:])
		return
	}
	copy(out, storage[offset:])
	copy(out[first:], storage[0:])
}

func copyWrappedWrite(storage []byte, offset uint32, in []byte) {
	size := uint32(len(storage))
	first := size - offset
	if uint32(len(in)) <= first {
		copy(storage[offset:], in)
		return
	}
	copy(storage[offset:], in[:first])
	copy(storage[0:], in[first:])
}

// ReadUpdate publishes a new read index with release intent, signalling
// the producer that this many bytes have been freed.
func (r *RingBuffer) ReadUpdate(newIndex uint32) {
	r.readIndex.Store(newIndex)
}

// WriteUpdate publishes a new write index with release intent, signalling
// the consumer that this many bytes are newly available. Any byte writes
// issued by the caller before this call are guaranteed visible to a
// consumer that subsequently loads this index via GetReadIndex.
func (r *RingBuffer) WriteUpdate(newIndex uint32) {
	r.writeIndex.Store(newIndex)
}

// Mask returns size-1, for callers that compute their own storage offsets.
func (r *RingBuffer) Mask() uint32 { return r.mask }
