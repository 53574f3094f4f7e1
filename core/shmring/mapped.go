// File: core/shmring/mapped.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MappedRing is the cross-process counterpart of RingBuffer: its two
// indices live inside a byte region obtained from shared memory (mmap)
// rather than in process-local fields, so a peer process mapping the
// same region observes the same atomic cells. The wrap-around copy
// helpers (ReadData/WriteData) are shared with RingBuffer.

package shmring

import (
	"sync/atomic"
	"unsafe"
)

// MappedHeaderSize is the number of bytes MappedRing reserves at the
// front of its region for the index pair, cache-line separated so the
// reader and writer indices never share a line.
const MappedHeaderSize = 128

// MappedRing is a RingBuffer whose indices and storage both live in a
// caller-supplied byte slice, typically backed by a shared memory mapping.
type MappedRing struct {
	readIndex  *uint32
	writeIndex *uint32
	storage    []byte
	size       uint32
	mask       uint32
}

// NewMapped builds a MappedRing over region, using region[0:MappedHeaderSize]
// for the index pair and region[MappedHeaderSize:] as data storage. The
// storage length must be a power of two.
func NewMapped(region []byte) *MappedRing {
	if len(region) <= MappedHeaderSize {
		panic("shmring: region too small for mapped ring header")
	}
	storage := region[MappedHeaderSize:]
	size := uint32(len(storage))
	if size == 0 || size&(size-1) != 0 {
		panic("shmring: mapped ring storage must be a power of two")
	}
	return &MappedRing{
		readIndex:  (*uint32)(unsafe.Pointer(&region[0])),
		writeIndex: (*uint32)(unsafe.Pointer(&region[64])),
		storage:    storage,
		size:       size,
		mask:       size - 1,
	}
}

// MappedRegionSize returns the total region length a ring with the given
// data capacity requires, header included.
func MappedRegionSize(dataSize uint32) uint32 {
	return MappedHeaderSize + dataSize
}

func (r *MappedRing) Size() uint32    { return r.size }
func (r *MappedRing) Mask() uint32    { return r.mask }
func (r *MappedRing) Storage() []byte { return r.storage }

func (r *MappedRing) GetReadIndex() (index uint32, fill int32) {
	read := atomic.LoadUint32(r.readIndex)
	write := atomic.LoadUint32(r.writeIndex)
	return read, int32(write - read)
}

func (r *MappedRing) GetWriteIndex() (index uint32, fill int32) {
	write := atomic.LoadUint32(r.writeIndex)
	read := atomic.LoadUint32(r.readIndex)
	return write, int32(write - read)
}

func (r *MappedRing) ReadUpdate(newIndex uint32) {
	atomic.StoreUint32(r.readIndex, newIndex)
}

func (r *MappedRing) WriteUpdate(newIndex uint32) {
	atomic.StoreUint32(r.writeIndex, newIndex)
}
