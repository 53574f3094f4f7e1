// File: internal/transport/region.go
// Package transport implements the shared-memory transport between a
// proxy node and its client peer: a mapped region carrying the two
// PortIO status arrays and the message ring, plus a pair of wakeup
// file descriptors.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/core/shmring"
)

const (
	regionMagic   = 0x584f5250 // "PROX" little-endian
	regionVersion = 1

	// fixed header: magic, version, numInputs, numOutputs, ringDataSize, pad.
	regionFixedHeaderSize = 24
	portIOSlotSize        = 8 // status uint32 + bufferID uint32
)

// regionLayout describes the byte offsets of a mapped transport region.
// Both peers compute the identical layout from the same (numInputs,
// numOutputs, ringDataSize) triple, so no negotiation over the wire is
// needed to locate the arrays.
type regionLayout struct {
	numInputs    uint32
	numOutputs   uint32
	ringDataSize uint32

	inputsOffset  uint32
	outputsOffset uint32
	ringOffset    uint32
	totalSize     uint32
}

func newRegionLayout(numInputs, numOutputs int, ringDataSize uint32) regionLayout {
	inputsOffset := uint32(regionFixedHeaderSize)
	outputsOffset := inputsOffset + uint32(numInputs)*portIOSlotSize
	ringOffset := align64(outputsOffset + uint32(numOutputs)*portIOSlotSize)
	total := ringOffset + shmring.MappedRegionSize(ringDataSize)
	return regionLayout{
		numInputs:    uint32(numInputs),
		numOutputs:   uint32(numOutputs),
		ringDataSize: ringDataSize,
		inputsOffset: inputsOffset, outputsOffset: outputsOffset,
		ringOffset: ringOffset, totalSize: total,
	}
}

func align64(v uint32) uint32 {
	const a = 64
	return (v + a - 1) &^ (a - 1)
}

// region is a live view over a mapped byte slice implementing the
// transport's wire layout.
type region struct {
	layout regionLayout
	bytes  []byte
	ring   *shmring.MappedRing
}

// initRegion writes the fixed header into a freshly mapped, zeroed region
// and returns the live view. Called by whichever peer creates the mapping.
func initRegion(bytes []byte, numInputs, numOutputs int, ringDataSize uint32) (*region, error) {
	layout := newRegionLayout(numInputs, numOutputs, ringDataSize)
	if uint32(len(bytes)) < layout.totalSize {
		return nil, fmt.Errorf("transport: region too small: have %d need %d", len(bytes), layout.totalSize)
	}
	putU32(bytes, 0, regionMagic)
	putU32(bytes, 4, regionVersion)
	putU32(bytes, 8, layout.numInputs)
	putU32(bytes, 12, layout.numOutputs)
	putU32(bytes, 16, layout.ringDataSize)
	return openRegion(bytes, numInputs, numOutputs, ringDataSize)
}

// openRegion attaches to an already-initialized region (the peer side).
func openRegion(bytes []byte, numInputs, numOutputs int, ringDataSize uint32) (*region, error) {
	layout := newRegionLayout(numInputs, numOutputs, ringDataSize)
	if uint32(len(bytes)) < layout.totalSize {
		return nil, fmt.Errorf("transport: region too small: have %d need %d", len(bytes), layout.totalSize)
	}
	r := &region{layout: layout, bytes: bytes}
	r.ring = shmring.NewMapped(bytes[layout.ringOffset : layout.ringOffset+shmring.MappedRegionSize(ringDataSize)])
	return r, nil
}

func (r *region) validate() error {
	if putU32Get(r.bytes, 0) != regionMagic {
		return fmt.Errorf("transport: bad region magic")
	}
	if putU32Get(r.bytes, 4) != regionVersion {
		return fmt.Errorf("transport: unsupported region version %d", putU32Get(r.bytes, 4))
	}
	return nil
}

func putU32(b []byte, off uint32, v uint32) {
	*(*uint32)(unsafe.Pointer(&b[off])) = v
}

func putU32Get(b []byte, off uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(&b[off]))
}

func slotPtr(b []byte, base uint32, idx int) (status, bufferID *uint32) {
	off := base + uint32(idx)*portIOSlotSize
	status = (*uint32)(unsafe.Pointer(&b[off]))
	bufferID = (*uint32)(unsafe.Pointer(&b[off+4]))
	return
}

func (r *region) readSlot(dir api.PortDirection, idx int) api.PortIO {
	base := r.layout.inputsOffset
	n := int(r.layout.numInputs)
	if dir == api.DirOutput {
		base = r.layout.outputsOffset
		n = int(r.layout.numOutputs)
	}
	if idx < 0 || idx >= n {
		return api.PortIO{}
	}
	status, bufferID := slotPtr(r.bytes, base, idx)
	return api.PortIO{
		Status:   api.IOStatus(atomic.LoadUint32(status)),
		BufferID: atomic.LoadUint32(bufferID),
	}
}

func (r *region) writeSlot(dir api.PortDirection, idx int, v api.PortIO) {
	base := r.layout.inputsOffset
	n := int(r.layout.numInputs)
	if dir == api.DirOutput {
		base = r.layout.outputsOffset
		n = int(r.layout.numOutputs)
	}
	if idx < 0 || idx >= n {
		return
	}
	status, bufferID := slotPtr(r.bytes, base, idx)
	atomic.StoreUint32(status, uint32(v.Status))
	atomic.StoreUint32(bufferID, v.BufferID)
}

func (r *region) inputs() []api.PortIO {
	out := make([]api.PortIO, r.layout.numInputs)
	for i := range out {
		out[i] = r.readSlot(api.DirInput, i)
	}
	return out
}

func (r *region) outputs() []api.PortIO {
	out := make([]api.PortIO, r.layout.numOutputs)
	for i := range out {
		out[i] = r.readSlot(api.DirOutput, i)
	}
	return out
}
