// File: api/message.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wire-level types shared by the shared-memory transport ring and the
// control protocol: per-port I/O cells and the five data-plane message
// kinds. Layout here must match §6 of the design exactly since it crosses
// the process boundary.

package api

// IOStatus is a port's current buffer status as published in its PortIO
// cell.
type IOStatus uint32

const (
	IOOk IOStatus = iota
	IONeedBuffer
	IOHaveBuffer
	IOError
)

// PortIO is one 64-bit-aligned cell per port per direction, living inside
// the shared transport region. Exactly one side writes a given cell in any
// given cycle phase; see the concurrency discipline in the design notes.
type PortIO struct {
	Status   IOStatus
	BufferID uint32
}

// MessageType enumerates the ring's data-plane message kinds.
type MessageType uint32

const (
	MsgProcessInput MessageType = iota + 1
	MsgProcessOutput
	MsgHaveOutput
	MsgNeedInput
	MsgReuseBuffer
)

func (t MessageType) String() string {
	switch t {
	case MsgProcessInput:
		return "PROCESS_INPUT"
	case MsgProcessOutput:
		return "PROCESS_OUTPUT"
	case MsgHaveOutput:
		return "HAVE_OUTPUT"
	case MsgNeedInput:
		return "NEED_INPUT"
	case MsgReuseBuffer:
		return "REUSE_BUFFER"
	default:
		return "UNKNOWN"
	}
}

// ReuseBufferBody is the only message with a non-empty body.
type ReuseBufferBody struct {
	PortID   uint32
	BufferID uint32
}

// MessageHeader precedes every ring message: a type tag and the byte
// length of the body that follows it.
type MessageHeader struct {
	Type     MessageType
	BodySize uint32
}

// HeaderSize is the on-wire size in bytes of MessageHeader (two u32 fields).
const HeaderSize = 8

// ReuseBufferBodySize is the on-wire size in bytes of ReuseBufferBody.
const ReuseBufferBodySize = 8
