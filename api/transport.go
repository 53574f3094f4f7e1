// File: api/transport.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport is the shared-memory region plus the pair of wakeup file
// descriptors that carry per-cycle port I/O state and ring messages
// between server and client (§4.2).

package api

// Transport owns one shared memory region (header, two PortIO arrays, one
// message ring) and two wakeup fds. It is created lazily once
// max_inputs/max_outputs are known (first successful control-channel
// completion), and destroyed exactly once.
type Transport interface {
	// AddMessage enqueues msg onto the ring. Returns ErrTransportFull if
	// the ring cannot currently fit header+body; callers retry next cycle.
	AddMessage(msg MessageHeader, body []byte) error

	// NextMessage peeks the next message's header without consuming it.
	// Returns (header, true, nil) if a full message is present, (zero,
	// false, nil) if the ring is empty, and a non-nil error if the header
	// claims a body larger than the ring itself (malformed).
	NextMessage() (MessageHeader, bool, error)

	// ParseMessage consumes the message previously returned by
	// NextMessage, copying its body into dst (which must be at least
	// header.BodySize long).
	ParseMessage(dst []byte) error

	// Inputs/Outputs return a snapshot of the shared PortIO arrays.
	Inputs() []PortIO
	Outputs() []PortIO

	// SetInput/SetOutput publish one port's I/O cell into the shared
	// arrays. The server side calls SetInput before PROCESS_INPUT and
	// reads Outputs after HAVE_OUTPUT; a simulated client peer (tests)
	// does the reverse.
	SetInput(portIndex int, io PortIO) error
	SetOutput(portIndex int, io PortIO) error

	// SignalPeer writes to the peer's wakeup fd (adds 1 to its counter).
	SignalPeer() error

	// MemFD is the descriptor backing the shared region itself. It is
	// handed to the client out-of-band (fd-passed) by PublishTransport so
	// the client can mmap the same region.
	MemFD() uintptr

	// OurWakeupFD is the fd the data loop polls for inbound readiness.
	OurWakeupFD() uintptr

	// PeerWakeupFD is the fd SignalPeer writes to; it is handed to the
	// client out-of-band (fd-passed) by PublishTransport so the client
	// can poll the same counter from its side.
	PeerWakeupFD() uintptr

	// DrainWakeup reads and discards the 8-byte eventfd counter on our
	// wakeup fd, per the inbound dispatch protocol's first step.
	DrainWakeup() error

	// Destroy unregisters the data source (caller's responsibility, done
	// before calling Destroy) then unmaps the shared region and closes
	// both wakeup fds.
	Destroy() error
}

// TransportFeatures advertises what a concrete Transport implementation
// supports, mirroring the capability-discovery pattern used elsewhere in
// this codebase.
type TransportFeatures struct {
	SharedMemory bool
	LockFree     bool
	OS           []string
}
