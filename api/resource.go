// File: api/resource.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ResourceChannel is the reliable, ordered, fd-passing request/reply
// channel to the client (§4.6, §6). The proxy node uses it to send every
// control message that is NOT a data-plane ring message, and implements
// ResourceInbound to receive the client's replies and notifications.

package api

// ResourceChannel is the outbound half: the set of control requests the
// proxy node may send to its client. Every method that the design marks
// "async-pending" is fire-and-forget here too — completion arrives later
// through ResourceInbound.Done, correlated by the sequence number the
// caller supplies.
type ResourceChannel interface {
	// SendUpdate pushes a node-level parameter list replacement.
	SendUpdate(maxInputs, maxOutputs int, params []ParamBlob) error

	// SendPortUpdate creates, updates, or (changeMask==0) destroys a port
	// on the client side.
	SendPortUpdate(dir PortDirection, id uint32, changeMask uint32, params []ParamBlob, info PortInfo) error

	// SendSetParam forwards a node-level set_param request, tagged seq.
	SendSetParam(seq uint32, objectID uint32, flags uint32, blob ParamBlob) error

	// SendPortSetParam forwards a port-level set_param request, tagged seq.
	SendPortSetParam(seq uint32, dir PortDirection, id uint32, blob ParamBlob) error

	// SendCommand forwards a node-level command. ClockUpdate is
	// fire-and-forget (seq==0 is reserved and never completed); every
	// other command is tagged with a real sequence.
	SendCommand(seq uint32, cmd Command) error

	// SendPortUseBuffers forwards normalized buffer descriptors for a port.
	SendPortUseBuffers(seq uint32, dir PortDirection, id uint32, buffers []ClientBuffer) error

	// SendSetActive forwards a node activation toggle.
	SendSetActive(active bool) error

	// PublishTransport is the one-time message carrying the shared region's
	// memory fd and the two wakeup fds to the client, sent after the first
	// successful completion (seq==0, res==0). handle identifies the
	// resource this transport belongs to in logs and in the session
	// registry; it is not itself fd-passed.
	PublishTransport(handle ResourceHandle, memFD, wakeupUs, wakeupThem uintptr) error

	// Destroy tears the resource channel itself down.
	Destroy() error
}

// ResourceHandle is an opaque, collision-resistant identifier correlating
// a proxy node to its resource-channel session.
type ResourceHandle string

// ResourceInbound is the set of handlers the proxy node implements to
// receive the client's replies and notifications over the resource
// channel. A ResourceChannel implementation invokes these as frames
// arrive; it never calls them concurrently with each other.
type ResourceInbound interface {
	OnDone(seq uint32, res int32)
	OnUpdate(changeMask uint32, maxInputs, maxOutputs int, params []ParamBlob)
	OnPortUpdate(dir PortDirection, id uint32, changeMask uint32, params []ParamBlob, info PortInfo)
	OnSetActive(active bool)
	OnEvent(ev Command)
	OnDestroy()
}

// ParameterCodec provides the opaque operations the proxy needs to work
// with ParamBlob without understanding its encoding: deep copy, an
// object-id type test (used to recognize the Format parameter), and
// subset-match filtering for enum_params.
type ParameterCodec interface {
	PodCopy(p ParamBlob) ParamBlob
	PodIsObjectID(p ParamBlob, id uint32) bool
	PodFilter(p ParamBlob, filter ParamFilter) bool
}

// TypeMap is the process-scoped registry translating tag strings to u32
// ids for parameter objects, commands, metadata kinds, and data memory
// types.
type TypeMap interface {
	IDFor(tag string) uint32
	TagFor(id uint32) (string, bool)
}
