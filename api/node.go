// File: api/node.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Node is the capability set the graph engine drives a proxy node through.
// It mirrors the eighteen operations the spec assigns to the media-graph
// "node" contract: parameter enumeration/negotiation, port lifecycle,
// buffer registration, and the per-cycle process_input/process_output
// pair. Implementations are not required to be safe for concurrent calls
// from more than the two threads the spec assigns them to (control thread
// for everything except process_input/process_output, data thread for
// those two plus the inbound dispatch they trigger).

package api

// PortDirection distinguishes a port's data direction.
type PortDirection int

const (
	DirInput PortDirection = iota
	DirOutput
)

// PortInfo is the caller-supplied descriptive metadata for a port, set via
// port_update's INFO change and read back by port_get_info.
type PortInfo struct {
	Name  string
	Flags uint32
}

// ParamBlob is an opaque, tagged byte sequence carrying a structured
// parameter value (format descriptors, port info, commands). The proxy
// only ever inspects the ObjectID; the bytes themselves are opaque to it
// and are interpreted by ParameterCodec/TypeMap on behalf of callers.
type ParamBlob struct {
	ObjectID uint32
	Data     []byte
}

// Command is an opaque command value sent via send_command / port_send_command.
type Command struct {
	ID   uint32
	Data []byte
}

// CmdClockUpdate is the one command id SendCommand treats as fire-and-
// forget: high-frequency and idempotent, so it skips the sequence-broker
// round trip every other command goes through.
const CmdClockUpdate uint32 = 1

// ParamFilter narrows enum_params results; nil matches every candidate of
// the given ObjectID.
type ParamFilter func(ParamBlob) bool

// DataKind enumerates a registered buffer datum's backing memory kind.
type DataKind int

const (
	DataInvalid DataKind = iota
	DataMemFd
	DataDmaBuf
	DataMemPtr
	// DataID replaces DataMemFd/DataDmaBuf once the datum has been
	// registered with the resource's memory table and rewritten to carry
	// a mem_id instead of a raw fd.
	DataID
)

// BufferDatum is one of at most four data segments composing a
// RegisteredBuffer. Exactly one of (FD, RelOffset) is meaningful depending
// on Kind.
type BufferDatum struct {
	Kind      DataKind
	FD        int    // valid for DataMemFd/DataDmaBuf, closed by caller once registered
	MemID     uint32 // valid once Kind==DataID
	Flags     uint32
	MapOffset int64
	MaxSize   uint32
	RelOffset int64 // valid for DataMemPtr: offset into the buffer's shared region
}

// ClientBuffer is a single buffer as presented by the client to
// port_use_buffers, before mem-id normalization.
type ClientBuffer struct {
	Handle uint64 // opaque client_buffer_handle
	Metas  []BufferDatum
	Datas  []BufferDatum
	Offset int64
	Size   uint32
}

// Node is the capability set a proxy node exposes to the graph engine.
type Node interface {
	EnumParams(objectID uint32, index *int, filter ParamFilter) (ParamBlob, bool, error)
	SetParam(objectID uint32, flags uint32, blob ParamBlob) (Result[struct{}], error)
	SendCommand(cmd Command) (Result[struct{}], error)
	SetCallbacks(cb GraphCallbacks)

	GetNPorts() (nInputs, maxInputs, nOutputs, maxOutputs int)
	GetPortIDs(dir PortDirection, out []uint32) (n int)

	AddPort(dir PortDirection, id uint32) error
	RemovePort(dir PortDirection, id uint32) error

	PortGetInfo(dir PortDirection, id uint32) (PortInfo, error)
	PortEnumParams(dir PortDirection, id uint32, index *int, filter ParamFilter) (ParamBlob, bool, error)
	PortSetParam(dir PortDirection, id uint32, blob ParamBlob) (Result[struct{}], error)

	PortUseBuffers(dir PortDirection, id uint32, buffers []ClientBuffer) (Result[struct{}], error)
	PortAllocBuffers(dir PortDirection, id uint32, count int, size uint32) (Result[struct{}], error)
	PortSetIO(dir PortDirection, id uint32, slot *PortIO) error
	PortReuseBuffer(dir PortDirection, id uint32, bufferID uint32) error
	PortSendCommand(dir PortDirection, id uint32, cmd Command) (Result[struct{}], error)

	ProcessInput() error
	ProcessOutput() error
}

// GraphCallbacks are the downward callbacks the graph engine installs via
// Node.SetCallbacks, invoked from the data thread while draining the
// transport ring.
type GraphCallbacks interface {
	HaveOutput()
	NeedInput()
	ReuseBuffer(dir PortDirection, portID, bufferID uint32)
	Event(ev Command)
}
