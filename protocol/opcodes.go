// File: protocol/opcodes.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

// Opcode tags every envelope with the ResourceChannel/ResourceInbound
// method it carries. Outbound opcodes (server -> client) and inbound
// opcodes (client -> server) share one numbering space since each value
// names a distinct message, never reused in the other direction.
type Opcode uint32

const (
	opUnknown Opcode = iota

	// Outbound: api.ResourceChannel requests.
	OpSendUpdate
	OpSendPortUpdate
	OpSendSetParam
	OpSendPortSetParam
	OpSendCommand
	OpSendPortUseBuffers
	OpSendSetActive
	OpPublishTransport

	// Inbound: api.ResourceInbound notifications.
	OpOnDone
	OpOnUpdate
	OpOnPortUpdate
	OpOnSetActive
	OpOnEvent
	OpOnDestroy
)

func (op Opcode) String() string {
	switch op {
	case OpSendUpdate:
		return "SEND_UPDATE"
	case OpSendPortUpdate:
		return "SEND_PORT_UPDATE"
	case OpSendSetParam:
		return "SEND_SET_PARAM"
	case OpSendPortSetParam:
		return "SEND_PORT_SET_PARAM"
	case OpSendCommand:
		return "SEND_COMMAND"
	case OpSendPortUseBuffers:
		return "SEND_PORT_USE_BUFFERS"
	case OpSendSetActive:
		return "SEND_SET_ACTIVE"
	case OpPublishTransport:
		return "PUBLISH_TRANSPORT"
	case OpOnDone:
		return "ON_DONE"
	case OpOnUpdate:
		return "ON_UPDATE"
	case OpOnPortUpdate:
		return "ON_PORT_UPDATE"
	case OpOnSetActive:
		return "ON_SET_ACTIVE"
	case OpOnEvent:
		return "ON_EVENT"
	case OpOnDestroy:
		return "ON_DESTROY"
	default:
		return "UNKNOWN"
	}
}
