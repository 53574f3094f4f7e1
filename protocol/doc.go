// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package protocol implements the resource control channel: a length-
// prefixed binary envelope protocol carried over a Unix domain socket,
// with SCM_RIGHTS fd passing for the shared-memory transport handoff and
// for any client buffer descriptor backed by a real file descriptor.
//
// It is the wire realization of api.ResourceChannel (outbound) and
// api.ResourceInbound (inbound, dispatched by Channel.Serve). It replaces
// the WebSocket handshake/framing code this package held in its original
// form: the resource channel is a private point-to-point link to one
// client process, not a browser-facing protocol.
package protocol
