// File: fake/peer.go
// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Peer simulates the client side of the resource channel and transport
// ring for integration-style tests: completing async requests, pushing
// ring notifications the data loop is expected to drain, and tearing the
// session down.

package fake

import (
	"encoding/binary"

	"github.com/momentics/graph-proxy-node/api"
)

// Peer drives a ResourceChannel/Transport pair the way a real client
// would, from the test's side of the boundary.
type Peer struct {
	inbound   api.ResourceInbound
	transport *Transport
}

// NewPeer binds a Peer to the ResourceInbound handlers it will complete
// requests against and the Transport it will push ring messages onto.
// Either may be nil if a test only needs one half.
func NewPeer(inbound api.ResourceInbound, transport *Transport) *Peer {
	return &Peer{inbound: inbound, transport: transport}
}

// Complete acknowledges a pending async request, as if the client had
// replied over the resource channel.
func (p *Peer) Complete(seq uint32, res int32) {
	if p.inbound != nil {
		p.inbound.OnDone(seq, res)
	}
}

// PushHaveOutput enqueues a HAVE_OUTPUT ring notification and signals the
// server's wakeup fd, simulating the client finishing process_output.
func (p *Peer) PushHaveOutput() error {
	return p.push(api.MessageHeader{Type: api.MsgHaveOutput}, nil)
}

// PushNeedInput enqueues a NEED_INPUT ring notification.
func (p *Peer) PushNeedInput() error {
	return p.push(api.MessageHeader{Type: api.MsgNeedInput}, nil)
}

// PushReuseBuffer enqueues a REUSE_BUFFER notification for the given
// input port and buffer id.
func (p *Peer) PushReuseBuffer(portID, bufferID uint32) error {
	body := make([]byte, api.ReuseBufferBodySize)
	binary.LittleEndian.PutUint32(body[0:4], portID)
	binary.LittleEndian.PutUint32(body[4:8], bufferID)
	return p.push(api.MessageHeader{Type: api.MsgReuseBuffer, BodySize: api.ReuseBufferBodySize}, body)
}

func (p *Peer) push(hdr api.MessageHeader, body []byte) error {
	if p.transport == nil {
		return nil
	}
	if err := p.transport.AddMessage(hdr, body); err != nil {
		return err
	}
	return p.transport.SignalPeer()
}

// Destroy delivers OnDestroy, as if the client had torn its end down.
func (p *Peer) Destroy() {
	if p.inbound != nil {
		p.inbound.OnDestroy()
	}
}
