// File: internal/proxynode/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Inbound ring message handling, triggered by readiness on the proxy's
// own wakeup fd. Runs on the data-loop thread.

package proxynode

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/graph-proxy-node/api"
)

// OnTransportReadable drains the wakeup fd then dispatches every
// complete message currently queued on the transport ring. It is the
// callback the data loop's MainLoop invokes for the transport's fd.
func (p *ProxyNode) OnTransportReadable() error {
	p.mu.Lock()
	transport := p.transport
	p.mu.Unlock()
	if transport == nil {
		return fmt.Errorf("%w: transport not yet built", api.ErrNotReady)
	}

	if err := transport.DrainWakeup(); err != nil {
		return err
	}

	p.mu.Lock()
	pool := p.bodyPool
	p.mu.Unlock()

	for {
		hdr, ok, err := transport.NextMessage()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		body := acquireBody(pool, int(hdr.BodySize))
		if err := transport.ParseMessage(body); err != nil {
			return err
		}
		err = p.dispatch(transport, hdr, body)
		releaseBody(pool, body)
		if err != nil {
			return err
		}
	}
}

func acquireBody(pool api.BytePool, n int) []byte {
	if pool == nil {
		return make([]byte, n)
	}
	return pool.Acquire(n)
}

func releaseBody(pool api.BytePool, buf []byte) {
	if pool != nil {
		pool.Release(buf)
	}
}

func (p *ProxyNode) dispatch(transport api.Transport, hdr api.MessageHeader, body []byte) error {
	switch hdr.Type {
	case api.MsgHaveOutput:
		return p.onHaveOutput(transport)
	case api.MsgNeedInput:
		return p.onNeedInput(transport)
	case api.MsgReuseBuffer:
		return p.onReuseBuffer(body)
	default:
		return fmt.Errorf("%w: unexpected message type %s on inbound ring", api.ErrArgInvalid, hdr.Type)
	}
}

func (p *ProxyNode) onHaveOutput(transport api.Transport) error {
	p.mu.Lock()
	outs := transport.Outputs()
	ids := make([]uint32, p.outputs.Len())
	n := p.outputs.IDs(ids)
	for _, id := range ids[:n] {
		slot, ok := p.outputs.Get(id)
		if ok && slot.IO != nil && int(id) < len(outs) {
			*slot.IO = outs[id]
		}
	}
	p.outPending = false
	cb := p.callbacks
	p.mu.Unlock()

	if cb != nil {
		cb.HaveOutput()
	}
	return nil
}

func (p *ProxyNode) onNeedInput(transport api.Transport) error {
	p.mu.Lock()
	ins := transport.Inputs()
	ids := make([]uint32, p.inputs.Len())
	n := p.inputs.IDs(ids)
	for _, id := range ids[:n] {
		slot, ok := p.inputs.Get(id)
		if ok && slot.IO != nil && int(id) < len(ins) {
			*slot.IO = ins[id]
		}
	}
	p.inputReady++
	cb := p.callbacks
	p.mu.Unlock()

	if cb != nil {
		cb.NeedInput()
	}
	return nil
}

func (p *ProxyNode) onReuseBuffer(body []byte) error {
	if len(body) < api.ReuseBufferBodySize {
		return fmt.Errorf("%w: short REUSE_BUFFER body", api.ErrArgInvalid)
	}
	portID := binary.LittleEndian.Uint32(body[0:4])
	bufferID := binary.LittleEndian.Uint32(body[4:8])

	p.mu.Lock()
	reuse := p.clientReuse
	cb := p.callbacks
	p.mu.Unlock()

	if !reuse {
		// The server already recycled this buffer inside process_input.
		return nil
	}
	if cb != nil {
		cb.ReuseBuffer(api.DirInput, portID, bufferID)
	}
	return nil
}
