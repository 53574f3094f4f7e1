// File: internal/proxynode/cycle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The per-cycle data-plane operations the graph engine drives from the
// real-time data loop: process_input, process_output, and the transport
// construction they depend on.

package proxynode

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/momentics/graph-proxy-node/api"
)

// BuildTransport constructs the shared-memory transport once the first
// control-channel completion (seq==0, res==0) has told the proxy its
// peer's max_inputs/max_outputs are final. Calling it twice is an error.
func (p *ProxyNode) BuildTransport() (api.Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.transport != nil {
		return nil, fmt.Errorf("%w: transport already built", api.ErrAlreadyExists)
	}
	if p.transportFactory == nil {
		return nil, fmt.Errorf("%w: no transport factory configured", api.ErrNotReady)
	}
	t, err := p.transportFactory(p.maxInputs, p.maxOutputs)
	if err != nil {
		return nil, err
	}
	p.transport = t
	return t, nil
}

// Transport returns the built transport, if any.
func (p *ProxyNode) Transport() api.Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transport
}

func (p *ProxyNode) ProcessInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inputReady == 0 {
		ids := make([]uint32, p.inputs.Len())
		n := p.inputs.IDs(ids)
		for _, id := range ids[:n] {
			slot, ok := p.inputs.Get(id)
			if ok && slot.IO != nil {
				slot.IO.Status = api.IONeedBuffer
			}
		}
		return api.ErrNeedBuffer
	}

	if p.transport == nil {
		return fmt.Errorf("%w: transport not yet built", api.ErrNotReady)
	}

	ids := make([]uint32, p.inputs.Len())
	n := p.inputs.IDs(ids)
	for _, id := range ids[:n] {
		slot, ok := p.inputs.Get(id)
		if !ok || slot.IO == nil {
			continue
		}
		if err := p.transport.SetInput(int(id), *slot.IO); err != nil {
			return err
		}
		if !p.clientReuse && slot.IO.Status == api.IOHaveBuffer && p.callbacks != nil {
			p.callbacks.ReuseBuffer(api.DirInput, id, slot.IO.BufferID)
		}
	}

	hdr := api.MessageHeader{Type: api.MsgProcessInput}
	if err := p.enqueueOrRetry(hdr, nil); err != nil {
		return err
	}
	p.inputReady--
	return nil
}

func (p *ProxyNode) ProcessOutput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.transport == nil {
		return fmt.Errorf("%w: transport not yet built", api.ErrNotReady)
	}

	if !p.outPending {
		ids := make([]uint32, p.outputs.Len())
		n := p.outputs.IDs(ids)
		for _, id := range ids[:n] {
			slot, ok := p.outputs.Get(id)
			if !ok || slot.IO == nil {
				continue
			}
			if err := p.transport.SetOutput(int(id), *slot.IO); err != nil {
				return err
			}
		}
		p.outPending = true
	}

	hdr := api.MessageHeader{Type: api.MsgProcessOutput}
	return p.enqueueOrRetry(hdr, nil)
}

// enqueueOrRetry appends msg to the transport ring, queuing it for
// later delivery instead of failing the caller when the ring is
// currently full.
func (p *ProxyNode) enqueueOrRetry(hdr api.MessageHeader, body []byte) error {
	if err := p.transport.AddMessage(hdr, body); err != nil {
		if err == api.ErrTransportFull {
			p.log.Warn("transport ring full, queuing message for retry", zap.Uint32("msg_type", uint32(hdr.Type)))
			p.retry.push(hdr, body)
			return nil
		}
		return err
	}
	if err := p.transport.SignalPeer(); err != nil {
		return err
	}
	return p.retry.drain(func(h api.MessageHeader, b []byte) error {
		if err := p.transport.AddMessage(h, b); err != nil {
			return err
		}
		return p.transport.SignalPeer()
	})
}
