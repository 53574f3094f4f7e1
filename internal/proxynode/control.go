// File: internal/proxynode/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control-channel inbound handling: the client's replies and
// notifications, delivered out-of-band from the resource channel on the
// control thread. Implements api.ResourceInbound.

package proxynode

import (
	"go.uber.org/zap"

	"github.com/momentics/graph-proxy-node/api"
)

// Hooks are the side effects OnDone/OnSetActive/OnDestroy trigger that
// live outside the proxy node itself: installing the transport's fd as a
// data source, toggling node activation, and tearing down the owning
// resource. Each is optional; a nil hook is simply skipped.
type Hooks struct {
	OnTransportBuilt func(api.Transport) error

	// OnTransportTornDown runs before the transport is destroyed,
	// giving the owner a chance to unregister the wakeup fd from its
	// MainLoop before the shared region is unmapped and the fds closed.
	OnTransportTornDown func(api.Transport)

	OnSetActive func(active bool)
	OnDestroy   func()
}

func (p *ProxyNode) SetHooks(h Hooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = h
}

func (p *ProxyNode) OnDone(seq uint32, res int32) {
	if seq == 0 && res == 0 {
		p.mu.Lock()
		alreadyBuilt := p.transport != nil
		p.mu.Unlock()
		if !alreadyBuilt {
			p.completeFirstHandshake()
		}
		return
	}
	if res == 0 {
		p.broker.Done(seq, nil)
	} else {
		p.broker.Fail(seq, api.NewError(api.ErrorCode(res), "peer reported non-zero result"))
	}
}

func (p *ProxyNode) completeFirstHandshake() {
	transport, err := p.BuildTransport()
	if err != nil {
		return
	}
	p.mu.Lock()
	hooks := p.hooks
	resource := p.resource
	p.mu.Unlock()

	if resource != nil {
		resource.PublishTransport(p.handle, transport.MemFD(), transport.OurWakeupFD(), transport.PeerWakeupFD())
	}
	if hooks.OnTransportBuilt != nil {
		hooks.OnTransportBuilt(transport)
	}
}

func (p *ProxyNode) OnUpdate(changeMask uint32, maxInputs, maxOutputs int, params []api.ParamBlob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxInputs = maxInputs
	p.maxOutputs = maxOutputs
	p.params = append([]api.ParamBlob(nil), params...)
}

func (p *ProxyNode) OnPortUpdate(dir api.PortDirection, id uint32, changeMask uint32, params []api.ParamBlob, info api.PortInfo) {
	tbl := p.table(dir)
	if changeMask == 0 {
		// change_mask==0 always invalidates the port, active or not,
		// mirroring do_uninit_port in client-node.c. RemovePort only
		// errors when the id was never created, which is a no-op here.
		if err := tbl.RemovePort(id); err != nil {
			p.log.Debug("port_update(mask=0) on unknown port", zap.Uint32("port", id), zap.Error(err))
		}
		return
	}
	if _, ok := tbl.Get(id); !ok {
		if err := tbl.AddPort(id); err != nil {
			return
		}
	}
	tbl.SetInfo(id, info)
	for _, blob := range params {
		if blob.ObjectID == p.formatObjectID {
			tbl.SetFormatted(id)
			break
		}
	}
}

func (p *ProxyNode) OnSetActive(active bool) {
	p.mu.Lock()
	hook := p.hooks.OnSetActive
	p.mu.Unlock()
	if hook != nil {
		hook(active)
	}
}

func (p *ProxyNode) OnEvent(ev api.Command) {
	p.mu.Lock()
	cb := p.callbacks
	p.mu.Unlock()
	if cb != nil {
		cb.Event(ev)
	}
}

func (p *ProxyNode) OnDestroy() {
	p.mu.Lock()
	transport := p.transport
	resource := p.resource
	tornDown := p.hooks.OnTransportTornDown
	hook := p.hooks.OnDestroy
	p.mu.Unlock()

	if transport != nil {
		// The data source must be removed from the MainLoop before the
		// transport unmaps its shared region and closes its fds, or the
		// data loop can race a read against freed memory.
		if tornDown != nil {
			tornDown(transport)
		}
		transport.Destroy()
	}
	if resource != nil {
		resource.Destroy()
	}
	if hook != nil {
		hook()
	}
}
