// File: internal/proxynode/buffers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// port_use_buffers: normalizes a client's buffer descriptors into the
// registered-memory table, rewriting each fd-backed datum into a mem_id
// reference before forwarding to the client.

package proxynode

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/porttable"
)

func (p *ProxyNode) PortUseBuffers(dir api.PortDirection, id uint32, buffers []api.ClientBuffer) (api.Result[struct{}], error) {
	if _, ok := p.table(dir).Get(id); !ok {
		return api.Result[struct{}]{}, fmt.Errorf("%w: port %d", api.ErrArgInvalid, id)
	}
	if !p.portHasFormat(dir, id) {
		return api.Result[struct{}]{}, fmt.Errorf("%w: port %d has no format yet", api.ErrNotReady, id)
	}

	normalized, err := p.normalizeAll(buffers)
	if err != nil {
		return api.Result[struct{}]{}, err
	}

	if p.resource == nil {
		return api.Result[struct{}]{}, fmt.Errorf("%w: no resource channel configured", api.ErrNotReady)
	}
	seq := p.broker.Begin(func(any, error) {})
	if err := p.resource.SendPortUseBuffers(seq, dir, id, normalized); err != nil {
		p.broker.Cancel(seq)
		return api.Result[struct{}]{}, err
	}
	return api.Result[struct{}]{Seq: seq, Pending: true}, nil
}

// portHasFormat reports whether a port has received a Format parameter.
// Formatted and Active both qualify; Created does not.
func (p *ProxyNode) portHasFormat(dir api.PortDirection, id uint32) bool {
	slot, ok := p.table(dir).Get(id)
	if !ok {
		return false
	}
	return slot.State == porttable.StateFormatted || slot.State == porttable.StateActive
}

// normalizeAll runs normalizeBuffer over every client buffer, fanning
// out across p.executor when one is configured and there is more than
// one buffer to normalize (registering mem_ids is independent per
// buffer, so this parallelizes cleanly across NUMA-pinned workers). A
// buffer missing its shared-memory metadatum aborts the whole call,
// matching spa_proxy_node_port_use_buffers's immediate -EINVAL on a
// missing spa_meta_shared; no partial registration is left behind.
func (p *ProxyNode) normalizeAll(buffers []api.ClientBuffer) ([]api.ClientBuffer, error) {
	normalized := make([]api.ClientBuffer, len(buffers))

	for bi, buf := range buffers {
		hasMeta := false
		for _, m := range buf.Metas {
			if m.Kind == api.DataMemFd || m.Kind == api.DataDmaBuf {
				hasMeta = true
				break
			}
		}
		if !hasMeta {
			err := fmt.Errorf("%w: buffer %d has no shared-memory metadatum", api.ErrArgInvalid, buf.Handle)
			p.log.Error("use_buffers: buffer missing shared-memory metadatum",
				zap.Uint64("buffer", buf.Handle), zap.Int("index", bi), zap.Error(err))
			return nil, err
		}
	}

	if p.executor == nil || len(buffers) < 2 {
		for bi, buf := range buffers {
			nb, err := p.normalizeBuffer(buf)
			if err != nil {
				p.log.Error("use_buffers: buffer missing shared-memory metadatum",
					zap.Uint64("buffer", buf.Handle), zap.Int("index", bi), zap.Error(err))
				return nil, err
			}
			normalized[bi] = nb
		}
		return normalized, nil
	}

	errs := make([]error, len(buffers))
	var wg sync.WaitGroup
	wg.Add(len(buffers))
	for bi, buf := range buffers {
		bi, buf := bi, buf
		task := func() {
			defer wg.Done()
			nb, err := p.normalizeBuffer(buf)
			if err != nil {
				errs[bi] = err
				return
			}
			normalized[bi] = nb
		}
		if err := p.executor.Submit(task); err != nil {
			errs[bi] = err
			wg.Done()
		}
	}
	wg.Wait()

	for bi, err := range errs {
		if err != nil {
			p.log.Error("use_buffers: buffer missing shared-memory metadatum",
				zap.Uint64("buffer", buffers[bi].Handle), zap.Int("index", bi), zap.Error(err))
			return nil, err
		}
	}
	return normalized, nil
}

// normalizeBuffer implements port_use_buffers steps 1-3: find the
// buffer's shared-memory metadatum, register it for a mem_id, then
// rewrite that metadatum and every fd-backed datum in Datas to reference
// the table by id instead of carrying a raw fd. Other Metas entries are
// copied unchanged.
func (p *ProxyNode) normalizeBuffer(buf api.ClientBuffer) (api.ClientBuffer, error) {
	metaIdx := -1
	for i, m := range buf.Metas {
		if m.Kind == api.DataMemFd || m.Kind == api.DataDmaBuf {
			metaIdx = i
			break
		}
	}
	if metaIdx < 0 {
		return api.ClientBuffer{}, fmt.Errorf("%w: buffer %d has no shared-memory metadatum", api.ErrArgInvalid, buf.Handle)
	}

	memID, err := p.mem.AddMem(buf.Metas[metaIdx])
	if err != nil {
		return api.ClientBuffer{}, err
	}

	out := buf
	out.Metas = append([]api.BufferDatum(nil), buf.Metas...)
	out.Datas = append([]api.BufferDatum(nil), buf.Datas...)
	out.Metas[metaIdx] = rewriteToID(out.Metas[metaIdx], memID)

	for i, d := range out.Datas {
		switch d.Kind {
		case api.DataMemFd, api.DataDmaBuf:
			id, err := p.mem.AddMem(d)
			if err != nil {
				p.log.Warn("use_buffers: datum registration failed, marking invalid",
					zap.Int("datum", i), zap.Error(err))
				out.Datas[i].Kind = api.DataInvalid
				continue
			}
			out.Datas[i] = rewriteToID(d, id)
		case api.DataMemPtr:
			out.Datas[i].RelOffset = d.MapOffset - buf.Offset
		default:
			out.Datas[i].Kind = api.DataInvalid
		}
	}
	return out, nil
}

func rewriteToID(d api.BufferDatum, memID uint32) api.BufferDatum {
	d.Kind = api.DataID
	d.MemID = memID
	return d
}
