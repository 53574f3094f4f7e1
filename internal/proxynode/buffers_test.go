// File: internal/proxynode/buffers_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package proxynode_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/proxynode"
)

// formatPort drives a port through Created -> Formatted via an
// OnPortUpdate carrying the negotiated format object id, matching how
// client_node_port_update's params flow sets have_format in client-node.c.
func formatPort(n *proxynode.ProxyNode, dir api.PortDirection, id uint32, formatObjectID uint32) {
	n.OnPortUpdate(dir, id, 1, []api.ParamBlob{{ObjectID: formatObjectID}}, api.PortInfo{})
}

// TestPortUseBuffersAbortsOnMissingSharedMeta exercises review comment #4:
// a buffer with no mem-fd/dma-buf meta must abort the whole call with
// ErrArgInvalid rather than being silently skipped, mirroring client-node.c's
// immediate -EINVAL in spa_proxy_node_port_use_buffers when spa_meta_shared
// is absent.
func TestPortUseBuffersAbortsOnMissingSharedMeta(t *testing.T) {
	n, res, _ := newTestNode(t, 4, 4)
	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	formatPort(n, api.DirInput, 0, 99)

	buffers := []api.ClientBuffer{
		{Handle: 1, Metas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 3}}, Datas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 4}}},
		{Handle: 2, Metas: nil}, // no shared-memory metadatum at all
	}

	_, err := n.PortUseBuffers(api.DirInput, 0, buffers)
	if !errors.Is(err, api.ErrArgInvalid) {
		t.Fatalf("expected ErrArgInvalid, got %v", err)
	}
	if res.useBuffers != nil {
		t.Fatalf("expected no forwarded port_use_buffers call once normalization aborted, got %+v", res.useBuffers)
	}
}

// TestPortUseBuffersNormalizesAndForwards checks the success path: every
// buffer with a shared meta gets its fd-backed datums rewritten to mem_ids
// before being forwarded to the resource channel.
func TestPortUseBuffersNormalizesAndForwards(t *testing.T) {
	n, res, _ := newTestNode(t, 4, 4)
	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	formatPort(n, api.DirInput, 0, 99)

	buffers := []api.ClientBuffer{
		{Handle: 1, Metas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 3}}, Datas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 4}}},
	}

	result, err := n.PortUseBuffers(api.DirInput, 0, buffers)
	if err != nil {
		t.Fatalf("PortUseBuffers: %v", err)
	}
	if !result.Pending {
		t.Fatalf("expected a pending async result, got %+v", result)
	}
	if len(res.useBuffers) != 1 {
		t.Fatalf("expected one forwarded buffer, got %+v", res.useBuffers)
	}
	got := res.useBuffers[0]
	if got.Metas[0].Kind != api.DataID || got.Metas[0].MemID == 0 {
		t.Fatalf("expected meta rewritten to a mem_id, got %+v", got.Metas[0])
	}
	if got.Datas[0].Kind != api.DataID || got.Datas[0].MemID == 0 {
		t.Fatalf("expected data datum rewritten to a mem_id, got %+v", got.Datas[0])
	}
}

// TestPortUseBuffersRejectsUnformattedPort checks that buffers cannot be
// attached to a port that never received a format, per §4.4's precondition.
func TestPortUseBuffersRejectsUnformattedPort(t *testing.T) {
	n, _, _ := newTestNode(t, 4, 4)
	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}

	_, err := n.PortUseBuffers(api.DirInput, 0, []api.ClientBuffer{{Handle: 1, Metas: []api.BufferDatum{{Kind: api.DataMemFd}}}})
	if !errors.Is(err, api.ErrNotReady) {
		t.Fatalf("expected ErrNotReady for an unformatted port, got %v", err)
	}
}

// syncExecutor runs every submitted task on its own goroutine, so tests can
// exercise the same fan-out/fan-in path a real worker pool does without
// pulling in internal/concurrency.
type syncExecutor struct {
	mu    sync.Mutex
	count int
}

func (e *syncExecutor) Submit(task func()) error {
	e.mu.Lock()
	e.count++
	e.mu.Unlock()
	go task()
	return nil
}

func (e *syncExecutor) NumWorkers() int { return 4 }
func (e *syncExecutor) Resize(int)      {}

// TestPortUseBuffersExecutorFanOut checks that normalization still produces
// correct, in-order output and still aborts the whole call on a missing
// shared meta when an Executor parallelizes per-buffer work (review comment
// #7's executor wiring).
func TestPortUseBuffersExecutorFanOut(t *testing.T) {
	res := &fakeResource{}
	n := proxynode.New(proxynode.Config{
		MaxInputs: 4, MaxOutputs: 4, Resource: res, FormatObjectID: 99,
		Executor: &syncExecutor{},
	})
	n.SetTransportFactory(func(maxInputs, maxOutputs int) (api.Transport, error) {
		return newFakeTransport(maxInputs, maxOutputs), nil
	})
	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	formatPort(n, api.DirInput, 0, 99)

	buffers := []api.ClientBuffer{
		{Handle: 1, Metas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 3}}},
		{Handle: 2, Metas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 5}}},
		{Handle: 3, Metas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 7}}},
	}

	if _, err := n.PortUseBuffers(api.DirInput, 0, buffers); err != nil {
		t.Fatalf("PortUseBuffers: %v", err)
	}
	if len(res.useBuffers) != 3 {
		t.Fatalf("expected 3 forwarded buffers, got %d", len(res.useBuffers))
	}
	for i, b := range res.useBuffers {
		if b.Handle != buffers[i].Handle {
			t.Fatalf("expected normalized order preserved, got handle %d at index %d", b.Handle, i)
		}
		if b.Metas[0].Kind != api.DataID || b.Metas[0].MemID == 0 {
			t.Fatalf("expected buffer %d's meta rewritten to a mem_id, got %+v", b.Handle, b.Metas[0])
		}
	}

	buffers2 := []api.ClientBuffer{
		{Handle: 10, Metas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 3}}},
		{Handle: 11}, // missing shared meta
		{Handle: 12, Metas: []api.BufferDatum{{Kind: api.DataMemFd, FD: 5}}},
	}
	if _, err := n.PortUseBuffers(api.DirInput, 0, buffers2); !errors.Is(err, api.ErrArgInvalid) {
		t.Fatalf("expected ErrArgInvalid even with a parallel executor, got %v", err)
	}
}
