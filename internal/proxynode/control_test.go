// File: internal/proxynode/control_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package proxynode_test

import (
	"testing"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/proxynode"
)

// TestOnDestroyTearsDownTransportBeforeDestroying covers review comment #3:
// OnTransportTornDown must fire before Transport.Destroy(), so the owner can
// unregister the wakeup fd from its MainLoop before the region is unmapped,
// mirroring client_node_resource_destroy running ahead of node_free in
// client-node.c.
func TestOnDestroyTearsDownTransportBeforeDestroying(t *testing.T) {
	n, _, ft := newTestNode(t, 4, 4)
	n.OnDone(0, 0) // builds the transport

	var order []string
	n.SetHooks(proxynode.Hooks{
		OnTransportTornDown: func(api.Transport) {
			order = append(order, "torn_down")
			if ft.closed {
				t.Fatalf("expected transport not yet destroyed when OnTransportTornDown fires")
			}
		},
		OnDestroy: func() { order = append(order, "destroy") },
	})

	n.OnDestroy()

	if len(order) != 2 || order[0] != "torn_down" || order[1] != "destroy" {
		t.Fatalf("expected [torn_down destroy] order, got %v", order)
	}
	if !ft.closed {
		t.Fatalf("expected transport destroyed after OnDestroy")
	}
}

// TestOnPortUpdateRemovesActivePortUnconditionally covers review comment #2:
// change_mask==0 must tear down a port regardless of its Active state,
// mirroring do_uninit_port's unconditional CHECK_PORT teardown.
func TestOnPortUpdateRemovesActivePortUnconditionally(t *testing.T) {
	n, _, _ := newTestNode(t, 4, 4)
	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	formatPort(n, api.DirInput, 0, 99)

	n.OnPortUpdate(api.DirInput, 0, 0, nil, api.PortInfo{})

	out := make([]uint32, 4)
	if got := n.GetPortIDs(api.DirInput, out); got != 0 {
		t.Fatalf("expected port removed after change_mask==0, got %v", out[:got])
	}
}
