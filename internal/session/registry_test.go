package session_test

import (
	"testing"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/proxynode"
	"github.com/momentics/graph-proxy-node/internal/session"
)

func TestRegistryCreateGetDelete(t *testing.T) {
	reg := session.NewRegistry(4, nil)
	node := proxynode.New(proxynode.Config{MaxInputs: 4, MaxOutputs: 4})
	handle := api.ResourceHandle("peer-1")

	entry, err := reg.Create(handle, node)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.Handle() != handle || entry.Node() != node {
		t.Fatalf("entry does not reflect the created node")
	}

	again, err := reg.Create(handle, proxynode.New(proxynode.Config{}))
	if err != nil {
		t.Fatalf("Create (idempotent): %v", err)
	}
	if again.Node() != node {
		t.Fatalf("Create must return the existing entry for a known handle")
	}

	got, ok := reg.Get(handle)
	if !ok || got.Node() != node {
		t.Fatalf("Get: expected existing entry, got ok=%v", ok)
	}

	reg.Delete(handle)
	if _, ok := reg.Get(handle); ok {
		t.Fatalf("expected entry gone after Delete")
	}
	select {
	case <-got.Done():
	default:
		t.Fatalf("expected Done() closed after Delete")
	}
}

func TestRegistryRange(t *testing.T) {
	reg := session.NewRegistry(4, nil)
	handles := []api.ResourceHandle{"a", "b", "c"}
	for _, h := range handles {
		if _, err := reg.Create(h, proxynode.New(proxynode.Config{})); err != nil {
			t.Fatalf("Create(%s): %v", h, err)
		}
	}

	seen := map[api.ResourceHandle]bool{}
	reg.Range(func(e session.ProxyEntry) { seen[e.Handle()] = true })
	for _, h := range handles {
		if !seen[h] {
			t.Fatalf("Range did not visit %s", h)
		}
	}
}
