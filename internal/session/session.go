// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A live proxy node keyed by its resource handle: the registry entry
// tying together the node, its ambient context, and its cancellation
// signal across the node's lifetime.

package session

import (
	"sync"
	"time"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/proxynode"
)

// proxyEntryImpl holds one proxy node's registry-level state: its
// resource handle, its node, a propagation-aware context, and the
// cancellation signal the owning server fires on teardown.
type proxyEntryImpl struct {
	handle   api.ResourceHandle
	node     *proxynode.ProxyNode
	ctx      api.Context
	done     chan struct{}
	once     sync.Once
	deadline time.Time
}

func newProxyEntry(handle api.ResourceHandle, node *proxynode.ProxyNode, ctxFactory api.ContextFactory) *proxyEntryImpl {
	var ctx api.Context
	if ctxFactory != nil {
		ctx = ctxFactory.NewContext()
	} else {
		ctx = NewContextStore()
	}
	return &proxyEntryImpl{
		handle: handle,
		node:   node,
		ctx:    ctx,
		done:   make(chan struct{}),
	}
}

// Handle returns the resource handle identifying this entry.
func (s *proxyEntryImpl) Handle() api.ResourceHandle {
	return s.handle
}

// Node returns the proxy node this entry owns.
func (s *proxyEntryImpl) Node() *proxynode.ProxyNode {
	return s.node
}

// Context returns the underlying api.Context.
func (s *proxyEntryImpl) Context() api.Context {
	return s.ctx
}

// Cancel signals teardown; idempotent.
func (s *proxyEntryImpl) Cancel() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Done returns a channel closed upon cancellation.
func (s *proxyEntryImpl) Done() <-chan struct{} {
	return s.done
}

// Deadline returns the entry's expiration if one was set.
func (s *proxyEntryImpl) Deadline() (time.Time, bool) {
	if s.deadline.IsZero() {
		return time.Time{}, false
	}
	return s.deadline, true
}

// WithDeadline sets an absolute deadline for the entry.
func (s *proxyEntryImpl) WithDeadline(t time.Time) {
	s.deadline = t
}
