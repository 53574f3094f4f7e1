// File: internal/proxynode/sequence_broker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SequenceBroker correlates an async control operation's sequence number
// with the ResourceInbound.OnDone callback that eventually resolves it.
// set_param, send_command, port_set_param, and port_use_buffers all
// return Result.Pending=true with a Seq the caller must hold onto; when
// the resource channel later delivers done(seq, res), the broker looks
// up and fires the matching continuation exactly once.

package proxynode

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/graph-proxy-node/api"
)

type pendingOp struct {
	resolve func(res any, err error)
}

// SequenceBroker is safe for concurrent use: set_param et al. run on the
// control thread, while done() arrives from the resource channel's
// callback, which may run on a different goroutine.
type SequenceBroker struct {
	nextSeq atomic.Uint32
	mu      sync.Mutex
	pending map[uint32]*pendingOp
}

// NewSequenceBroker builds an empty broker.
func NewSequenceBroker() *SequenceBroker {
	return &SequenceBroker{pending: make(map[uint32]*pendingOp)}
}

// Begin allocates a fresh sequence number and registers resolve as its
// continuation, returning the seq to embed in the pending Result.
func (b *SequenceBroker) Begin(resolve func(res any, err error)) uint32 {
	seq := b.nextSeq.Add(1)
	b.mu.Lock()
	b.pending[seq] = &pendingOp{resolve: resolve}
	b.mu.Unlock()
	return seq
}

// Done resolves the pending operation for seq with a non-error result,
// firing its continuation exactly once. A seq with no matching pending
// entry is reported as an error rather than silently ignored: it
// indicates either a duplicate completion or a protocol desync with the
// peer.
func (b *SequenceBroker) Done(seq uint32, res any) error {
	return b.complete(seq, res, nil)
}

// Fail resolves the pending operation for seq with an error, e.g. when
// the peer reports a non-zero result code for the original request.
func (b *SequenceBroker) Fail(seq uint32, err error) error {
	return b.complete(seq, nil, err)
}

func (b *SequenceBroker) complete(seq uint32, res any, err error) error {
	b.mu.Lock()
	op, ok := b.pending[seq]
	if ok {
		delete(b.pending, seq)
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no pending operation for seq %d", api.ErrNotFound, seq)
	}
	op.resolve(res, err)
	return nil
}

// Cancel drops a pending entry without resolving it, e.g. when the
// transport that would have delivered its done() is torn down first.
func (b *SequenceBroker) Cancel(seq uint32) {
	b.mu.Lock()
	delete(b.pending, seq)
	b.mu.Unlock()
}

// Outstanding returns the number of operations still awaiting done().
func (b *SequenceBroker) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
