// File: internal/proxynode/retryqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// retryQueue holds ring messages that AddMessage rejected with
// ErrTransportFull, so the data loop can retry them at the start of the
// next cycle instead of blocking the hot path. eapache/queue backs it
// with a growable ring, which fits a workload that is almost always
// empty and only briefly holds a handful of entries under transport
// backpressure.

package proxynode

import (
	"github.com/eapache/queue"

	"github.com/momentics/graph-proxy-node/api"
)

type outboundMsg struct {
	hdr  api.MessageHeader
	body []byte
}

type retryQueue struct {
	q *queue.Queue
}

func newRetryQueue() *retryQueue {
	return &retryQueue{q: queue.New()}
}

func (r *retryQueue) push(hdr api.MessageHeader, body []byte) {
	r.q.Add(outboundMsg{hdr: hdr, body: body})
}

func (r *retryQueue) empty() bool {
	return r.q.Length() == 0
}

// drain attempts to flush every queued message through send, in FIFO
// order, stopping at the first one send still rejects (so ordering
// between the retry queue and newly produced messages is preserved).
func (r *retryQueue) drain(send func(api.MessageHeader, []byte) error) error {
	for r.q.Length() > 0 {
		m := r.q.Peek().(outboundMsg)
		if err := send(m.hdr, m.body); err != nil {
			if err == api.ErrTransportFull {
				return nil
			}
			return err
		}
		r.q.Remove()
	}
	return nil
}
