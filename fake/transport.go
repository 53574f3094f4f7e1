// File: fake/transport.go
// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport is an in-memory api.Transport double. It generalizes the
// fakeTransport shape proven out inline in internal/proxynode's tests:
// plain slices and a FIFO queue instead of real shared memory, every
// field inspectable, every failure mode injectable.

package fake

import (
	"errors"
	"sync"

	"github.com/momentics/graph-proxy-node/api"
)

type queuedMsg struct {
	hdr  api.MessageHeader
	body []byte
}

// Transport is a fake api.Transport backed by slices and a message queue.
type Transport struct {
	mu sync.Mutex

	inputs, outputs []api.PortIO
	queue           []queuedMsg

	Signals int
	Drains  int
	Closed  bool

	// Full, when set, makes AddMessage return api.ErrTransportFull.
	Full bool

	memFD, ourWakeupFD, peerWakeupFD uintptr
}

// NewTransport builds a fake transport with nIn inputs and nOut outputs.
func NewTransport(nIn, nOut int) *Transport {
	return &Transport{
		inputs:       make([]api.PortIO, nIn),
		outputs:      make([]api.PortIO, nOut),
		ourWakeupFD:  1,
		peerWakeupFD: 2,
	}
}

// SetFDs overrides the fds this fake reports, for tests asserting on
// PublishTransport's exact fd ordering.
func (f *Transport) SetFDs(memFD, ourWakeupFD, peerWakeupFD uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memFD, f.ourWakeupFD, f.peerWakeupFD = memFD, ourWakeupFD, peerWakeupFD
}

func (f *Transport) AddMessage(hdr api.MessageHeader, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return api.ErrTransportClosed
	}
	if f.Full {
		return api.ErrTransportFull
	}
	bodyCopy := append([]byte(nil), body...)
	f.queue = append(f.queue, queuedMsg{hdr: hdr, body: bodyCopy})
	return nil
}

func (f *Transport) NextMessage() (api.MessageHeader, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return api.MessageHeader{}, false, nil
	}
	return f.queue[0].hdr, true, nil
}

func (f *Transport) ParseMessage(dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return errors.New("fake transport: no pending message")
	}
	copy(dst, f.queue[0].body)
	f.queue = f.queue[1:]
	return nil
}

func (f *Transport) Inputs() []api.PortIO {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.PortIO(nil), f.inputs...)
}

func (f *Transport) Outputs() []api.PortIO {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.PortIO(nil), f.outputs...)
}

func (f *Transport) SetInput(i int, io api.PortIO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.inputs) {
		return errors.New("fake transport: input index out of range")
	}
	f.inputs[i] = io
	return nil
}

func (f *Transport) SetOutput(i int, io api.PortIO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.outputs) {
		return errors.New("fake transport: output index out of range")
	}
	f.outputs[i] = io
	return nil
}

func (f *Transport) SignalPeer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Signals++
	return nil
}

func (f *Transport) MemFD() uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memFD
}

func (f *Transport) OurWakeupFD() uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ourWakeupFD
}

func (f *Transport) PeerWakeupFD() uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peerWakeupFD
}

func (f *Transport) DrainWakeup() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Drains++
	return nil
}

func (f *Transport) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Pending returns the number of messages currently queued, for test
// assertions without reaching into internals.
func (f *Transport) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

var _ api.Transport = (*Transport)(nil)
