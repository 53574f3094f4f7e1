// File: internal/transport/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral shared-memory transport. The mapped region and wakeup
// file descriptors are obtained from a wakeupPair implementation selected
// per build target (transport_linux.go / transport_stub.go); everything
// above that — the message ring codec, PortIO arrays, pending-message
// bookkeeping — is common.

package transport

import (
	"fmt"
	"sync"

	"github.com/momentics/graph-proxy-node/api"
)

// wakeupPair is the OS-specific half of the transport: the mapped region
// bytes and the pair of eventfd-like descriptors used to signal the peer
// and to be signaled by it.
type wakeupPair interface {
	Region() []byte
	MemFD() uintptr
	OurFD() uintptr
	PeerFD() uintptr
	Signal() error
	Drain() error
	Close() error
}

// New builds a Transport over a freshly created shared-memory region and
// wakeup fd pair, for the side that owns the mapping (normally the
// server/proxy side). numInputs/numOutputs size the PortIO arrays;
// ringDataSize is the message ring's byte capacity and must be a power
// of two.
func New(numInputs, numOutputs int, ringDataSize uint32) (api.Transport, error) {
	wp, err := newWakeupPair(int(ringSizeToRegionSize(numInputs, numOutputs, ringDataSize)))
	if err != nil {
		return nil, fmt.Errorf("transport: create wakeup pair: %w", err)
	}
	reg, err := initRegion(wp.Region(), numInputs, numOutputs, ringDataSize)
	if err != nil {
		wp.Close()
		return nil, err
	}
	return &shmTransport{wakeup: wp, region: reg, ring: newMessageRing(reg.ring)}, nil
}

// Open attaches to a region the peer already created (normally the
// client side), addressed by the mapping's file descriptor and the two
// wakeup descriptors agreed out of band (typically fd-passed over a unix
// domain socket during connection setup).
func Open(memFD int, ourWakeupFD, peerWakeupFD int, numInputs, numOutputs int, ringDataSize uint32) (api.Transport, error) {
	wp, err := openWakeupPair(memFD, ourWakeupFD, peerWakeupFD, int(ringSizeToRegionSize(numInputs, numOutputs, ringDataSize)))
	if err != nil {
		return nil, fmt.Errorf("transport: open wakeup pair: %w", err)
	}
	reg, err := openRegion(wp.Region(), numInputs, numOutputs, ringDataSize)
	if err != nil {
		wp.Close()
		return nil, err
	}
	if err := reg.validate(); err != nil {
		wp.Close()
		return nil, err
	}
	return &shmTransport{wakeup: wp, region: reg, ring: newMessageRing(reg.ring)}, nil
}

func ringSizeToRegionSize(numInputs, numOutputs int, ringDataSize uint32) uint32 {
	return newRegionLayout(numInputs, numOutputs, ringDataSize).totalSize
}

// shmTransport is the common api.Transport implementation, shared by both
// the creating and the attaching peer.
type shmTransport struct {
	mu      sync.Mutex
	wakeup  wakeupPair
	region  *region
	ring    *messageRing
	pending *api.MessageHeader
	closed  bool
}

func (t *shmTransport) AddMessage(hdr api.MessageHeader, body []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return api.ErrTransportClosed
	}
	return t.ring.addMessage(hdr, body)
}

func (t *shmTransport) NextMessage() (api.MessageHeader, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return api.MessageHeader{}, false, api.ErrTransportClosed
	}
	if t.pending != nil {
		return *t.pending, true, nil
	}
	hdr, ok, err := t.ring.peekHeader()
	if err != nil || !ok {
		return api.MessageHeader{}, false, err
	}
	t.pending = &hdr
	return hdr, true, nil
}

func (t *shmTransport) ParseMessage(dst []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return api.ErrTransportClosed
	}
	if t.pending == nil {
		return fmt.Errorf("%w: no pending message", api.ErrNotReady)
	}
	hdr := *t.pending
	if err := t.ring.takeBody(hdr, dst); err != nil {
		return err
	}
	t.pending = nil
	return nil
}

func (t *shmTransport) Inputs() []api.PortIO  { return t.region.inputs() }
func (t *shmTransport) Outputs() []api.PortIO { return t.region.outputs() }

func (t *shmTransport) SetInput(portIndex int, io api.PortIO) error {
	t.region.writeSlot(api.DirInput, portIndex, io)
	return nil
}

func (t *shmTransport) SetOutput(portIndex int, io api.PortIO) error {
	t.region.writeSlot(api.DirOutput, portIndex, io)
	return nil
}

func (t *shmTransport) SignalPeer() error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return api.ErrTransportClosed
	}
	return t.wakeup.Signal()
}

func (t *shmTransport) MemFD() uintptr         { return t.wakeup.MemFD() }
func (t *shmTransport) OurWakeupFD() uintptr  { return t.wakeup.OurFD() }
func (t *shmTransport) PeerWakeupFD() uintptr { return t.wakeup.PeerFD() }

func (t *shmTransport) DrainWakeup() error {
	return t.wakeup.Drain()
}

func (t *shmTransport) Destroy() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.wakeup.Close()
}
