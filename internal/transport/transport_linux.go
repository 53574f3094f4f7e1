// File: internal/transport/transport_linux.go
//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux wakeupPair: a memfd-backed mmap region plus two eventfds. The
// creating side allocates the memfd and both eventfds; the attaching side
// receives all three descriptors out of band (fd-passed over a unix
// domain socket by the control channel) and maps/opens them here.

package transport

import (
	"fmt"

	"github.com/momentics/graph-proxy-node/api"
	"golang.org/x/sys/unix"
)

type linuxWakeupPair struct {
	memFD   int
	ourFD   int
	peerFD  int
	region  []byte
	ownsMem bool
}

// newWakeupPair creates a fresh memfd of the given size and two eventfds,
// for the side that originates the mapping.
func newWakeupPair(size int) (wakeupPair, error) {
	memFD, err := unix.MemfdCreate("graph-proxy-node-transport", 0)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(memFD, int64(size)); err != nil {
		unix.Close(memFD)
		return nil, fmt.Errorf("ftruncate: %w", err)
	}
	region, err := unix.Mmap(memFD, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(memFD)
		return nil, fmt.Errorf("mmap: %w", err)
	}
	ourFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Munmap(region)
		unix.Close(memFD)
		return nil, fmt.Errorf("eventfd (ours): %w", err)
	}
	peerFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(ourFD)
		unix.Munmap(region)
		unix.Close(memFD)
		return nil, fmt.Errorf("eventfd (peer): %w", err)
	}
	return &linuxWakeupPair{memFD: memFD, ourFD: ourFD, peerFD: peerFD, region: region, ownsMem: true}, nil
}

// openWakeupPair attaches to descriptors handed to this process by the
// peer (typically received via SCM_RIGHTS over a unix domain socket).
func openWakeupPair(memFD, ourFD, peerFD, size int) (wakeupPair, error) {
	region, err := unix.Mmap(memFD, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &linuxWakeupPair{memFD: memFD, ourFD: ourFD, peerFD: peerFD, region: region}, nil
}

func (w *linuxWakeupPair) Region() []byte  { return w.region }
func (w *linuxWakeupPair) MemFD() uintptr  { return uintptr(w.memFD) }
func (w *linuxWakeupPair) OurFD() uintptr  { return uintptr(w.ourFD) }
func (w *linuxWakeupPair) PeerFD() uintptr { return uintptr(w.peerFD) }

// Signal adds 1 to the peer's eventfd counter, waking its poller.
func (w *linuxWakeupPair) Signal() error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(w.peerFD, buf[:])
	if err != nil {
		if err == unix.EBADF || err == unix.EPIPE {
			return fmt.Errorf("%w: eventfd write: %v", api.ErrPeerDead, err)
		}
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Drain reads and discards our eventfd's counter.
func (w *linuxWakeupPair) Drain() error {
	var buf [8]byte
	_, err := unix.Read(w.ourFD, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return fmt.Errorf("eventfd read: %w", err)
	}
	return nil
}

func (w *linuxWakeupPair) Close() error {
	var firstErr error
	if err := unix.Munmap(w.region); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := unix.Close(w.ourFD); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := unix.Close(w.peerFD); err != nil && firstErr == nil {
		firstErr = err
	}
	if w.ownsMem {
		if err := unix.Close(w.memFD); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
