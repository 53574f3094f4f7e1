// File: reactor/mainloop.go
// Package reactor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// mainLoop adapts one of the platform Reactor backends (epoll, IOCP) to
// api.MainLoop's callback-per-fd contract: it owns the fd -> callback
// table and the blocking dispatch loop the data thread runs.

package reactor

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/momentics/graph-proxy-node/api"
)

const maxBatchEvents = 128

type dataSource struct {
	mask api.FDEventMask
	cb   api.FDCallback
}

// mainLoop implements api.MainLoop over a platform api.Reactor backend.
type mainLoop struct {
	backend api.Reactor

	mu      sync.Mutex
	sources map[uintptr]dataSource

	stopR, stopW *os.File
	stopped      atomic.Bool
}

// NewMainLoop builds a MainLoop using this platform's default Reactor
// backend, with an internal pipe registered for Stop() signaling.
func NewMainLoop() (api.MainLoop, error) {
	backend, err := NewReactor()
	if err != nil {
		return nil, fmt.Errorf("reactor: %w", err)
	}
	r, w, err := os.Pipe()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("stop pipe: %w", err)
	}
	stopFd := r.Fd()
	if err := backend.Register(stopFd, stopFd); err != nil {
		backend.Close()
		r.Close()
		w.Close()
		return nil, fmt.Errorf("register stop pipe: %w", err)
	}
	return &mainLoop{
		backend: backend,
		sources: make(map[uintptr]dataSource),
		stopR:   r,
		stopW:   w,
	}, nil
}

// AddDataSource registers fd with the backend and records its callback.
// The requested mask is accepted for interface compliance; this
// implementation always reports FDReadable, since api.Event carries no
// readable/writable distinction and every fd this proxy polls (an
// eventfd wakeup counter) is only ever consumed for readability.
func (m *mainLoop) AddDataSource(fd uintptr, mask api.FDEventMask, cb api.FDCallback) error {
	if err := m.backend.Register(fd, fd); err != nil {
		return err
	}
	m.mu.Lock()
	m.sources[fd] = dataSource{mask: mask, cb: cb}
	m.mu.Unlock()
	return nil
}

// RemoveDataSource unregisters fd from the backend and drops its entry.
func (m *mainLoop) RemoveDataSource(fd uintptr) error {
	m.mu.Lock()
	delete(m.sources, fd)
	m.mu.Unlock()
	return m.backend.Unregister(fd)
}

// Run blocks, dispatching readiness callbacks, until Stop is called.
func (m *mainLoop) Run() error {
	events := make([]api.Event, maxBatchEvents)
	stopFd := m.stopR.Fd()
	for {
		n, err := m.backend.Wait(events)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			fd := events[i].Fd
			if fd == stopFd {
				var buf [1]byte
				m.stopR.Read(buf[:])
				return nil
			}
			m.mu.Lock()
			src, ok := m.sources[fd]
			m.mu.Unlock()
			if !ok {
				continue
			}
			src.cb(fd, api.FDReadable)
		}
	}
}

// Stop requests the loop to return from Run. Safe to call more than
// once and from a different goroutine than Run.
func (m *mainLoop) Stop() {
	if m.stopped.CompareAndSwap(false, true) {
		m.stopW.Write([]byte{1})
	}
}

// Close tears down the backend and the stop pipe. Not part of
// api.MainLoop; callers that built the loop via NewMainLoop should call
// this after Run returns.
func (m *mainLoop) Close() error {
	m.stopR.Close()
	m.stopW.Close()
	return m.backend.Close()
}
