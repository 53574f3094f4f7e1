//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP (I/O Completion Port) reactor implementation and factory.

package reactor

import (
	"errors"

	"github.com/momentics/graph-proxy-node/api"
	"golang.org/x/sys/windows"
)

// windowsReactor is an IOCP-based event reactor.
type windowsReactor struct {
	iocp windows.Handle
}

// NewReactor constructs a new platform-specific api.Reactor for Windows.
func NewReactor() (api.Reactor, error) {
	port, err := windows.CreateIoCompletionPort(
		windows.InvalidHandle,
		0,
		0,
		0,
	)
	if err != nil {
		return nil, err
	}
	return &windowsReactor{
		iocp: port,
	}, nil
}

// Register associates a handle with IOCP. userData becomes the
// completion key GetQueuedCompletionStatus reports back for this
// handle; callers pass fd itself so Wait can report it directly.
func (r *windowsReactor) Register(handle uintptr, userData uintptr) error {
	h := windows.Handle(handle)
	_, err := windows.CreateIoCompletionPort(
		h,
		r.iocp,
		userData,
		0,
	)
	return err
}

// Unregister is a no-op: IOCP offers no way to dissociate a handle
// short of closing it, which is the caller's responsibility.
func (r *windowsReactor) Unregister(fd uintptr) error {
	return nil
}

// Wait blocks for IO events and fills output slice.
func (r *windowsReactor) Wait(events []api.Event) (int, error) {
	if len(events) == 0 {
		return 0, errors.New("reactor: empty event buffer")
	}

	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped

	err := windows.GetQueuedCompletionStatus(r.iocp, &bytes, &key, &overlapped, windows.INFINITE)
	if err != nil {
		return 0, err
	}
	events[0] = api.Event{
		Fd:       key,
		UserData: key,
	}
	return 1, nil
}

// Close closes the IOCP handle.
func (r *windowsReactor) Close() error {
	return windows.CloseHandle(r.iocp)
}
