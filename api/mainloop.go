// File: api/mainloop.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MainLoop is the external collaborator that multiplexes readiness on
// file descriptors for the data-loop thread (§6). The proxy node registers
// the transport's wakeup fd here once the transport is built, and
// unregisters it before the transport is torn down.

package api

// FDEventMask is a bitmask of the readiness conditions MainLoop delivers.
type FDEventMask int

const (
	FDReadable FDEventMask = 1 << iota
	FDWritable
	FDError
	FDHangup
)

// FDCallback is invoked on the data-loop thread when a registered fd
// becomes ready. HUP or ERR is fatal to the owning proxy (§6).
type FDCallback func(fd uintptr, mask FDEventMask)

// MainLoop adds/removes fd-based data sources and delivers readiness to a
// callback on the data-loop thread.
type MainLoop interface {
	// AddDataSource registers fd for the given mask; cb fires on readiness.
	AddDataSource(fd uintptr, mask FDEventMask, cb FDCallback) error

	// RemoveDataSource unregisters fd. Safe to call even if fd was never
	// registered.
	RemoveDataSource(fd uintptr) error

	// Run blocks, dispatching readiness callbacks, until Stop is called.
	Run() error

	// Stop requests the loop to return from Run.
	Stop()
}
