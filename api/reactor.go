// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the low-level, poll-mode Reactor contract (epoll/IOCP/stub).
// MainLoop (api/mainloop.go) is the higher-level, callback-based contract
// the proxy node actually depends on; reactor.MainLoop adapts one of these
// backends to it.

package api

// Event encapsulates the result of an OS-level readiness notification
type Event struct {
	Fd       uintptr // file descriptor or system handle
	UserData uintptr // opaque application value, usually a pointer-to-connection/context
}

// Reactor defines the common interface for an event-loop that dispatches I/O events
// regardless of specific polling mechanism used.
type Reactor interface {
	// Register must associate a socket/file handle with the event loop
	Register(fd uintptr, userData uintptr) error

	// Unregister removes fd from the event loop. On IOCP, where an
	// association cannot be undone short of closing the handle, this is
	// a no-op returning nil.
	Unregister(fd uintptr) error

	// Wait must block and fill events into output buffer when IO is ready
	Wait(events []Event) (int, error)

	// Close must cleanup the internal poller backend
	Close() error
}
