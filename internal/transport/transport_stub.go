// File: internal/transport/transport_stub.go
//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The shared-memory transport's wire format (region.go, message_ring.go)
// is platform neutral, but memfd/eventfd are Linux-only primitives. On
// other platforms the wakeup pair is unavailable; callers needing a
// transport on such a build should use the fake.Transport test double
// instead.

package transport

import "github.com/momentics/graph-proxy-node/api"

func newWakeupPair(size int) (wakeupPair, error) {
	return nil, api.ErrNotSupported
}

func openWakeupPair(memFD, ourFD, peerFD, size int) (wakeupPair, error) {
	return nil, api.ErrNotSupported
}
