// File: server/types.go
// Package server wires a proxynode.ProxyNode, a protocol.Channel, and the
// shared-memory transport into one running process listening on a Unix
// domain socket, one session per accepted connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"go.uber.org/zap"
)

// Config holds every parameter needed to start a Server.
type Config struct {
	// ListenPath is the Unix domain socket path accepted connections
	// arrive on (the control channel each client resource uses).
	ListenPath string

	// MaxInputs/MaxOutputs bound the node's port arrays and size the
	// shared transport's PortIO tables. Zero means the node accepts
	// whatever max_inputs/max_outputs the client's first completion
	// reports.
	MaxInputs, MaxOutputs int

	// RingDataSize is the transport ring's byte capacity; must be a
	// power of two.
	RingDataSize uint32

	// ClientReuse mirrors proxynode.Config.ClientReuse.
	ClientReuse bool

	// FormatObjectID mirrors proxynode.Config.FormatObjectID.
	FormatObjectID uint32

	// BodyPoolCapacity/BodyPoolSize size the per-session body pool
	// staging ring message bytes; zero disables pooling (plain alloc).
	BodyPoolCapacity, BodyPoolSize int

	// RegistryShards sizes the session registry's shard count.
	RegistryShards int

	// BufferNormalizeWorkers sizes the shared worker pool PortUseBuffers
	// fans per-buffer normalization out to. Zero (or one) keeps
	// normalization synchronous on the calling control-thread goroutine.
	BufferNormalizeWorkers int

	// ShutdownTimeout bounds how long Run waits for in-flight sessions
	// to drain before returning; zero or less waits without limit.
	ShutdownTimeout time.Duration

	// NUMANode, if >= 0, pins the OS thread of the goroutine calling
	// Server.Run via api.Affinity. MainLoop.Run executes on a separate
	// goroutine, which is not pinned.
	NUMANode int

	Logger *zap.Logger
}

// DefaultConfig returns sane defaults for local testing; production
// deployments should override ListenPath at minimum.
func DefaultConfig() *Config {
	return &Config{
		ListenPath:             "/run/graph-proxy-node.sock",
		RingDataSize:           1 << 16,
		ClientReuse:            false,
		BodyPoolCapacity:       32,
		BodyPoolSize:           4096,
		RegistryShards:         16,
		BufferNormalizeWorkers: 4,
		ShutdownTimeout:        30 * time.Second,
		NUMANode:               -1,
	}
}
