// File: server/server_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerRunAcceptsAndShutsDownCleanly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenPath = filepath.Join(t.TempDir(), "proxy.sock")

	s, err := New(*cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Wait for the socket to appear before dialing.
	require.Eventually(t, func() bool {
		_, err := net.Dial("unix", cfg.ListenPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return s.SessionCount() >= 0 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	require.NoError(t, s.Close())
}

func TestDefaultConfigIsUsable(t *testing.T) {
	cfg := DefaultConfig()
	require.NotEmpty(t, cfg.ListenPath)
	require.Greater(t, cfg.RingDataSize, uint32(0))
	require.Greater(t, cfg.ShutdownTimeout, time.Duration(0))
	require.Greater(t, cfg.BufferNormalizeWorkers, 0)
}

// TestBufferNormalizeWorkersControlsExecutorWiring covers review comment #7:
// BufferNormalizeWorkers>1 must build a real executor.Executor the server
// closes on shutdown, while <=1 leaves normalization synchronous with no
// executor to close.
func TestBufferNormalizeWorkersControlsExecutorWiring(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenPath = filepath.Join(t.TempDir(), "proxy.sock")
	cfg.BufferNormalizeWorkers = 4

	s, err := New(*cfg)
	require.NoError(t, err)
	require.NotNil(t, s.executor)
	require.NoError(t, s.Close())

	cfg2 := DefaultConfig()
	cfg2.ListenPath = filepath.Join(t.TempDir(), "proxy2.sock")
	cfg2.BufferNormalizeWorkers = 1

	s2, err := New(*cfg2)
	require.NoError(t, err)
	require.Nil(t, s2.executor)
	require.NoError(t, s2.Close())
}
