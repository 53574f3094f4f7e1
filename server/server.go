// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/graph-proxy-node/adapters"
	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/bodypool"
	"github.com/momentics/graph-proxy-node/internal/proxynode"
	"github.com/momentics/graph-proxy-node/internal/session"
	"github.com/momentics/graph-proxy-node/internal/transport"
	"github.com/momentics/graph-proxy-node/protocol"
	"github.com/momentics/graph-proxy-node/reactor"
)

// Server accepts client connections on a Unix domain socket, one
// proxynode.ProxyNode per connection, and drives every session's
// transport wakeup fd through a single shared data-loop MainLoop.
type Server struct {
	cfg Config
	log *zap.Logger

	registry session.Registry
	mainLoop api.MainLoop
	affinity api.Affinity
	executor api.Executor

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// New builds a Server from cfg. It does not start listening; call Run.
func New(cfg Config) (*Server, error) {
	if cfg.RegistryShards <= 0 {
		cfg.RegistryShards = 16
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ml, err := reactor.NewMainLoop()
	if err != nil {
		return nil, fmt.Errorf("server: build main loop: %w", err)
	}

	var exec api.Executor
	if cfg.BufferNormalizeWorkers > 1 {
		exec = adapters.NewExecutorAdapter(cfg.BufferNormalizeWorkers, cfg.NUMANode)
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		registry: session.NewRegistry(cfg.RegistryShards, adapters.NewContextAdapter()),
		mainLoop: ml,
		affinity: adapters.NewAffinityAdapter(),
		executor: exec,
	}, nil
}

// Run listens on cfg.ListenPath, accepting sessions until ctx is
// cancelled, then drains in-flight sessions and returns. Run starts the
// data loop: MainLoop.Run executes on its own goroutine inside the
// errgroup, alongside the accept loop and the shutdown watcher.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.NUMANode >= 0 {
		if err := s.affinity.Pin(-1, s.cfg.NUMANode); err != nil {
			s.log.Warn("affinity pin failed", zap.Error(err))
		}
		defer s.affinity.Unpin()
	}

	ln, err := net.Listen("unix", s.cfg.ListenPath)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.mainLoop.Run()
	})

	group.Go(func() error {
		<-gctx.Done()
		s.mainLoop.Stop()
		return ln.Close()
	})

	group.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})

	err = group.Wait()
	s.waitSessionsDrain()
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// waitSessionsDrain blocks for in-flight sessions to finish, up to
// cfg.ShutdownTimeout; sessions still running past the deadline are
// abandoned (their goroutines keep running but Run no longer waits).
func (s *Server) waitSessionsDrain() {
	if s.cfg.ShutdownTimeout <= 0 {
		s.wg.Wait()
		return
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.log.Warn("shutdown timed out waiting for sessions to drain")
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleSession(unixConn)
		}()
	}
}

// handleSession runs one client's resource channel to completion: it
// registers the session, serves the control channel on this goroutine,
// and tears everything down once the channel returns (peer EOF, OnDestroy,
// or a protocol error).
func (s *Server) handleSession(conn *net.UnixConn) {
	handle := api.ResourceHandle(uuid.NewString())
	log := s.log.With(zap.String("handle", string(handle)))

	channel := protocol.NewChannel(conn, log)

	var pool api.BytePool
	if s.cfg.BodyPoolCapacity > 0 {
		pool = bodypool.New(s.cfg.BodyPoolCapacity, s.cfg.BodyPoolSize)
	}

	node := proxynode.New(proxynode.Config{
		Handle:         handle,
		MaxInputs:      s.cfg.MaxInputs,
		MaxOutputs:     s.cfg.MaxOutputs,
		ClientReuse:    s.cfg.ClientReuse,
		FormatObjectID: s.cfg.FormatObjectID,
		Resource:       channel,
		BodyPool:       pool,
		Logger:         log,
		Executor:       s.executor,
	})
	node.SetTransportFactory(func(maxInputs, maxOutputs int) (api.Transport, error) {
		return transport.New(maxInputs, maxOutputs, s.cfg.RingDataSize)
	})

	entry, err := s.registry.Create(handle, node)
	if err != nil {
		log.Error("session registration failed", zap.Error(err))
		conn.Close()
		return
	}

	node.SetHooks(proxynode.Hooks{
		OnTransportBuilt: func(t api.Transport) error {
			return s.mainLoop.AddDataSource(t.OurWakeupFD(), api.FDReadable, func(uintptr, api.FDEventMask) {
				if err := node.OnTransportReadable(); err != nil {
					log.Warn("transport dispatch error", zap.Error(err))
				}
			})
		},
		OnTransportTornDown: func(t api.Transport) {
			if err := s.mainLoop.RemoveDataSource(t.OurWakeupFD()); err != nil {
				log.Warn("remove data source failed", zap.Error(err))
			}
		},
		OnDestroy: func() {
			s.registry.Delete(handle)
		},
	})

	log.Info("session started")
	if err := channel.Serve(node); err != nil {
		log.Warn("session channel closed with error", zap.Error(err))
	}
	entry.Cancel()
	s.registry.Delete(handle)
	log.Info("session ended")
}

// SessionCount returns the number of currently registered sessions.
func (s *Server) SessionCount() int {
	n := 0
	s.registry.Range(func(session.ProxyEntry) { n++ })
	return n
}

// Close tears down the main loop backend and the buffer-normalization
// worker pool, if one was configured. Call after Run returns.
func (s *Server) Close() error {
	if exec, ok := s.executor.(interface{ Close() }); ok {
		exec.Close()
	}
	if ml, ok := s.mainLoop.(interface{ Close() error }); ok {
		return ml.Close()
	}
	return nil
}
