// File: protocol/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Channel is the concrete api.ResourceChannel over a Unix domain socket
// connection, and Serve is the inbound dispatch loop driving
// api.ResourceInbound from the frames it reads.

package protocol

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/graph-proxy-node/api"
)

// Channel implements api.ResourceChannel over conn, and dispatches
// inbound frames to an api.ResourceInbound via Serve. One Channel serves
// exactly one client connection.
type Channel struct {
	conn *net.UnixConn
	log  *zap.Logger

	mu sync.Mutex // serializes concurrent SendX calls onto one connection
}

// NewChannel wraps an already-accepted Unix domain socket connection. A
// nil logger is replaced with a no-op one.
func NewChannel(conn *net.UnixConn, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{conn: conn, log: log}
}

func (c *Channel) send(op Opcode, seq uint32, body []byte, fds []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := sendFrame(c.conn, op, seq, body, fds); err != nil {
		return fmt.Errorf("protocol: send %v: %w", op, err)
	}
	return nil
}

func (c *Channel) SendUpdate(maxInputs, maxOutputs int, params []api.ParamBlob) error {
	w := &writer{}
	w.u32(uint32(maxInputs))
	w.u32(uint32(maxOutputs))
	putParamBlobs(w, params)
	return c.send(OpSendUpdate, 0, w.buf, nil)
}

func (c *Channel) SendPortUpdate(dir api.PortDirection, id uint32, changeMask uint32, params []api.ParamBlob, info api.PortInfo) error {
	w := &writer{}
	w.u32(uint32(dir))
	w.u32(id)
	w.u32(changeMask)
	putParamBlobs(w, params)
	putPortInfo(w, info)
	return c.send(OpSendPortUpdate, 0, w.buf, nil)
}

func (c *Channel) SendSetParam(seq uint32, objectID uint32, flags uint32, blob api.ParamBlob) error {
	w := &writer{}
	w.u32(objectID)
	w.u32(flags)
	putParamBlob(w, blob)
	return c.send(OpSendSetParam, seq, w.buf, nil)
}

func (c *Channel) SendPortSetParam(seq uint32, dir api.PortDirection, id uint32, blob api.ParamBlob) error {
	w := &writer{}
	w.u32(uint32(dir))
	w.u32(id)
	putParamBlob(w, blob)
	return c.send(OpSendPortSetParam, seq, w.buf, nil)
}

func (c *Channel) SendCommand(seq uint32, cmd api.Command) error {
	w := &writer{}
	putCommand(w, cmd)
	return c.send(OpSendCommand, seq, w.buf, nil)
}

func (c *Channel) SendPortUseBuffers(seq uint32, dir api.PortDirection, id uint32, buffers []api.ClientBuffer) error {
	w := &writer{}
	w.u32(uint32(dir))
	w.u32(id)
	fds := &fdCollector{}
	putClientBuffers(w, buffers, fds)
	return c.send(OpSendPortUseBuffers, seq, w.buf, fds.fds)
}

func (c *Channel) SendSetActive(active bool) error {
	w := &writer{}
	if active {
		w.u8(1)
	} else {
		w.u8(0)
	}
	return c.send(OpSendSetActive, 0, w.buf, nil)
}

// PublishTransport fd-passes the shared region's memfd, followed by
// wakeupUs then wakeupThem, in that fixed order; the client resolves
// them positionally, not by value. handle travels in the body so the
// client can correlate this transport with the resource it opened.
func (c *Channel) PublishTransport(handle api.ResourceHandle, memFD, wakeupUs, wakeupThem uintptr) error {
	w := &writer{}
	w.str(string(handle))
	return c.send(OpPublishTransport, 0, w.buf, []int{int(memFD), int(wakeupUs), int(wakeupThem)})
}

// Destroy closes the underlying connection. No wire message is sent:
// either side tearing down the socket is itself the signal.
func (c *Channel) Destroy() error {
	return c.conn.Close()
}

// Serve reads frames until the connection closes or the client sends
// OnDestroy, dispatching each to inbound. It returns nil on a clean
// close, and does not call inbound concurrently with itself — callers
// needing to run this alongside other work should invoke it from its own
// goroutine.
func (c *Channel) Serve(inbound api.ResourceInbound) error {
	for {
		env, fds, err := recvFrame(c.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("protocol: serve: %w", err)
		}
		if len(fds) > 0 {
			c.log.Warn("inbound envelope unexpectedly carried fds, ignoring", zap.Stringer("opcode", env.Op))
		}
		if err := c.dispatch(env, inbound); err != nil {
			c.log.Warn("dropping malformed inbound envelope", zap.Stringer("opcode", env.Op), zap.Error(err))
			continue
		}
		if env.Op == OpOnDestroy {
			return nil
		}
	}
}

func (c *Channel) dispatch(env envelope, inbound api.ResourceInbound) error {
	r := &reader{buf: env.Body}
	switch env.Op {
	case OpOnDone:
		res, err := r.u32()
		if err != nil {
			return err
		}
		inbound.OnDone(env.Seq, int32(res))

	case OpOnUpdate:
		changeMask, err := r.u32()
		if err != nil {
			return err
		}
		maxInputs, err := r.u32()
		if err != nil {
			return err
		}
		maxOutputs, err := r.u32()
		if err != nil {
			return err
		}
		params, err := getParamBlobs(r)
		if err != nil {
			return err
		}
		inbound.OnUpdate(changeMask, int(maxInputs), int(maxOutputs), params)

	case OpOnPortUpdate:
		dir, err := r.u32()
		if err != nil {
			return err
		}
		id, err := r.u32()
		if err != nil {
			return err
		}
		changeMask, err := r.u32()
		if err != nil {
			return err
		}
		params, err := getParamBlobs(r)
		if err != nil {
			return err
		}
		info, err := getPortInfo(r)
		if err != nil {
			return err
		}
		inbound.OnPortUpdate(api.PortDirection(dir), id, changeMask, params, info)

	case OpOnSetActive:
		active, err := r.u8()
		if err != nil {
			return err
		}
		inbound.OnSetActive(active != 0)

	case OpOnEvent:
		cmd, err := getCommand(r)
		if err != nil {
			return err
		}
		inbound.OnEvent(cmd)

	case OpOnDestroy:
		inbound.OnDestroy()

	default:
		return fmt.Errorf("opcode %v is not a valid inbound message", env.Op)
	}
	return nil
}
