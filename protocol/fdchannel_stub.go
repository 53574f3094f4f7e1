//go:build !linux
// +build !linux

// File: protocol/fdchannel_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// fd passing over AF_UNIX has no SCM_RIGHTS equivalent on this platform.

package protocol

import (
	"net"

	"github.com/momentics/graph-proxy-node/api"
)

func sendFrame(conn *net.UnixConn, op Opcode, seq uint32, body []byte, fds []int) error {
	if len(fds) > 0 {
		return api.ErrNotSupported
	}
	return writeEnvelope(conn, op, seq, body)
}

func recvFrame(conn *net.UnixConn) (envelope, []int, error) {
	env, err := readEnvelope(conn)
	return env, nil, err
}
