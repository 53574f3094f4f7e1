//go:build linux
// +build linux

// File: protocol/fdchannel_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SCM_RIGHTS fd passing over the resource channel's Unix domain socket.
// Every envelope is preceded by a one-byte marker message carrying zero
// or more file descriptors as ancillary data: a single WriteMsgUnix/
// ReadMsgUnix call whose data is exactly one byte can never straddle two
// recvmsg() calls, so the descriptors are never at risk of being
// silently dropped by an unrelated plain Read on the same stream (the
// kernel discards pending SCM_RIGHTS if consumed by read(2) instead of
// recvmsg(2)). The header and body that follow carry no fds, so they are
// read back with ordinary io.ReadFull.

package protocol

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// maxPassedFDs bounds a single envelope's fd-passing marker message.
// PublishTransport passes 3 (memfd + two eventfds); port_use_buffers
// passes at most one per BufferDatum across Metas+Datas, generously
// capped here rather than sized per call.
const maxPassedFDs = 8

func sendFrame(conn *net.UnixConn, op Opcode, seq uint32, body []byte, fds []int) error {
	marker := []byte{0}
	var oob []byte
	if len(fds) > 0 {
		marker[0] = 1
		oob = unix.UnixRights(fds...)
	}
	n, oobn, err := conn.WriteMsgUnix(marker, oob, nil)
	if err != nil {
		return fmt.Errorf("protocol: write fd marker: %w", err)
	}
	if n != len(marker) || oobn != len(oob) {
		return fmt.Errorf("protocol: short write passing %d fds", len(fds))
	}
	return writeEnvelope(conn, op, seq, body)
}

func recvFrame(conn *net.UnixConn) (envelope, []int, error) {
	marker := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(maxPassedFDs*4))
	n, oobn, _, _, err := conn.ReadMsgUnix(marker, oob)
	if err != nil {
		return envelope{}, nil, err
	}
	if n != 1 {
		return envelope{}, nil, fmt.Errorf("protocol: short read of fd marker")
	}
	var fds []int
	if marker[0] == 1 {
		if oobn == 0 {
			return envelope{}, nil, fmt.Errorf("protocol: marker announced fds but none arrived")
		}
		scms, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return envelope{}, nil, fmt.Errorf("protocol: parse control message: %w", err)
		}
		for i := range scms {
			parsed, err := unix.ParseUnixRights(&scms[i])
			if err != nil {
				return envelope{}, nil, fmt.Errorf("protocol: parse unix rights: %w", err)
			}
			fds = append(fds, parsed...)
		}
	}
	env, err := readEnvelope(conn)
	if err != nil {
		return envelope{}, nil, err
	}
	return env, fds, nil
}
