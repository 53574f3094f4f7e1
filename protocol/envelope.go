// File: protocol/envelope.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Envelope framing: every message on the resource control channel is
// [opcode u32][seq u32][body_size u32][body]. seq correlates an inbound
// OnDone to the outbound request that triggered it; it is 0 for the
// handful of messages that carry no reply (SendUpdate, SendPortUpdate,
// SendSetActive, PublishTransport, every ResourceInbound notification
// except OnDone).

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxEnvelopePayload bounds a single envelope's body, mirroring the
// max-frame-payload enforcement the control channel's predecessor
// applied to every inbound frame: a malformed or hostile body_size must
// never be trusted enough to drive an allocation.
const MaxEnvelopePayload = 16 << 20

// envelopeHeaderSize is the on-wire size of opcode+seq+body_size.
const envelopeHeaderSize = 12

// envelope is one framed message, header plus body.
type envelope struct {
	Op   Opcode
	Seq  uint32
	Body []byte
}

func writeEnvelope(w io.Writer, op Opcode, seq uint32, body []byte) error {
	if len(body) > MaxEnvelopePayload {
		return fmt.Errorf("protocol: body of %d bytes exceeds max envelope payload %d", len(body), MaxEnvelopePayload)
	}
	hdr := make([]byte, envelopeHeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(op))
	binary.LittleEndian.PutUint32(hdr[4:8], seq)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(body)))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("protocol: write header: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("protocol: write body: %w", err)
	}
	return nil
}

func readEnvelope(r io.Reader) (envelope, error) {
	hdr := make([]byte, envelopeHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return envelope{}, err
	}
	op := Opcode(binary.LittleEndian.Uint32(hdr[0:4]))
	seq := binary.LittleEndian.Uint32(hdr[4:8])
	bodySize := binary.LittleEndian.Uint32(hdr[8:12])
	if bodySize > MaxEnvelopePayload {
		return envelope{}, fmt.Errorf("protocol: peer claims %d byte body, exceeds max %d", bodySize, MaxEnvelopePayload)
	}
	body := make([]byte, bodySize)
	if bodySize > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return envelope{}, fmt.Errorf("protocol: read body: %w", err)
		}
	}
	return envelope{Op: op, Seq: seq, Body: body}, nil
}
