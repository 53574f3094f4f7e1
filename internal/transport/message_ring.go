// File: internal/transport/message_ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Encodes api.MessageHeader/body pairs onto a shmring.MappedRing. Every
// message is {u32 type, u32 body_size, body...}; AddMessage fails fast
// with api.ErrTransportFull rather than blocking, matching the data-loop
// thread's no-locks-on-the-hot-path discipline.

package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/core/shmring"
)

type messageRing struct {
	ring *shmring.MappedRing
}

func newMessageRing(ring *shmring.MappedRing) *messageRing {
	return &messageRing{ring: ring}
}

// addMessage enqueues header+body as a contiguous record, returning
// api.ErrTransportFull if the ring lacks room for all of it. The write is
// staged fully before WriteUpdate publishes it, so a partially written
// record is never observable to the consumer.
func (m *messageRing) addMessage(hdr api.MessageHeader, body []byte) error {
	if int(hdr.BodySize) != len(body) {
		return fmt.Errorf("%w: body size %d does not match header %d", api.ErrArgInvalid, len(body), hdr.BodySize)
	}
	need := uint32(api.HeaderSize) + hdr.BodySize
	idx, fill := m.ring.GetWriteIndex()
	if int32(m.ring.Size())-fill < int32(need) {
		return api.ErrTransportFull
	}

	buf := make([]byte, need)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(hdr.Type))
	binary.LittleEndian.PutUint32(buf[4:8], hdr.BodySize)
	copy(buf[api.HeaderSize:], body)

	shmring.WriteData(m.ring.Storage(), idx&m.ring.Mask(), buf)
	m.ring.WriteUpdate(idx + need)
	return nil
}

// peekHeader reports whether a full header is available and, if so,
// decodes it without advancing the read index.
func (m *messageRing) peekHeader() (api.MessageHeader, bool, error) {
	idx, fill := m.ring.GetReadIndex()
	if fill < int32(api.HeaderSize) {
		return api.MessageHeader{}, false, nil
	}
	buf := make([]byte, api.HeaderSize)
	shmring.ReadData(m.ring.Storage(), idx&m.ring.Mask(), buf)
	hdr := api.MessageHeader{
		Type:     api.MessageType(binary.LittleEndian.Uint32(buf[0:4])),
		BodySize: binary.LittleEndian.Uint32(buf[4:8]),
	}
	if hdr.BodySize > m.ring.Size() {
		return api.MessageHeader{}, false, fmt.Errorf("%w: header claims body size %d exceeds ring size %d",
			api.ErrArgInvalid, hdr.BodySize, m.ring.Size())
	}
	if fill < int32(api.HeaderSize)+int32(hdr.BodySize) {
		return api.MessageHeader{}, false, nil
	}
	return hdr, true, nil
}

// takeBody reads the body of the message whose header was just peeked and
// advances the read index past the whole record.
func (m *messageRing) takeBody(hdr api.MessageHeader, dst []byte) error {
	if uint32(len(dst)) < hdr.BodySize {
		return fmt.Errorf("%w: dst %d too small for body %d", api.ErrArgInvalid, len(dst), hdr.BodySize)
	}
	idx, _ := m.ring.GetReadIndex()
	bodyOffset := (idx + uint32(api.HeaderSize)) & m.ring.Mask()
	shmring.ReadData(m.ring.Storage(), bodyOffset, dst[:hdr.BodySize])
	m.ring.ReadUpdate(idx + uint32(api.HeaderSize) + hdr.BodySize)
	return nil
}
