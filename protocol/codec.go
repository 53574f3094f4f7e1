// File: protocol/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-field marshaling for the api types that travel inside an envelope
// body: ParamBlob, PortInfo, Command, ClientBuffer. Every length-prefixed
// field uses a u32 count/size, little-endian throughout, matching the
// shared-memory ring's own header encoding (api.MessageHeader).
//
// ClientBuffer's BufferDatum entries may carry a real OS file descriptor
// (DataMemFd, DataDmaBuf). Those never travel as encoded integers: the
// encoder collects them into a side list and writes only the datum's
// index into that list; the matching SCM_RIGHTS ancillary message carries
// the actual descriptors, and the decoder splices them back in by index.

package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/graph-proxy-node/api"
)

const noFD = ^uint32(0)

type writer struct{ buf []byte }

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) i64(v int64) { w.u32(uint32(v)); w.u32(uint32(v >> 32)) }

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) { w.bytes([]byte(s)) }

type reader struct {
	buf []byte
	off int
}

func (r *reader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("protocol: short buffer reading u32")
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *reader) u8() (uint8, error) {
	if r.off+1 > len(r.buf) {
		return 0, fmt.Errorf("protocol: short buffer reading u8")
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) i64() (int64, error) {
	lo, err := r.u32()
	if err != nil {
		return 0, err
	}
	hi, err := r.u32()
	if err != nil {
		return 0, err
	}
	return int64(uint64(hi)<<32 | uint64(lo)), nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if int(n) > len(r.buf)-r.off || n > MaxEnvelopePayload {
		return nil, fmt.Errorf("protocol: length-prefixed field claims %d bytes, buffer too short", n)
	}
	v := append([]byte(nil), r.buf[r.off:r.off+int(n)]...)
	r.off += int(n)
	return v, nil
}

func (r *reader) str() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func putParamBlob(w *writer, p api.ParamBlob) {
	w.u32(p.ObjectID)
	w.bytes(p.Data)
}

func getParamBlob(r *reader) (api.ParamBlob, error) {
	objectID, err := r.u32()
	if err != nil {
		return api.ParamBlob{}, err
	}
	data, err := r.bytes()
	if err != nil {
		return api.ParamBlob{}, err
	}
	return api.ParamBlob{ObjectID: objectID, Data: data}, nil
}

func putParamBlobs(w *writer, ps []api.ParamBlob) {
	w.u32(uint32(len(ps)))
	for _, p := range ps {
		putParamBlob(w, p)
	}
}

func getParamBlobs(r *reader) ([]api.ParamBlob, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]api.ParamBlob, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := getParamBlob(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func putPortInfo(w *writer, info api.PortInfo) {
	w.str(info.Name)
	w.u32(info.Flags)
}

func getPortInfo(r *reader) (api.PortInfo, error) {
	name, err := r.str()
	if err != nil {
		return api.PortInfo{}, err
	}
	flags, err := r.u32()
	if err != nil {
		return api.PortInfo{}, err
	}
	return api.PortInfo{Name: name, Flags: flags}, nil
}

func putCommand(w *writer, cmd api.Command) {
	w.u32(cmd.ID)
	w.bytes(cmd.Data)
}

func getCommand(r *reader) (api.Command, error) {
	id, err := r.u32()
	if err != nil {
		return api.Command{}, err
	}
	data, err := r.bytes()
	if err != nil {
		return api.Command{}, err
	}
	return api.Command{ID: id, Data: data}, nil
}

// fdCollector assigns ancillary-fd indices to BufferDatum entries that
// carry a real descriptor, in encounter order, so the caller can build a
// matching unix.UnixRights() payload.
type fdCollector struct{ fds []int }

func (c *fdCollector) add(fd int) uint32 {
	idx := uint32(len(c.fds))
	c.fds = append(c.fds, fd)
	return idx
}

func putBufferDatum(w *writer, d api.BufferDatum, fds *fdCollector) {
	w.u32(uint32(d.Kind))
	switch d.Kind {
	case api.DataMemFd, api.DataDmaBuf:
		w.u32(fds.add(d.FD))
	default:
		w.u32(noFD)
	}
	w.u32(d.MemID)
	w.u32(d.Flags)
	w.i64(d.MapOffset)
	w.u32(d.MaxSize)
	w.i64(d.RelOffset)
}

// getBufferDatum decodes one datum, resolving a DataMemFd/DataDmaBuf
// index against the descriptors received via SCM_RIGHTS for this
// envelope (recvFDs, in the same order the encoder collected them).
func getBufferDatum(r *reader, recvFDs []int) (api.BufferDatum, error) {
	kind, err := r.u32()
	if err != nil {
		return api.BufferDatum{}, err
	}
	fdIdx, err := r.u32()
	if err != nil {
		return api.BufferDatum{}, err
	}
	memID, err := r.u32()
	if err != nil {
		return api.BufferDatum{}, err
	}
	flags, err := r.u32()
	if err != nil {
		return api.BufferDatum{}, err
	}
	mapOffset, err := r.i64()
	if err != nil {
		return api.BufferDatum{}, err
	}
	maxSize, err := r.u32()
	if err != nil {
		return api.BufferDatum{}, err
	}
	relOffset, err := r.i64()
	if err != nil {
		return api.BufferDatum{}, err
	}
	d := api.BufferDatum{
		Kind:      api.DataKind(kind),
		MemID:     memID,
		Flags:     flags,
		MapOffset: mapOffset,
		MaxSize:   maxSize,
		RelOffset: relOffset,
	}
	if fdIdx != noFD {
		if int(fdIdx) >= len(recvFDs) {
			return api.BufferDatum{}, fmt.Errorf("protocol: buffer datum references fd index %d, only %d received", fdIdx, len(recvFDs))
		}
		d.FD = recvFDs[fdIdx]
	}
	return d, nil
}

func putClientBuffer(w *writer, b api.ClientBuffer, fds *fdCollector) {
	w.u32(uint32(b.Handle))
	w.u32(uint32(b.Handle >> 32))
	w.u32(uint32(len(b.Metas)))
	for _, d := range b.Metas {
		putBufferDatum(w, d, fds)
	}
	w.u32(uint32(len(b.Datas)))
	for _, d := range b.Datas {
		putBufferDatum(w, d, fds)
	}
	w.i64(b.Offset)
	w.u32(b.Size)
}

func getClientBuffer(r *reader, recvFDs []int) (api.ClientBuffer, error) {
	lo, err := r.u32()
	if err != nil {
		return api.ClientBuffer{}, err
	}
	hi, err := r.u32()
	if err != nil {
		return api.ClientBuffer{}, err
	}
	nMeta, err := r.u32()
	if err != nil {
		return api.ClientBuffer{}, err
	}
	metas := make([]api.BufferDatum, 0, nMeta)
	for i := uint32(0); i < nMeta; i++ {
		d, err := getBufferDatum(r, recvFDs)
		if err != nil {
			return api.ClientBuffer{}, err
		}
		metas = append(metas, d)
	}
	nData, err := r.u32()
	if err != nil {
		return api.ClientBuffer{}, err
	}
	datas := make([]api.BufferDatum, 0, nData)
	for i := uint32(0); i < nData; i++ {
		d, err := getBufferDatum(r, recvFDs)
		if err != nil {
			return api.ClientBuffer{}, err
		}
		datas = append(datas, d)
	}
	offset, err := r.i64()
	if err != nil {
		return api.ClientBuffer{}, err
	}
	size, err := r.u32()
	if err != nil {
		return api.ClientBuffer{}, err
	}
	return api.ClientBuffer{
		Handle: uint64(hi)<<32 | uint64(lo),
		Metas:  metas,
		Datas:  datas,
		Offset: offset,
		Size:   size,
	}, nil
}

func putClientBuffers(w *writer, bs []api.ClientBuffer, fds *fdCollector) {
	w.u32(uint32(len(bs)))
	for _, b := range bs {
		putClientBuffer(w, b, fds)
	}
}

func getClientBuffers(r *reader, recvFDs []int) ([]api.ClientBuffer, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]api.ClientBuffer, 0, n)
	for i := uint32(0); i < n; i++ {
		b, err := getClientBuffer(r, recvFDs)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
