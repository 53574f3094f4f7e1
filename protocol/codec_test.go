// File: protocol/codec_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/graph-proxy-node/api"
)

func TestParamBlobRoundTrip(t *testing.T) {
	w := &writer{}
	blobs := []api.ParamBlob{
		{ObjectID: 1, Data: []byte("format-desc")},
		{ObjectID: 2, Data: nil},
	}
	putParamBlobs(w, blobs)

	r := &reader{buf: w.buf}
	got, err := getParamBlobs(r)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint32(1), got[0].ObjectID)
	require.Equal(t, []byte("format-desc"), got[0].Data)
	require.Equal(t, uint32(2), got[1].ObjectID)
	require.Empty(t, got[1].Data)
}

func TestPortInfoRoundTrip(t *testing.T) {
	w := &writer{}
	putPortInfo(w, api.PortInfo{Name: "video-in", Flags: 0x3})

	r := &reader{buf: w.buf}
	got, err := getPortInfo(r)
	require.NoError(t, err)
	require.Equal(t, "video-in", got.Name)
	require.Equal(t, uint32(0x3), got.Flags)
}

func TestCommandRoundTrip(t *testing.T) {
	w := &writer{}
	putCommand(w, api.Command{ID: api.CmdClockUpdate, Data: []byte{1, 2, 3}})

	r := &reader{buf: w.buf}
	got, err := getCommand(r)
	require.NoError(t, err)
	require.Equal(t, api.CmdClockUpdate, got.ID)
	require.Equal(t, []byte{1, 2, 3}, got.Data)
}

func TestClientBufferRoundTripWithFDIndices(t *testing.T) {
	buffers := []api.ClientBuffer{
		{
			Handle: 0xdeadbeefcafe,
			Metas: []api.BufferDatum{
				{Kind: api.DataMemFd, FD: 42, MaxSize: 4096},
				{Kind: api.DataID, MemID: 7},
			},
			Datas: []api.BufferDatum{
				{Kind: api.DataDmaBuf, FD: 99, MapOffset: 128},
			},
			Offset: -16,
			Size:   2048,
		},
	}

	w := &writer{}
	fds := &fdCollector{}
	putClientBuffers(w, buffers, fds)
	require.Equal(t, []int{42, 99}, fds.fds)

	r := &reader{buf: w.buf}
	got, err := getClientBuffers(r, fds.fds)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(0xdeadbeefcafe), got[0].Handle)
	require.Equal(t, int64(-16), got[0].Offset)
	require.Equal(t, uint32(2048), got[0].Size)
	require.Len(t, got[0].Metas, 2)
	require.Equal(t, 42, got[0].Metas[0].FD)
	require.Equal(t, uint32(7), got[0].Metas[1].MemID)
	require.Len(t, got[0].Datas, 1)
	require.Equal(t, 99, got[0].Datas[0].FD)
	require.Equal(t, int64(128), got[0].Datas[0].MapOffset)
}

func TestGetBufferDatumRejectsOutOfRangeFDIndex(t *testing.T) {
	w := &writer{}
	w.u32(uint32(api.DataMemFd))
	w.u32(0) // fd index 0, but no fds supplied
	w.u32(0)
	w.u32(0)
	w.i64(0)
	w.u32(0)
	w.i64(0)

	r := &reader{buf: w.buf}
	_, err := getBufferDatum(r, nil)
	require.Error(t, err)
}

func TestEnvelopeRejectsOversizedBody(t *testing.T) {
	var discard discardWriter
	err := writeEnvelope(&discard, OpSendCommand, 1, make([]byte, MaxEnvelopePayload+1))
	require.Error(t, err)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
