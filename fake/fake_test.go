// File: fake/fake_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/graph-proxy-node/api"
)

type recordingInbound struct {
	doneSeq   uint32
	doneRes   int32
	destroyed bool
}

func (r *recordingInbound) OnDone(seq uint32, res int32) { r.doneSeq, r.doneRes = seq, res }
func (r *recordingInbound) OnUpdate(uint32, int, int, []api.ParamBlob) {}
func (r *recordingInbound) OnPortUpdate(api.PortDirection, uint32, uint32, []api.ParamBlob, api.PortInfo) {
}
func (r *recordingInbound) OnSetActive(bool)     {}
func (r *recordingInbound) OnEvent(api.Command)  {}
func (r *recordingInbound) OnDestroy()           { r.destroyed = true }

func TestTransportAddAndParseMessage(t *testing.T) {
	tr := NewTransport(2, 2)
	require.NoError(t, tr.AddMessage(api.MessageHeader{Type: api.MsgHaveOutput}, nil))
	require.Equal(t, 1, tr.Pending())

	hdr, ok, err := tr.NextMessage()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, api.MsgHaveOutput, hdr.Type)

	require.NoError(t, tr.ParseMessage(nil))
	require.Equal(t, 0, tr.Pending())
}

func TestTransportFullInjection(t *testing.T) {
	tr := NewTransport(0, 0)
	tr.Full = true
	err := tr.AddMessage(api.MessageHeader{Type: api.MsgNeedInput}, nil)
	require.ErrorIs(t, err, api.ErrTransportFull)
}

func TestTransportFDs(t *testing.T) {
	tr := NewTransport(0, 0)
	tr.SetFDs(10, 11, 12)
	require.EqualValues(t, 10, tr.MemFD())
	require.EqualValues(t, 11, tr.OurWakeupFD())
	require.EqualValues(t, 12, tr.PeerWakeupFD())
}

func TestResourceChannelRecordsCalls(t *testing.T) {
	rc := NewResourceChannel()
	require.NoError(t, rc.SendSetParam(7, 1, 0, api.ParamBlob{ObjectID: 1}))
	require.Equal(t, uint32(7), rc.LastSetParamSeq())

	require.NoError(t, rc.PublishTransport("handle-1", 3, 4, 5))
	require.Len(t, rc.PublishedTransports, 1)
	require.Equal(t, api.ResourceHandle("handle-1"), rc.PublishedTransports[0].Handle)

	require.NoError(t, rc.Destroy())
	require.True(t, rc.Destroyed)
}

func TestResourceChannelErrorInjection(t *testing.T) {
	rc := NewResourceChannel()
	rc.ErrSendCommand = api.ErrNotSupported
	err := rc.SendCommand(1, api.Command{ID: api.CmdClockUpdate})
	require.ErrorIs(t, err, api.ErrNotSupported)
}

func TestPeerPushesRingMessagesAndCompletes(t *testing.T) {
	tr := NewTransport(1, 1)
	inbound := &recordingInbound{}
	peer := NewPeer(inbound, tr)

	require.NoError(t, peer.PushHaveOutput())
	require.Equal(t, 1, tr.Signals)
	hdr, ok, err := tr.NextMessage()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, api.MsgHaveOutput, hdr.Type)
	require.NoError(t, tr.ParseMessage(nil))

	require.NoError(t, peer.PushReuseBuffer(3, 9))
	hdr, ok, err = tr.NextMessage()
	require.NoError(t, err)
	require.True(t, ok)
	body := make([]byte, hdr.BodySize)
	require.NoError(t, tr.ParseMessage(body))
	require.EqualValues(t, 3, body[0])

	peer.Complete(42, 0)
	require.Equal(t, uint32(42), inbound.doneSeq)

	peer.Destroy()
	require.True(t, inbound.destroyed)
}

func TestBufferPoolTracksStats(t *testing.T) {
	p := NewBufferPool()
	b := p.Get(128, 1)
	require.Len(t, b.Data, 128)
	stats := p.Stats()
	require.EqualValues(t, 1, stats.TotalAlloc)
	require.EqualValues(t, 1, stats.InUse)

	b.Release()
	stats = p.Stats()
	require.EqualValues(t, 1, stats.TotalFree)
	require.EqualValues(t, 0, stats.InUse)
}

func TestBytePoolRecordsAcquireRelease(t *testing.T) {
	p := NewBytePool()
	buf := p.Acquire(16)
	require.Len(t, buf, 16)
	p.Release(buf)
	require.Equal(t, []int{16}, p.Acquired)
	require.Len(t, p.Released, 1)
}
