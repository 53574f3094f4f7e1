package proxynode_test

import (
	"errors"
	"testing"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/proxynode"
)

// fakeTransport is an in-memory api.Transport double, grounded in the
// fake-package style used elsewhere in this codebase: simple slices
// instead of real shared memory, predictable and inspectable from tests.
type fakeTransport struct {
	inputs, outputs []api.PortIO
	queue           []queuedMsg
	signals         int
	drains          int
	closed          bool
	full            bool
}

type queuedMsg struct {
	hdr  api.MessageHeader
	body []byte
}

func newFakeTransport(nIn, nOut int) *fakeTransport {
	return &fakeTransport{inputs: make([]api.PortIO, nIn), outputs: make([]api.PortIO, nOut)}
}

func (f *fakeTransport) AddMessage(hdr api.MessageHeader, body []byte) error {
	if f.closed {
		return api.ErrTransportClosed
	}
	if f.full {
		return api.ErrTransportFull
	}
	bodyCopy := append([]byte(nil), body...)
	f.queue = append(f.queue, queuedMsg{hdr: hdr, body: bodyCopy})
	return nil
}

func (f *fakeTransport) NextMessage() (api.MessageHeader, bool, error) {
	if len(f.queue) == 0 {
		return api.MessageHeader{}, false, nil
	}
	return f.queue[0].hdr, true, nil
}

func (f *fakeTransport) ParseMessage(dst []byte) error {
	if len(f.queue) == 0 {
		return errors.New("no pending message")
	}
	copy(dst, f.queue[0].body)
	f.queue = f.queue[1:]
	return nil
}

func (f *fakeTransport) Inputs() []api.PortIO  { return append([]api.PortIO(nil), f.inputs...) }
func (f *fakeTransport) Outputs() []api.PortIO { return append([]api.PortIO(nil), f.outputs...) }

func (f *fakeTransport) SetInput(i int, io api.PortIO) error {
	f.inputs[i] = io
	return nil
}
func (f *fakeTransport) SetOutput(i int, io api.PortIO) error {
	f.outputs[i] = io
	return nil
}

func (f *fakeTransport) SignalPeer() error      { f.signals++; return nil }
func (f *fakeTransport) MemFD() uintptr         { return 0 }
func (f *fakeTransport) OurWakeupFD() uintptr   { return 1 }
func (f *fakeTransport) PeerWakeupFD() uintptr  { return 2 }
func (f *fakeTransport) DrainWakeup() error     { f.drains++; return nil }
func (f *fakeTransport) Destroy() error         { f.closed = true; return nil }

// fakeResource is a no-op api.ResourceChannel double that records calls.
type fakeResource struct {
	setParamCalls int
	lastSeq       uint32
	useBuffers    []api.ClientBuffer
}

func (r *fakeResource) SendUpdate(int, int, []api.ParamBlob) error { return nil }
func (r *fakeResource) SendPortUpdate(api.PortDirection, uint32, uint32, []api.ParamBlob, api.PortInfo) error {
	return nil
}
func (r *fakeResource) SendSetParam(seq uint32, objectID uint32, flags uint32, blob api.ParamBlob) error {
	r.setParamCalls++
	r.lastSeq = seq
	return nil
}
func (r *fakeResource) SendPortSetParam(uint32, api.PortDirection, uint32, api.ParamBlob) error {
	return nil
}
func (r *fakeResource) SendCommand(uint32, api.Command) error { return nil }
func (r *fakeResource) SendPortUseBuffers(seq uint32, dir api.PortDirection, id uint32, buffers []api.ClientBuffer) error {
	r.useBuffers = buffers
	return nil
}
func (r *fakeResource) SendSetActive(bool) error                              { return nil }
func (r *fakeResource) PublishTransport(api.ResourceHandle, uintptr, uintptr, uintptr) error { return nil }
func (r *fakeResource) Destroy() error                                        { return nil }

func newTestNode(t *testing.T, maxIn, maxOut int) (*proxynode.ProxyNode, *fakeResource, *fakeTransport) {
	t.Helper()
	res := &fakeResource{}
	n := proxynode.New(proxynode.Config{MaxInputs: maxIn, MaxOutputs: maxOut, Resource: res, FormatObjectID: 99})
	var ft *fakeTransport
	n.SetTransportFactory(func(maxInputs, maxOutputs int) (api.Transport, error) {
		ft = newFakeTransport(maxInputs, maxOutputs)
		return ft, nil
	})
	return n, res, ft
}

// Scenario B: port add/remove and id range validation.
func TestScenarioB_PortAddRemove(t *testing.T) {
	n, _, _ := newTestNode(t, 64, 64)

	if err := n.AddPort(api.DirInput, 3); err != nil {
		t.Fatalf("AddPort(3): %v", err)
	}
	out := make([]uint32, 8)
	if got := n.GetPortIDs(api.DirInput, out); got != 1 || out[0] != 3 {
		t.Fatalf("expected [3], got %v", out[:got])
	}

	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort(0): %v", err)
	}
	if got := n.GetPortIDs(api.DirInput, out); got != 2 || out[0] != 0 || out[1] != 3 {
		t.Fatalf("expected [0,3] ascending, got %v", out[:got])
	}

	if err := n.RemovePort(api.DirInput, 3); err != nil {
		t.Fatalf("RemovePort(3): %v", err)
	}
	if got := n.GetPortIDs(api.DirInput, out); got != 1 || out[0] != 0 {
		t.Fatalf("expected [0], got %v", out[:got])
	}

	if err := n.AddPort(api.DirInput, 65); !errors.Is(err, api.ErrArgInvalid) {
		t.Fatalf("expected ErrArgInvalid for out-of-range id, got %v", err)
	}
}

// Scenario C: async seq allocation and completion.
func TestScenarioC_AsyncSequence(t *testing.T) {
	n, res, _ := newTestNode(t, 1, 1)

	result, err := n.SetParam(42, 0, api.ParamBlob{ObjectID: 42})
	if err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if !result.Pending || result.Seq != 1 {
		t.Fatalf("expected Pending seq=1, got %+v", result)
	}

	n.OnDone(result.Seq, 0)

	result2, err := n.SetParam(42, 0, api.ParamBlob{ObjectID: 42})
	if err != nil {
		t.Fatalf("SetParam #2: %v", err)
	}
	if result2.Seq != 2 {
		t.Fatalf("expected seq=2 on second call, got %d", result2.Seq)
	}
	if res.setParamCalls != 2 {
		t.Fatalf("expected 2 forwarded set_param calls, got %d", res.setParamCalls)
	}
}

// Scenario D-ish: the first completion (seq=0,res=0) builds the transport.
func TestFirstHandshakeBuildsTransport(t *testing.T) {
	n, _, _ := newTestNode(t, 4, 4)
	built := false
	n.SetHooks(proxynode.Hooks{OnTransportBuilt: func(api.Transport) error {
		built = true
		return nil
	}})

	n.OnDone(0, 0)

	if !built {
		t.Fatalf("expected OnTransportBuilt hook to fire")
	}
	if n.Transport() == nil {
		t.Fatalf("expected transport to be built")
	}
}

// Invariant 8 / scenario-adjacent: process_input is a no-op returning
// ErrNeedBuffer while input_ready is zero, and never goes negative.
func TestProcessInputNeedBufferWhenNotReady(t *testing.T) {
	n, _, _ := newTestNode(t, 4, 4)
	n.OnDone(0, 0) // builds transport

	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	var io api.PortIO
	if err := n.PortSetIO(api.DirInput, 0, &io); err != nil {
		t.Fatalf("PortSetIO: %v", err)
	}

	if err := n.ProcessInput(); !errors.Is(err, api.ErrNeedBuffer) {
		t.Fatalf("expected ErrNeedBuffer, got %v", err)
	}
	if io.Status != api.IONeedBuffer {
		t.Fatalf("expected port reset to NEED_BUFFER, got %v", io.Status)
	}
}

// Scenario E: process_output stages outputs and appends one
// PROCESS_OUTPUT; out_pending holds until HAVE_OUTPUT arrives.
func TestScenarioE_OutputCycle(t *testing.T) {
	n, _, ft := newTestNode(t, 4, 4)
	n.OnDone(0, 0)

	if err := n.AddPort(api.DirOutput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	io := api.PortIO{Status: api.IOHaveBuffer, BufferID: 5}
	if err := n.PortSetIO(api.DirOutput, 0, &io); err != nil {
		t.Fatalf("PortSetIO: %v", err)
	}

	haveOutputFired := 0
	n.SetCallbacks(testCallbacks{haveOutput: func() { haveOutputFired++ }})

	if err := n.ProcessOutput(); err != nil {
		t.Fatalf("ProcessOutput: %v", err)
	}
	if len(ft.queue) != 1 || ft.queue[0].hdr.Type != api.MsgProcessOutput {
		t.Fatalf("expected one queued PROCESS_OUTPUT, got %+v", ft.queue)
	}

	// A second process_output while pending coalesces: re-sends
	// PROCESS_OUTPUT without restaging (open question i).
	ft.outputs[0] = api.PortIO{} // simulate staged data being untouched
	if err := n.ProcessOutput(); err != nil {
		t.Fatalf("ProcessOutput (coalesced): %v", err)
	}
	if len(ft.queue) != 2 {
		t.Fatalf("expected a second PROCESS_OUTPUT queued, got %d", len(ft.queue))
	}

	// Simulate the client answering with HAVE_OUTPUT.
	ft.queue = nil
	ft.outputs[0] = api.PortIO{Status: api.IOOk, BufferID: 9}
	ft.queue = append(ft.queue, queuedMsg{hdr: api.MessageHeader{Type: api.MsgHaveOutput}})

	if err := n.OnTransportReadable(); err != nil {
		t.Fatalf("OnTransportReadable: %v", err)
	}
	if haveOutputFired != 1 {
		t.Fatalf("expected have_output callback exactly once, got %d", haveOutputFired)
	}
	if io.Status != api.IOOk || io.BufferID != 9 {
		t.Fatalf("expected client's output values visible in port.io, got %+v", io)
	}
}

// Scenario F: with client_reuse=false, process_input recycles the input
// buffer via the callback before appending PROCESS_INPUT.
func TestScenarioF_RecycleOnNonReusingClient(t *testing.T) {
	res := &fakeResource{}
	n := proxynode.New(proxynode.Config{MaxInputs: 4, MaxOutputs: 4, ClientReuse: false, Resource: res})
	var ft *fakeTransport
	n.SetTransportFactory(func(maxInputs, maxOutputs int) (api.Transport, error) {
		ft = newFakeTransport(maxInputs, maxOutputs)
		return ft, nil
	})
	n.OnDone(0, 0)

	if err := n.AddPort(api.DirInput, 0); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	io := api.PortIO{Status: api.IOHaveBuffer, BufferID: 3}
	if err := n.PortSetIO(api.DirInput, 0, &io); err != nil {
		t.Fatalf("PortSetIO: %v", err)
	}

	var reusedPort, reusedBuffer uint32
	reuseFired := 0
	n.SetCallbacks(testCallbacks{reuseBuffer: func(dir api.PortDirection, portID, bufferID uint32) {
		reuseFired++
		reusedPort, reusedBuffer = portID, bufferID
	}})

	// Simulate one NEED_INPUT so input_ready becomes nonzero.
	ft.queue = append(ft.queue, queuedMsg{hdr: api.MessageHeader{Type: api.MsgNeedInput}})
	if err := n.OnTransportReadable(); err != nil {
		t.Fatalf("OnTransportReadable: %v", err)
	}

	if err := n.ProcessInput(); err != nil {
		t.Fatalf("ProcessInput: %v", err)
	}
	if reuseFired != 1 || reusedPort != 0 || reusedBuffer != 3 {
		t.Fatalf("expected reuse_buffer(0,3) exactly once, got fired=%d port=%d buf=%d", reuseFired, reusedPort, reusedBuffer)
	}
	if len(ft.queue) != 1 || ft.queue[0].hdr.Type != api.MsgProcessInput {
		t.Fatalf("expected PROCESS_INPUT queued after recycle, got %+v", ft.queue)
	}
}

type testCallbacks struct {
	haveOutput  func()
	needInput   func()
	reuseBuffer func(dir api.PortDirection, portID, bufferID uint32)
	event       func(api.Command)
}

func (c testCallbacks) HaveOutput() {
	if c.haveOutput != nil {
		c.haveOutput()
	}
}
func (c testCallbacks) NeedInput() {
	if c.needInput != nil {
		c.needInput()
	}
}
func (c testCallbacks) ReuseBuffer(dir api.PortDirection, portID, bufferID uint32) {
	if c.reuseBuffer != nil {
		c.reuseBuffer(dir, portID, bufferID)
	}
}
func (c testCallbacks) Event(ev api.Command) {
	if c.event != nil {
		c.event(ev)
	}
}
