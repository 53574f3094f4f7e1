// File: internal/proxynode/proxynode.go
// Package proxynode implements the proxy node state machine: the
// media-graph Node contract, port lifecycle, buffer registration, and
// the async request/reply sequencing described in the system's §4.4.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package proxynode

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/graph-proxy-node/api"
	"github.com/momentics/graph-proxy-node/internal/memtable"
	"github.com/momentics/graph-proxy-node/internal/porttable"
)

// Config bundles a ProxyNode's construction-time parameters.
type Config struct {
	// Handle identifies this node's resource-channel session; it is
	// threaded through to PublishTransport and to the session registry.
	Handle api.ResourceHandle

	MaxInputs  int
	MaxOutputs int

	// ClientReuse, when false, means the server recycles input buffers
	// on the client's behalf inside process_input instead of waiting for
	// a REUSE_BUFFER notification.
	ClientReuse bool

	// FormatObjectID is the parameter object id the proxy treats
	// specially: its arrival on a port flips that port's have_format bit.
	FormatObjectID uint32

	Resource api.ResourceChannel

	// BodyPool stages ring message bodies for the inbound dispatch loop.
	// A nil pool falls back to a fresh allocation per message.
	BodyPool api.BytePool

	// Logger records datum-registration failures and ring-full retry
	// backpressure. A nil Logger falls back to zap.NewNop().
	Logger *zap.Logger

	// Executor, if set, fans PortUseBuffers's per-buffer normalization
	// out across its worker pool instead of running it inline on the
	// control thread. Nil keeps normalization synchronous.
	Executor api.Executor
}

// ProxyNode implements api.Node and api.ResourceInbound.
type ProxyNode struct {
	mu sync.Mutex

	handle api.ResourceHandle

	maxInputs      int
	maxOutputs     int
	clientReuse    bool
	formatObjectID uint32

	inputs  *porttable.Table
	outputs *porttable.Table

	transport api.Transport
	mem       *memtable.Table
	broker    *SequenceBroker
	retry     *retryQueue

	resource  api.ResourceChannel
	callbacks api.GraphCallbacks
	hooks     Hooks
	bodyPool  api.BytePool
	log       *zap.Logger
	executor  api.Executor

	params []api.ParamBlob

	inputReady uint32
	outPending bool

	transportFactory func(maxInputs, maxOutputs int) (api.Transport, error)
}

// New builds a ProxyNode in its initial, transport-less state; the
// transport is installed lazily once the client's first control reply
// (seq==0, res==0) arrives, via BuildTransport.
func New(cfg Config) *ProxyNode {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ProxyNode{
		handle:         cfg.Handle,
		maxInputs:      cfg.MaxInputs,
		maxOutputs:     cfg.MaxOutputs,
		clientReuse:    cfg.ClientReuse,
		formatObjectID: cfg.FormatObjectID,
		inputs:         porttable.New(api.DirInput, cfg.MaxInputs),
		outputs:        porttable.New(api.DirOutput, cfg.MaxOutputs),
		mem:            memtable.New(8),
		broker:         NewSequenceBroker(),
		retry:          newRetryQueue(),
		resource:       cfg.Resource,
		bodyPool:       cfg.BodyPool,
		log:            log,
		executor:       cfg.Executor,
	}
}

// Handle returns the resource-channel handle this node was configured with.
func (p *ProxyNode) Handle() api.ResourceHandle { return p.handle }

// SetTransportFactory installs the function BuildTransport uses to
// create the shared-memory transport once it's needed. Tests substitute
// a fake here; production wiring passes internal/transport.New.
func (p *ProxyNode) SetTransportFactory(f func(maxInputs, maxOutputs int) (api.Transport, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transportFactory = f
}

func (p *ProxyNode) table(dir api.PortDirection) *porttable.Table {
	if dir == api.DirOutput {
		return p.outputs
	}
	return p.inputs
}

// --- api.Node: node-level operations -------------------------------------

func (p *ProxyNode) EnumParams(objectID uint32, index *int, filter api.ParamFilter) (api.ParamBlob, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for *index < len(p.params) {
		cand := p.params[*index]
		*index++
		if cand.ObjectID == objectID && (filter == nil || filter(cand)) {
			return cand, true, nil
		}
	}
	return api.ParamBlob{}, false, nil
}

func (p *ProxyNode) SetParam(objectID uint32, flags uint32, blob api.ParamBlob) (api.Result[struct{}], error) {
	if p.resource == nil {
		return api.Result[struct{}]{}, fmt.Errorf("%w: no resource channel configured", api.ErrNotReady)
	}
	seq := p.broker.Begin(func(any, error) {})
	if err := p.resource.SendSetParam(seq, objectID, flags, blob); err != nil {
		p.broker.Cancel(seq)
		return api.Result[struct{}]{}, err
	}
	return api.Result[struct{}]{Seq: seq, Pending: true}, nil
}

func (p *ProxyNode) SendCommand(cmd api.Command) (api.Result[struct{}], error) {
	if p.resource == nil {
		return api.Result[struct{}]{}, fmt.Errorf("%w: no resource channel configured", api.ErrNotReady)
	}
	if cmd.ID == api.CmdClockUpdate {
		if err := p.resource.SendCommand(0, cmd); err != nil {
			return api.Result[struct{}]{}, err
		}
		return api.Result[struct{}]{}, nil
	}
	seq := p.broker.Begin(func(any, error) {})
	if err := p.resource.SendCommand(seq, cmd); err != nil {
		p.broker.Cancel(seq)
		return api.Result[struct{}]{}, err
	}
	return api.Result[struct{}]{Seq: seq, Pending: true}, nil
}

func (p *ProxyNode) SetCallbacks(cb api.GraphCallbacks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = cb
}

func (p *ProxyNode) GetNPorts() (nInputs, maxInputs, nOutputs, maxOutputs int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	nInputs, nOutputs = p.inputs.Len(), p.outputs.Len()
	maxInputs, maxOutputs = p.maxInputs, p.maxOutputs
	if maxInputs == 0 {
		maxInputs = nInputs
	}
	if maxOutputs == 0 {
		maxOutputs = nOutputs
	}
	return
}

func (p *ProxyNode) GetPortIDs(dir api.PortDirection, out []uint32) int {
	n := p.table(dir).IDs(out)
	sort.Slice(out[:n], func(i, j int) bool { return out[i] < out[j] })
	return n
}

func (p *ProxyNode) AddPort(dir api.PortDirection, id uint32) error {
	max := p.maxInputs
	if dir == api.DirOutput {
		max = p.maxOutputs
	}
	if max > 0 && id >= uint32(max) {
		return fmt.Errorf("%w: port id %d out of range (max %d)", api.ErrArgInvalid, id, max)
	}
	if err := p.table(dir).AddPort(id); err != nil {
		return fmt.Errorf("%w: %v", api.ErrArgInvalid, err)
	}
	return nil
}

func (p *ProxyNode) RemovePort(dir api.PortDirection, id uint32) error {
	if err := p.table(dir).RemovePort(id); err != nil {
		return fmt.Errorf("%w: %v", api.ErrArgInvalid, err)
	}
	return nil
}

func (p *ProxyNode) PortGetInfo(dir api.PortDirection, id uint32) (api.PortInfo, error) {
	slot, ok := p.table(dir).Get(id)
	if !ok {
		return api.PortInfo{}, fmt.Errorf("%w: port %d", api.ErrArgInvalid, id)
	}
	return slot.Info, nil
}

func (p *ProxyNode) PortEnumParams(dir api.PortDirection, id uint32, index *int, filter api.ParamFilter) (api.ParamBlob, bool, error) {
	// Only the port id is validated: porttable.Slot stores no per-port
	// parameter list, so for an existing port this always reports that no
	// parameter exists (ok=false). index is not advanced and filter is not
	// consulted.
	if _, ok := p.table(dir).Get(id); !ok {
		return api.ParamBlob{}, false, fmt.Errorf("%w: port %d", api.ErrArgInvalid, id)
	}
	return api.ParamBlob{}, false, nil
}

func (p *ProxyNode) PortSetParam(dir api.PortDirection, id uint32, blob api.ParamBlob) (api.Result[struct{}], error) {
	if _, ok := p.table(dir).Get(id); !ok {
		return api.Result[struct{}]{}, fmt.Errorf("%w: port %d", api.ErrArgInvalid, id)
	}
	if p.resource == nil {
		return api.Result[struct{}]{}, fmt.Errorf("%w: no resource channel configured", api.ErrNotReady)
	}
	seq := p.broker.Begin(func(any, error) {})
	if err := p.resource.SendPortSetParam(seq, dir, id, blob); err != nil {
		p.broker.Cancel(seq)
		return api.Result[struct{}]{}, err
	}
	return api.Result[struct{}]{Seq: seq, Pending: true}, nil
}

func (p *ProxyNode) PortAllocBuffers(dir api.PortDirection, id uint32, count int, size uint32) (api.Result[struct{}], error) {
	return api.Result[struct{}]{}, api.ErrNotSupported
}

func (p *ProxyNode) PortSetIO(dir api.PortDirection, id uint32, slot *api.PortIO) error {
	if err := p.table(dir).SetIO(id, slot); err != nil {
		return fmt.Errorf("%w: %v", api.ErrArgInvalid, err)
	}
	return nil
}

func (p *ProxyNode) PortReuseBuffer(dir api.PortDirection, id uint32, bufferID uint32) error {
	p.mu.Lock()
	transport := p.transport
	p.mu.Unlock()
	if transport == nil {
		return fmt.Errorf("%w: transport not yet built", api.ErrNotReady)
	}
	body := make([]byte, api.ReuseBufferBodySize)
	binary.LittleEndian.PutUint32(body[0:4], id)
	binary.LittleEndian.PutUint32(body[4:8], bufferID)
	hdr := api.MessageHeader{Type: api.MsgReuseBuffer, BodySize: api.ReuseBufferBodySize}
	if err := transport.AddMessage(hdr, body); err != nil {
		if err == api.ErrTransportFull {
			p.retry.push(hdr, body)
			return nil
		}
		return err
	}
	return transport.SignalPeer()
}

// PortSendCommand is a stub per the open design question: the protocol
// has no per-port command definitions yet, so every call fails.
func (p *ProxyNode) PortSendCommand(dir api.PortDirection, id uint32, cmd api.Command) (api.Result[struct{}], error) {
	return api.Result[struct{}]{}, api.ErrNotSupported
}
