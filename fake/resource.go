// File: fake/resource.go
// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ResourceChannel is an in-memory api.ResourceChannel double recording
// every outbound call, generalizing the fakeResource shape proven out
// inline in internal/proxynode's tests.

package fake

import (
	"sync"

	"github.com/momentics/graph-proxy-node/api"
)

// SetParamCall records one SendSetParam invocation.
type SetParamCall struct {
	Seq      uint32
	ObjectID uint32
	Flags    uint32
	Blob     api.ParamBlob
}

// PortSetParamCall records one SendPortSetParam invocation.
type PortSetParamCall struct {
	Seq uint32
	Dir api.PortDirection
	ID  uint32
	Blob api.ParamBlob
}

// UseBuffersCall records one SendPortUseBuffers invocation.
type UseBuffersCall struct {
	Seq     uint32
	Dir     api.PortDirection
	ID      uint32
	Buffers []api.ClientBuffer
}

// PublishTransportCall records one PublishTransport invocation.
type PublishTransportCall struct {
	Handle                          api.ResourceHandle
	MemFD, WakeupUs, WakeupThem uintptr
}

// ResourceChannel is a fake api.ResourceChannel: every call is appended
// to the matching slice, and a per-method error can be injected via the
// Err* fields so tests can exercise the proxy node's failure paths.
type ResourceChannel struct {
	mu sync.Mutex

	Updates          []struct {
		MaxInputs, MaxOutputs int
		Params                []api.ParamBlob
	}
	PortUpdates []struct {
		Dir        api.PortDirection
		ID         uint32
		ChangeMask uint32
		Params     []api.ParamBlob
		Info       api.PortInfo
	}
	SetParams       []SetParamCall
	PortSetParams   []PortSetParamCall
	Commands        []struct {
		Seq uint32
		Cmd api.Command
	}
	UseBuffers       []UseBuffersCall
	SetActives       []bool
	PublishedTransports []PublishTransportCall
	Destroyed        bool

	ErrSendUpdate         error
	ErrSendPortUpdate     error
	ErrSendSetParam       error
	ErrSendPortSetParam   error
	ErrSendCommand        error
	ErrSendPortUseBuffers error
	ErrSendSetActive      error
	ErrPublishTransport   error
	ErrDestroy            error
}

// NewResourceChannel builds an empty fake resource channel.
func NewResourceChannel() *ResourceChannel { return &ResourceChannel{} }

func (r *ResourceChannel) SendUpdate(maxInputs, maxOutputs int, params []api.ParamBlob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrSendUpdate != nil {
		return r.ErrSendUpdate
	}
	r.Updates = append(r.Updates, struct {
		MaxInputs, MaxOutputs int
		Params                []api.ParamBlob
	}{maxInputs, maxOutputs, params})
	return nil
}

func (r *ResourceChannel) SendPortUpdate(dir api.PortDirection, id uint32, changeMask uint32, params []api.ParamBlob, info api.PortInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrSendPortUpdate != nil {
		return r.ErrSendPortUpdate
	}
	r.PortUpdates = append(r.PortUpdates, struct {
		Dir        api.PortDirection
		ID         uint32
		ChangeMask uint32
		Params     []api.ParamBlob
		Info       api.PortInfo
	}{dir, id, changeMask, params, info})
	return nil
}

func (r *ResourceChannel) SendSetParam(seq uint32, objectID uint32, flags uint32, blob api.ParamBlob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrSendSetParam != nil {
		return r.ErrSendSetParam
	}
	r.SetParams = append(r.SetParams, SetParamCall{Seq: seq, ObjectID: objectID, Flags: flags, Blob: blob})
	return nil
}

func (r *ResourceChannel) SendPortSetParam(seq uint32, dir api.PortDirection, id uint32, blob api.ParamBlob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrSendPortSetParam != nil {
		return r.ErrSendPortSetParam
	}
	r.PortSetParams = append(r.PortSetParams, PortSetParamCall{Seq: seq, Dir: dir, ID: id, Blob: blob})
	return nil
}

func (r *ResourceChannel) SendCommand(seq uint32, cmd api.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrSendCommand != nil {
		return r.ErrSendCommand
	}
	r.Commands = append(r.Commands, struct {
		Seq uint32
		Cmd api.Command
	}{seq, cmd})
	return nil
}

func (r *ResourceChannel) SendPortUseBuffers(seq uint32, dir api.PortDirection, id uint32, buffers []api.ClientBuffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrSendPortUseBuffers != nil {
		return r.ErrSendPortUseBuffers
	}
	r.UseBuffers = append(r.UseBuffers, UseBuffersCall{Seq: seq, Dir: dir, ID: id, Buffers: buffers})
	return nil
}

func (r *ResourceChannel) SendSetActive(active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrSendSetActive != nil {
		return r.ErrSendSetActive
	}
	r.SetActives = append(r.SetActives, active)
	return nil
}

func (r *ResourceChannel) PublishTransport(handle api.ResourceHandle, memFD, wakeupUs, wakeupThem uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrPublishTransport != nil {
		return r.ErrPublishTransport
	}
	r.PublishedTransports = append(r.PublishedTransports, PublishTransportCall{
		Handle: handle, MemFD: memFD, WakeupUs: wakeupUs, WakeupThem: wakeupThem,
	})
	return nil
}

func (r *ResourceChannel) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrDestroy != nil {
		return r.ErrDestroy
	}
	r.Destroyed = true
	return nil
}

// LastSetParamSeq returns the seq of the most recent SendSetParam call,
// or 0 if none happened yet. Convenience for tests that only care about
// the latest async request.
func (r *ResourceChannel) LastSetParamSeq() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.SetParams) == 0 {
		return 0
	}
	return r.SetParams[len(r.SetParams)-1].Seq
}

var _ api.ResourceChannel = (*ResourceChannel)(nil)
