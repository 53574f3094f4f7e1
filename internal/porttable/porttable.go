// File: internal/porttable/porttable.go
// Package porttable implements the proxy node's per-direction port
// registry: a fixed-capacity set of port slots tracking the Free ->
// Created -> Formatted -> Active lifecycle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package porttable

import (
	"fmt"
	"sync"

	"github.com/momentics/graph-proxy-node/api"
)

// State mirrors the proxy port lifecycle: Free -> Created -> Formatted ->
// Active -> Created (deactivated) or Free (removed). A slot absent from
// the table is Free; there is no explicit Free entry, so "free" and
// "invalid id" are the same observable state to callers.
type State int

const (
	StateCreated State = iota
	StateFormatted
	StateActive
)

func (s State) String() string {
	switch s {
	case StateFormatted:
		return "formatted"
	case StateActive:
		return "active"
	default:
		return "created"
	}
}

// Slot holds everything the proxy node tracks against one port id.
type Slot struct {
	State State
	Info  api.PortInfo
	IO    *api.PortIO
}

// Table is a fixed-capacity registry of port slots for one direction
// (input or output). Its capacity is set once, from the max_inputs/
// max_outputs negotiated over the control channel before any port may
// be created.
type Table struct {
	mu    sync.RWMutex
	dir   api.PortDirection
	max   int
	slots map[uint32]*Slot
}

// New builds an empty table with the given direction and capacity.
func New(dir api.PortDirection, max int) *Table {
	return &Table{dir: dir, max: max, slots: make(map[uint32]*Slot, max)}
}

// Direction returns the table's port direction.
func (t *Table) Direction() api.PortDirection { return t.dir }

// Len returns the number of currently created ports.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Max returns the negotiated capacity.
func (t *Table) Max() int { return t.max }

// AddPort creates a new Created-state slot for id. Fails if id already
// exists or the table is already at capacity.
func (t *Table) AddPort(id uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.slots[id]; ok {
		return fmt.Errorf("%w: port %d already exists", api.ErrAlreadyExists, id)
	}
	if len(t.slots) >= t.max {
		return fmt.Errorf("%w: port table at capacity (%d)", api.ErrNotSupported, t.max)
	}
	t.slots[id] = &Slot{State: StateCreated}
	return nil
}

// RemovePort clears the slot unconditionally, returning it to Free, even
// if it was Active. Tearing down an active port without first
// deactivating it mirrors do_uninit_port in PipeWire's client-node.c,
// which removes a port regardless of its buffer/activity state.
func (t *Table) RemovePort(id uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.slots[id]; !ok {
		return fmt.Errorf("%w: port %d", api.ErrNotFound, id)
	}
	delete(t.slots, id)
	return nil
}

// Get returns the slot for id, if created.
func (t *Table) Get(id uint32) (Slot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.slots[id]
	if !ok {
		return Slot{}, false
	}
	return *s, true
}

// IDs copies up to len(out) port ids into out, returning the count
// written. Order is unspecified; callers requiring a stable order must
// sort it themselves.
func (t *Table) IDs(out []uint32) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for id := range t.slots {
		if n >= len(out) {
			break
		}
		out[n] = id
		n++
	}
	return n
}

// SetInfo records the port's descriptive metadata (set on creation).
func (t *Table) SetInfo(id uint32, info api.PortInfo) error {
	return t.mutate(id, func(s *Slot) error {
		s.Info = info
		return nil
	})
}

// SetFormatted flips the port to Formatted, which a Format parameter
// write does once have_format becomes true for it.
func (t *Table) SetFormatted(id uint32) error {
	return t.mutate(id, func(s *Slot) error {
		if s.State == StateActive {
			return nil
		}
		s.State = StateFormatted
		return nil
	})
}

// SetActive transitions the port to Active (active=true) or back to
// Created (active=false), matching the state diagram's two return edges
// from Active.
func (t *Table) SetActive(id uint32, active bool) error {
	return t.mutate(id, func(s *Slot) error {
		if active {
			if s.State != StateFormatted {
				return fmt.Errorf("%w: port %d must be formatted before activation", api.ErrNotReady, id)
			}
			s.State = StateActive
			return nil
		}
		s.State = StateCreated
		return nil
	})
}

// SetIO installs the shared-memory PortIO slot pointer the data loop
// polls directly, per Node.PortSetIO.
func (t *Table) SetIO(id uint32, io *api.PortIO) error {
	return t.mutate(id, func(s *Slot) error {
		s.IO = io
		return nil
	})
}

func (t *Table) mutate(id uint32, fn func(*Slot) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[id]
	if !ok {
		return fmt.Errorf("%w: port %d", api.ErrNotFound, id)
	}
	return fn(s)
}
