// File: internal/bodypool/bodypool_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bodypool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireReturnsExactLength(t *testing.T) {
	p := New(2, 64)
	buf := p.Acquire(10)
	require.Len(t, buf, 10)
}

func TestAcquireOversizeBypassesPool(t *testing.T) {
	p := New(1, 16)
	buf := p.Acquire(1024)
	require.Len(t, buf, 1024)
}

func TestReleaseThenAcquireReusesSlot(t *testing.T) {
	p := New(1, 32)
	first := p.Acquire(32)
	for i := range first {
		first[i] = 0xAA
	}
	p.Release(first)

	second := p.Acquire(32)
	require.Len(t, second, 32)
	require.Equal(t, byte(0xAA), second[0])
}

func TestReleaseDiscardsWhenPoolFull(t *testing.T) {
	p := New(1, 16)
	a := p.Acquire(16)
	b := make([]byte, 16)
	p.Release(a)
	p.Release(b) // pool already has one slot back; this one is discarded
	// No panic, no blocking: that's the behavior under test.
}
