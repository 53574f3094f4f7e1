package shmring

import (
	"runtime"
	"sync"
	"testing"
)

// TestRingWrap is seed scenario A: size=16, write 10 bytes of 0x01..0x0A,
// read 5, write 8 bytes of 0x0B..0x12, read 13. The reader must see
// 0x06..0x12 in order.
func TestRingWrap(t *testing.T) {
	const size = 16
	r := New(size)
	storage := make([]byte, size)

	writeBytes := func(b []byte) {
		idx, fill := r.GetWriteIndex()
		if int32(len(b)) > int32(size)-fill {
			t.Fatalf("write would overrun: fill=%d len=%d", fill, len(b))
		}
		WriteData(storage, idx&r.Mask(), b)
		r.WriteUpdate(idx + uint32(len(b)))
	}
	readBytes := func(n int) []byte {
		idx, fill := r.GetReadIndex()
		if int32(n) > fill {
			t.Fatalf("read underrun: fill=%d n=%d", fill, n)
		}
		out := make([]byte, n)
		ReadData(storage, idx&r.Mask(), out)
		r.ReadUpdate(idx + uint32(n))
		return out
	}

	writeBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	readBytes(5)
	writeBytes([]byte{11, 12, 13, 14, 15, 16, 17, 18})
	got := readBytes(13)

	want := []byte{6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d want %d", i, got[i], want[i])
		}
	}
}

// TestRoundTrip is property 1: for any sequence of single-producer
// write/write_update and single-consumer read/read_update with total bytes
// <= size, bytes read equal bytes written in order.
func TestRoundTrip(t *testing.T) {
	const size = 64
	r := New(size)
	storage := make([]byte, size)

	var written, read []byte
	writeIdx, readIdx := uint32(0), uint32(0)

	chunks := [][]byte{
		{1, 2, 3}, {4}, {5, 6, 7, 8, 9, 10}, {11, 12}, {}, {13, 14, 15, 16, 17, 18, 19, 20},
	}
	for _, c := range chunks {
		_, fill := r.GetWriteIndex()
		if int32(len(c)) > int32(size)-fill {
			// drain fully before continuing, matching a real consumer cadence.
			_, rfill := r.GetReadIndex()
			out := make([]byte, rfill)
			ReadData(storage, readIdx&r.Mask(), out)
			read = append(read, out...)
			readIdx += uint32(rfill)
			r.ReadUpdate(readIdx)
		}
		WriteData(storage, writeIdx&r.Mask(), c)
		writeIdx += uint32(len(c))
		r.WriteUpdate(writeIdx)
		written = append(written, c...)
	}
	_, rfill := r.GetReadIndex()
	out := make([]byte, rfill)
	ReadData(storage, readIdx&r.Mask(), out)
	read = append(read, out...)
	readIdx += uint32(rfill)
	r.ReadUpdate(readIdx)

	if len(read) != len(written) {
		t.Fatalf("length mismatch: read %d written %d", len(read), len(written))
	}
	for i := range written {
		if read[i] != written[i] {
			t.Fatalf("byte %d: read %d written %d", i, read[i], written[i])
		}
	}
}

// TestFillInvariant checks 0 <= fill <= size holds at rest after any
// sequence of writes/reads, and that underrun/overrun are only ever
// transiently observable via a signed difference, never asserted.
func TestFillInvariant(t *testing.T) {
	const size = 32
	r := New(size)
	storage := make([]byte, size)

	for i := 0; i < 100; i++ {
		_, wfill := r.GetWriteIndex()
		space := int32(size) - wfill
		n := int32(i % 7)
		if n > space {
			n = space
		}
		if n > 0 {
			idx, _ := r.GetWriteIndex()
			buf := make([]byte, n)
			WriteData(storage, idx&r.Mask(), buf)
			r.WriteUpdate(idx + uint32(n))
		}
		idx, rfill := r.GetReadIndex()
		if rfill < 0 || rfill > int32(size) {
			t.Fatalf("fill invariant violated: %d", rfill)
		}
		if rfill > 0 {
			r.ReadUpdate(idx + uint32(rfill/2))
		}
	}
}

// TestConcurrentVisibility is property 2: the consumer must never observe
// bytes not yet release-stored by the producer. Run under -race.
func TestConcurrentVisibility(t *testing.T) {
	const size = 1024
	const total = 200000
	r := New(size)
	storage := make([]byte, size)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var idx uint32
		for i := 0; i < total; i++ {
			for {
				_, fill := r.GetWriteIndex()
				if int32(size)-fill >= 1 {
					break
				}
				runtime.Gosched()
			}
			b := []byte{byte(i)}
			WriteData(storage, idx&r.Mask(), b)
			idx++
			r.WriteUpdate(idx)
		}
	}()

	go func() {
		defer wg.Done()
		var idx uint32
		for i := 0; i < total; i++ {
			for {
				_, fill := r.GetReadIndex()
				if fill >= 1 {
					break
				}
				runtime.Gosched()
			}
			out := make([]byte, 1)
			ReadData(storage, idx&r.Mask(), out)
			if out[0] != byte(i) {
				t.Errorf("observed stale byte at %d: got %d want %d", i, out[0], byte(i))
				return
			}
			idx++
			r.ReadUpdate(idx)
		}
	}()

	wg.Wait()
}
