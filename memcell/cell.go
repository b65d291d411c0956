// Package memcell provides fixed-size memory regions with atomic 32-bit
// access, suitable as the backing store for sequence-number fences. Cells are
// either heap-backed ([NewHeap], process-local) or file-backed ([Map], shared
// between processes on unix via mmap).
package memcell

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Cell is a byte region supporting atomic 32-bit loads, stores, and adds at
// 4-byte-aligned offsets. All access methods are safe for concurrent use; the
// caller must not use a Cell after [Cell.Close].
//
// Cells carry an optional reference count ([Cell.Ref], [Cell.Unref]) so a
// consumer such as a sequence fence can keep the region alive independently
// of the creator. The creating call holds the initial reference, and the
// final [Cell.Unref] closes the cell.
type Cell struct {
	b     []byte
	refs  atomic.Int64
	unmap func(b []byte) error
}

// NewHeap returns a process-local cell of the given size, which must be a
// positive multiple of 4.
func NewHeap(size int) *Cell {
	x := &Cell{b: make([]byte, checkSize(size))}
	x.refs.Store(1)
	return x
}

func checkSize(size int) int {
	if size <= 0 || size%4 != 0 {
		panic(fmt.Sprintf(`memcell: size must be a positive multiple of 4, got %d`, size))
	}
	return size
}

func (x *Cell) ptr32(offset int) *uint32 {
	if x.b == nil {
		panic(`memcell: use of closed cell`)
	}
	if offset < 0 || offset+4 > len(x.b) {
		panic(fmt.Sprintf(`memcell: offset %d out of range [0, %d)`, offset, len(x.b)))
	}
	if offset%4 != 0 {
		panic(fmt.Sprintf(`memcell: misaligned offset %d`, offset))
	}
	return (*uint32)(unsafe.Pointer(&x.b[offset]))
}

// Load32 atomically loads the value at the given byte offset. Panics on an
// out-of-range or misaligned offset.
func (x *Cell) Load32(offset int) uint32 {
	return atomic.LoadUint32(x.ptr32(offset))
}

// Store32 atomically stores v at the given byte offset.
func (x *Cell) Store32(offset int, v uint32) {
	atomic.StoreUint32(x.ptr32(offset), v)
}

// Add32 atomically adds delta to the value at the given byte offset and
// returns the new value.
func (x *Cell) Add32(offset int, delta uint32) uint32 {
	return atomic.AddUint32(x.ptr32(offset), delta)
}

// Size returns the cell size in bytes, or 0 once closed.
func (x *Cell) Size() int { return len(x.b) }

// Ref takes an additional reference. Panics if the final reference has
// already been dropped.
func (x *Cell) Ref() {
	if x.refs.Add(1) <= 1 {
		panic(`memcell: ref: use after final reference`)
	}
}

// Unref drops a reference, closing the cell on the final drop. Errors from
// the implied close are discarded; call [Cell.Close] directly if they
// matter.
func (x *Cell) Unref() {
	switch n := x.refs.Add(-1); {
	case n > 0:
	case n == 0:
		_ = x.Close()
	default:
		panic(fmt.Sprintf(`memcell: unref: refcount underflow (%d)`, n))
	}
}

// Close releases the region, unmapping it if file-backed. Idempotent.
// The caller is responsible for ensuring no concurrent access.
func (x *Cell) Close() error {
	b := x.b
	if b == nil {
		return nil
	}
	x.b = nil
	if x.unmap != nil {
		return x.unmap(b)
	}
	return nil
}
