package fence

import (
	"unsafe"

	"github.com/joeycumines/go-fence/internal/wrap"
)

type (
	// Memory is the backing store a [SeqnoFence] observes: typically a cell
	// shared with whatever advances the sequence, such as a
	// [github.com/joeycumines/go-fence/memcell.Cell].
	Memory interface {
		// Load32 atomically loads the 32-bit value at the given byte offset.
		Load32(offset int) uint32
	}

	// MemoryRefs is optionally implemented by [Memory] values with reference
	// counted lifetimes. [NewSeqno] takes a reference, and the fence drops it
	// when the final fence reference is put.
	MemoryRefs interface {
		Ref()
		Unref()
	}

	// SeqnoFence is a fence variant whose completion condition is a sequence
	// threshold on shared memory: it has passed once the 32-bit value at a
	// fixed offset reaches the target, compared with wraparound semantics.
	//
	// Observers poll via [SeqnoFence.Passed] or [Fence.IsSignaled]; because
	// nothing watches the cell on their behalf, whoever advances the sequence
	// must also call [Fence.Signal] to wake blocked waiters. The variant's
	// enable-signaling hook short-circuits the already-passed case, so such
	// fences signal as soon as anything waits on them.
	SeqnoFence struct {
		// must remain first, the variant downcast relies on it
		f      Fence
		mem    Memory
		offset int
		target uint32
	}
)

var seqnoOps = &Ops{
	EnableSignaling: func(f *Fence) bool {
		return !fromFence(f).Passed()
	},
	Release: func(f *Fence) {
		x := fromFence(f)
		if r, ok := x.mem.(MemoryRefs); ok {
			r.Unref()
		}
		x.mem = nil
	},
}

// f must have been initialized with seqnoOps
func fromFence(f *Fence) *SeqnoFence {
	return (*SeqnoFence)(unsafe.Pointer(f))
}

// NewSeqno returns a fence that is considered passed once the 32-bit value
// at the given byte offset of mem reaches target, under wrapping sequence
// comparison. If mem implements [MemoryRefs] a reference is taken, and
// released when the fence is destroyed.
//
// Returns [ErrMisalignedOffset] unless offset is non-negative and 4-byte
// aligned. priv is the opaque payload of the underlying [Fence].
func NewSeqno(mem Memory, offset int, target uint32, priv any) (*SeqnoFence, error) {
	if mem == nil {
		panic(`fence: seqno: nil memory`)
	}
	if offset < 0 || offset%4 != 0 {
		return nil, ErrMisalignedOffset
	}
	if r, ok := mem.(MemoryRefs); ok {
		r.Ref()
	}
	x := &SeqnoFence{
		mem:    mem,
		offset: offset,
		target: target,
	}
	Init(&x.f, seqnoOps, priv)
	return x, nil
}

// AsSeqno recovers the [SeqnoFence] a *Fence is embedded in, identified by
// its dispatch table. Returns (nil, false) for any other variant.
func AsSeqno(f *Fence) (*SeqnoFence, bool) {
	if f == nil || f.ops != seqnoOps {
		return nil, false
	}
	return fromFence(f), true
}

// Fence returns the embedded fence, for use with the fence-level API.
func (x *SeqnoFence) Fence() *Fence { return &x.f }

// Passed polls the completion condition against the backing memory. Unlike
// [Fence.IsSignaled] it reflects the sequence cell directly, whether or not
// anyone has signaled the fence yet.
func (x *SeqnoFence) Passed() bool {
	return wrap.AtLeast(x.mem.Load32(x.offset), x.target)
}

// Target returns the sequence value the fence waits for.
func (x *SeqnoFence) Target() uint32 { return x.target }

// Offset returns the byte offset of the observed cell.
func (x *SeqnoFence) Offset() int { return x.offset }

// Memory returns the backing store. Valid until the fence is destroyed.
func (x *SeqnoFence) Memory() Memory { return x.mem }
