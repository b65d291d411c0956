package fence

import (
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	// set once, never cleared
	flagSignaled = 1 << iota
	// set once the variant's EnableSignaling hook has been (or is being)
	// invoked, or pre-set where no hook should ever run
	flagEnableSignal
)

type (
	// Ops is the dispatch table of a [Fence] variant. The *Ops pointer
	// identifies the variant: implementations that need to recover their
	// concrete type from a *Fence compare against their own table, in the
	// manner of [AsSeqno].
	Ops struct {
		// EnableSignaling is invoked, at most once per fence, the first time
		// something needs the fence to make forward progress on its own: a
		// waiter, a callback registration, or an explicit
		// [Fence.EnableSWSignaling] call. The implementation should arrange
		// for [Fence.Signal] to be called once the underlying operation
		// completes, and return true. Returning false means the operation has
		// already completed, and the fence is signaled immediately.
		//
		// Called without the fence lock held. Mandatory.
		EnableSignaling func(f *Fence) bool

		// Release is invoked when the final reference to the fence is
		// dropped, before the fence becomes unreachable. Optional.
		Release func(f *Fence)
	}

	// Fence is a single-shot completion object. It starts unsignaled and
	// transitions to signaled exactly once, waking blocked waiters and
	// invoking registered callbacks in registration order.
	//
	// Fences are reference counted. The creating call holds the initial
	// reference; use [Fence.Get] and [Fence.Put] to share. Dropping the final
	// reference while waiters or callbacks are still queued is a bug, and
	// panics.
	//
	// The zero value is not usable: construct with [New], or embed and
	// initialize with [Init].
	Fence struct {
		refs  atomic.Int64
		flags atomic.Uint32
		ops   *Ops
		priv  any
		mu    sync.Mutex
		// FIFO queue of waiters and callbacks, guarded by mu
		head *Callback
		tail *Callback
	}
)

// software-only fences have signaling pre-enabled, so the hook only runs if
// something re-initializes the flags word out from under us
var swOps = &Ops{
	EnableSignaling: func(f *Fence) bool {
		log().Warning().Log(`fence: enable signaling invoked on software fence`)
		return true
	},
}

// New returns a software-only fence: nothing will signal it except an
// explicit call to [Fence.Signal]. The enable-signaling hook is pre-armed so
// waiters and callbacks never trigger variant behavior.
//
// priv is an opaque payload, retrievable via [Fence.Priv].
func New(priv any) *Fence {
	x := &Fence{ops: swOps, priv: priv}
	x.refs.Store(1)
	x.flags.Store(flagEnableSignal)
	return x
}

// Init initializes f as a variant fence using the given dispatch table,
// holding the initial reference. It is intended for fences embedded in a
// larger structure. Panics if ops is nil or omits EnableSignaling.
func Init(f *Fence, ops *Ops, priv any) {
	if f == nil {
		panic(`fence: init: nil fence`)
	}
	if ops == nil || ops.EnableSignaling == nil {
		panic(`fence: init: ops must provide EnableSignaling`)
	}
	f.refs.Store(1)
	f.flags.Store(0)
	f.ops = ops
	f.priv = priv
	f.head = nil
	f.tail = nil
}

// Priv returns the opaque payload provided at construction.
func (x *Fence) Priv() any { return x.priv }

// Ops returns the variant dispatch table. The returned pointer is suitable
// for identity comparison.
func (x *Fence) Ops() *Ops { return x.ops }

// Get takes an additional reference and returns x, for convenience.
// Panics if the refcount has already hit zero.
func (x *Fence) Get() *Fence {
	if x.refs.Add(1) <= 1 {
		panic(`fence: get: use after final reference`)
	}
	return x
}

// Put drops a reference. On the final drop the variant's Release hook, if
// any, is invoked. Panics if waiters or callbacks are still queued at that
// point, since they would otherwise block or leak forever.
func (x *Fence) Put() {
	switch n := x.refs.Add(-1); {
	case n > 0:
	case n == 0:
		if x.head != nil {
			panic(`fence: put: released fence has queued waiters or callbacks`)
		}
		if x.ops.Release != nil {
			x.ops.Release(x)
		}
	default:
		panic(fmt.Sprintf(`fence: put: refcount underflow (%d)`, n))
	}
}

// IsSignaled reports whether the fence has been signaled. The load carries
// acquire semantics: observing true also guarantees visibility of every write
// made before the corresponding [Fence.Signal] call.
func (x *Fence) IsSignaled() bool {
	return x.flags.Load()&flagSignaled != 0
}

// Signal marks the fence signaled and drains the queue in FIFO order, waking
// waiters and invoking callbacks from the calling goroutine. Returns
// [ErrAlreadySignaled] if another call won the race, without invoking
// anything.
func (x *Fence) Signal() error {
	x.mu.Lock()
	pending, err := x.signalLocked()
	x.mu.Unlock()
	if err == nil {
		if b := log().Trace(); b.Enabled() {
			b.Int(`callbacks`, len(pending)).Log(`fence: signaled`)
		}
	}
	x.invoke(pending)
	return err
}

// caller holds mu; returned callbacks must be invoked after release of mu
func (x *Fence) signalLocked() (pending []*Callback, err error) {
	if x.flags.Load()&flagSignaled != 0 {
		return nil, ErrAlreadySignaled
	}
	x.flags.Or(flagSignaled)
	for cb := x.head; cb != nil; {
		next := cb.next
		cb.next = nil
		cb.f = nil
		pending = append(pending, cb)
		cb = next
	}
	x.head, x.tail = nil, nil
	return pending, nil
}

func (x *Fence) invoke(pending []*Callback) {
	for _, cb := range pending {
		fn := cb.fn
		cb.fn = nil
		fn(x, cb)
	}
}

// EnableSWSignaling forces the enable-signaling transition, for callers that
// intend to poll [Fence.IsSignaled] rather than block. The variant hook runs
// at most once per fence, without the fence lock held; a false return
// signals the fence immediately.
func (x *Fence) EnableSWSignaling() {
	x.mu.Lock()
	pending := x.enableLocked()
	x.mu.Unlock()
	x.invoke(pending)
}

// enableLocked performs the enable-signaling protocol. The caller must hold
// mu; the lock is dropped and reacquired around the variant hook. Returned
// callbacks were drained by an immediate signal and must be invoked once the
// caller releases mu.
func (x *Fence) enableLocked() (pending []*Callback) {
	if x.flags.Load()&(flagSignaled|flagEnableSignal) != 0 {
		return nil
	}
	x.flags.Or(flagEnableSignal)
	enable := x.ops.EnableSignaling
	x.mu.Unlock()
	log().Trace().Log(`fence: enabling signaling`)
	ok := enable(x)
	x.mu.Lock()
	if !ok {
		// the operation had already completed, or a concurrent Signal won
		pending, _ = x.signalLocked()
	}
	return pending
}
