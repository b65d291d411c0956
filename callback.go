package fence

type (
	// CallbackFunc is invoked when the fence the callback was registered on
	// is signaled. It runs on the signaling goroutine, possibly from inside
	// [Fence.Signal], [Fence.EnableSWSignaling], or [Fence.AddCallback], and
	// therefore must not block and must not call back into the same fence's
	// blocking operations.
	CallbackFunc func(f *Fence, cb *Callback)

	// Callback is a queue entry for [Fence.AddCallback]. A Callback may be
	// registered on at most one fence at a time, and may be reused after the
	// fence signals or after a successful [Fence.RemoveCallback].
	//
	// Priv is an opaque payload for the callback's own use; the fence layer
	// never touches it. It allows a CallbackFunc to recover per-registration
	// state from its *Callback argument without a closure allocation.
	Callback struct {
		Priv any
		next *Callback
		fn   CallbackFunc
		// owning fence while queued, nil otherwise, guarded by the owning
		// fence's lock
		f *Fence
	}
)

// AddCallback registers cb to be invoked with fn when x signals. If x is
// already signaled it returns [ErrAlreadySignaled] without invoking fn.
// Otherwise it ensures signaling is enabled (invoking the variant hook if
// this is the first time) before queuing cb.
//
// Panics if cb or fn is nil, or if cb is observed to be registered already.
func (x *Fence) AddCallback(cb *Callback, fn CallbackFunc) error {
	if cb == nil {
		panic(`fence: add callback: nil callback`)
	}
	if fn == nil {
		panic(`fence: add callback: nil func`)
	}
	x.mu.Lock()
	if x.flags.Load()&flagSignaled != 0 {
		x.mu.Unlock()
		return ErrAlreadySignaled
	}
	pending := x.enableLocked()
	if x.flags.Load()&flagSignaled != 0 {
		x.mu.Unlock()
		x.invoke(pending)
		return ErrAlreadySignaled
	}
	if cb.f != nil {
		x.mu.Unlock()
		panic(`fence: add callback: callback already registered`)
	}
	cb.f = x
	cb.fn = fn
	cb.next = nil
	if x.tail == nil {
		x.head = cb
	} else {
		x.tail.next = cb
	}
	x.tail = cb
	x.mu.Unlock()
	return nil
}

// RemoveCallback deregisters cb, returning true if it was still queued on x.
// A false return means the fence signaled first; the callback may be running
// concurrently, or may already have run, and RemoveCallback makes no attempt
// to wait for it.
func (x *Fence) RemoveCallback(cb *Callback) bool {
	if cb == nil {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if cb.f != x {
		return false
	}
	var prev *Callback
	for c := x.head; c != nil; prev, c = c, c.next {
		if c != cb {
			continue
		}
		if prev == nil {
			x.head = c.next
		} else {
			prev.next = c.next
		}
		if x.tail == c {
			x.tail = prev
		}
		cb.next = nil
		cb.fn = nil
		cb.f = nil
		return true
	}
	// cb.f said queued but the queue disagrees
	panic(`fence: remove callback: queue corrupted`)
}
