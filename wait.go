package fence

import (
	"context"
	"time"
)

// Wait blocks until the fence is signaled or ctx is done, whichever comes
// first, returning the context error in the latter case. A nil context, or
// one that can never be canceled such as [context.Background], makes the
// wait uninterruptible.
func (x *Fence) Wait(ctx context.Context) error {
	if x.IsSignaled() {
		return nil
	}
	var done <-chan struct{}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		done = ctx.Done()
	}
	ch := make(chan struct{})
	var cb Callback
	if err := x.AddCallback(&cb, func(*Fence, *Callback) { close(ch) }); err != nil {
		// signaled while we were setting up
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-done:
		if !x.RemoveCallback(&cb) {
			// lost the race to the signaler
			return nil
		}
		return ctx.Err()
	}
}

// WaitTimeout blocks until the fence is signaled, d elapses, or ctx is done.
//
// On success it returns the unconsumed budget (always greater than zero) and
// a nil error. On expiry it returns (0, [ErrTimeout]). On interruption it
// returns the remaining budget alongside the context error, so a caller
// waiting on a sequence of fences can resume with what is left.
//
// A non-positive d polls: it fails immediately with [ErrTimeout] unless the
// fence is already signaled. A nil context behaves as in [Fence.Wait].
func (x *Fence) WaitTimeout(ctx context.Context, d time.Duration) (time.Duration, error) {
	if x.IsSignaled() {
		if d <= 0 {
			d = time.Nanosecond
		}
		return d, nil
	}
	var done <-chan struct{}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return d, err
		}
		done = ctx.Done()
	}
	if d <= 0 {
		return 0, ErrTimeout
	}

	start := time.Now()
	ch := make(chan struct{})
	var cb Callback
	if err := x.AddCallback(&cb, func(*Fence, *Callback) { close(ch) }); err != nil {
		return d, nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	residue := func() time.Duration {
		if r := d - time.Since(start); r > 0 {
			return r
		}
		return 0
	}

	select {
	case <-ch:
	case <-done:
		if x.RemoveCallback(&cb) {
			return residue(), ctx.Err()
		}
		// signaled concurrently, fall through to success
	case <-timer.C:
		if x.RemoveCallback(&cb) {
			return 0, ErrTimeout
		}
		// signaled concurrently, fall through to success
	}
	r := residue()
	if r <= 0 {
		// signaled within budget, keep success distinguishable from expiry
		r = time.Nanosecond
	}
	return r, nil
}
