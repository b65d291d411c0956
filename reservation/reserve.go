package reservation

import (
	"context"
	"time"

	"github.com/joeycumines/go-fence"
	"github.com/joeycumines/go-fence/internal/wrap"
)

// Reserve acquires every object in list, in list order, stamping the attempt
// with a fresh ticket, and snapshots per entry the fences the batch's new
// work must order after: for exclusive intent all shared fences (or, if
// none, the exclusive fence), for shared intent the exclusive fence.
//
// Collisions with concurrent batches resolve by ticket age. Holding the
// older ticket, Reserve waits for the object and retries it; holding the
// newer one, it releases everything, waits, and restarts the batch under a
// fresh ticket. An object encountered twice in one batch is acquired once
// and counts as success.
//
// Returns [ErrSharedCapacity] if a shared-intent entry finds its object's
// shared fence set full, and the context error if ctx ends the wait for a
// contended object; in both cases the batch has been fully backed off. A nil
// context waits indefinitely. On any error the entries hold no reservations
// and no fences.
//
// The caller must follow a successful Reserve with [Domain.Commit] or
// [Domain.Backoff], and must not reserve two lists from one goroutine at
// the same time, which would defeat the deadlock avoidance.
func (x *Domain) Reserve(ctx context.Context, list *List) error {
	entries := list.Entries()
	for _, e := range entries {
		e.reserved = false
		e.dropFences()
	}

restart:
	x.mu.Lock()
	ticket := x.nextTicketLocked()
	for i, e := range entries {
		obj := e.obj
		for {
			cur := obj.reserved.Load()
			if cur == 0 {
				obj.reserved.Store(ticket)
				e.reserved = true
				break
			}
			if cur == ticket {
				// an earlier entry in this batch already holds it
				break
			}
			if wrap.Before(ticket, cur) {
				// the holder drew a later ticket, and backs off to older
				// tickets on collision; wait it out, keeping what we hold,
				// then take another run at this object
				ch := obj.event
				x.mu.Unlock()
				x.logContention(obj, ticket, cur, false)
				if err := waitEvent(ctx, ch); err != nil {
					x.Backoff(list)
					return err
				}
				x.mu.Lock()
				continue
			}
			// held by an older ticket: it wins. Release everything acquired
			// so far, in reverse, then wait and restart under a fresh ticket.
			for j := i - 1; j >= 0; j-- {
				if entries[j].reserved {
					entries[j].reserved = false
					entries[j].obj.releaseLocked()
				}
			}
			ch := obj.event
			x.mu.Unlock()
			x.logContention(obj, ticket, cur, true)
			if err := waitEvent(ctx, ch); err != nil {
				return err
			}
			goto restart
		}
	}

	// snapshot fences, still under the lock; the slots of objects this batch
	// reserves cannot change concurrently
	for _, e := range entries {
		obj := e.obj
		if e.shared && obj.sharedCount == MaxSharedFences {
			x.backoffLocked(entries)
			x.mu.Unlock()
			x.logger.Warning().
				Uint64(`ticket`, uint64(ticket)).
				Log(`reservation: shared fence capacity exhausted`)
			return ErrSharedCapacity
		}
		switch {
		case !e.shared && obj.sharedCount > 0:
			for s := 0; s < obj.sharedCount; s++ {
				e.fences[s] = obj.shared[s].Get()
			}
			e.numFences = obj.sharedCount
		case obj.excl != nil:
			e.fences[0] = obj.excl.Get()
			e.numFences = 1
		}
	}
	x.mu.Unlock()
	return nil
}

func waitEvent(ctx context.Context, ch <-chan struct{}) error {
	if ctx == nil {
		<-ch
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff abandons the batch: every still-reserved entry releases its
// object, collected fences are dropped, and waiters on the released objects
// are woken. Safe to call regardless of how far Reserve got, and idempotent.
func (x *Domain) Backoff(list *List) {
	x.mu.Lock()
	x.backoffLocked(list.Entries())
	x.mu.Unlock()
}

// caller holds mu
func (x *Domain) backoffLocked(entries []*Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.reserved {
			e.reserved = false
			e.obj.releaseLocked()
		}
		e.dropFences()
	}
}

// WaitCollected blocks until every fence collected by the last Reserve of
// list has signaled, sharing one budget across the whole batch: each wait
// consumes from what the previous waits left. The collected fences of an
// entry are dropped as the entry completes.
//
// Returns the unconsumed budget on success. The first timeout, context
// error, or failure wins and is returned with the budget remaining at that
// point; already-completed entries stay consumed, the rest keep their
// collected fences, and the caller decides between retrying and
// [Domain.Backoff].
func WaitCollected(ctx context.Context, list *List, timeout time.Duration) (time.Duration, error) {
	remaining := timeout
	for _, e := range list.Entries() {
		for i := 0; i < e.numFences; i++ {
			var err error
			if remaining, err = e.fences[i].WaitTimeout(ctx, remaining); err != nil {
				return remaining, err
			}
		}
		e.dropFences()
	}
	return remaining, nil
}

// Commit publishes f across the batch and releases every reservation: each
// shared-intent entry appends f to its object's shared set, each
// exclusive-intent entry first drops all of its object's prior fences and
// then installs f as the exclusive fence. A reference to f is taken per
// entry; the caller's reference is untouched.
//
// The first phase, shedding prior fences from exclusively-used objects, runs
// outside the domain lock: the batch still holds those objects, so nothing
// else may touch their slots.
//
// Commit on a list that is not reserved panics.
func (x *Domain) Commit(list *List, f *fence.Fence) {
	if f == nil {
		panic(`reservation: commit: nil fence`)
	}
	entries := list.Entries()
	for _, e := range entries {
		// an entry may cover an object held via an earlier duplicate entry
		if !e.reserved && e.obj.reserved.Load() == 0 {
			panic(`reservation: commit: list not reserved`)
		}
	}

	for _, e := range entries {
		if e.shared {
			continue
		}
		obj := e.obj
		for i := 0; i < obj.sharedCount; i++ {
			obj.shared[i].Put()
			obj.shared[i] = nil
		}
		obj.sharedCount = 0
		if obj.excl != nil {
			obj.excl.Put()
			obj.excl = nil
		}
	}

	x.mu.Lock()
	for _, e := range entries {
		obj := e.obj
		if e.shared {
			if obj.sharedCount == MaxSharedFences {
				panic(`reservation: commit: shared fence overflow`)
			}
			obj.shared[obj.sharedCount] = f.Get()
			obj.sharedCount++
		} else {
			obj.excl = f.Get()
		}
		if e.reserved {
			e.reserved = false
			obj.releaseLocked()
		}
	}
	x.mu.Unlock()
}
