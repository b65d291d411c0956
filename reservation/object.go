package reservation

import (
	"sync/atomic"

	"github.com/joeycumines/go-fence"
)

// MaxSharedFences bounds the shared fence set of an [Object], and with it the
// number of fences a single [Entry] can collect.
const MaxSharedFences = 8

// Object is the reservation state attached to one shared resource, typically
// a buffer: the ticket of the current holder, an event channel waiters block
// on, one exclusive fence slot, and a bounded ordered set of shared fences.
//
// All fence slot access and all reservation transitions are serialized by
// the [Domain] the object is used with; using one object with multiple
// domains forfeits every guarantee this package makes.
//
// Construct with [NewObject]; the zero value is not usable.
type Object struct {
	// ticket of the holder, 0 when free; written under the domain lock,
	// loaded atomically by observers
	reserved atomic.Uint32
	// closed and replaced on every release, under the domain lock
	event chan struct{}
	// fence slots, guarded by the domain lock while unreserved and owned by
	// the holder while reserved
	excl        *fence.Fence
	shared      [MaxSharedFences]*fence.Fence
	sharedCount int
}

// NewObject returns an object with no holder and no fences.
func NewObject() *Object {
	return &Object{event: make(chan struct{})}
}

// HeldBy returns the ticket of the current holder, or 0 if the object is not
// reserved. Inherently racy unless the caller is the holder.
func (x *Object) HeldBy() uint32 {
	return x.reserved.Load()
}

// Exclusive returns the exclusive fence slot, which covers the last
// exclusive use of the object. The caller must hold the reservation.
func (x *Object) Exclusive() *fence.Fence {
	return x.excl
}

// Shared returns a copy of the shared fence set, which covers shared uses
// since the last exclusive one, in commit order. The caller must hold the
// reservation.
func (x *Object) Shared() []*fence.Fence {
	if x.sharedCount == 0 {
		return nil
	}
	s := make([]*fence.Fence, x.sharedCount)
	copy(s, x.shared[:x.sharedCount])
	return s
}

// caller holds the domain lock
func (x *Object) broadcastLocked() {
	close(x.event)
	x.event = make(chan struct{})
}

// caller holds the domain lock
func (x *Object) releaseLocked() {
	x.reserved.Store(0)
	x.broadcastLocked()
}
