package reservation

import (
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-fence"
)

type (
	// Entry pairs an [Object] with the intent of one batch against it:
	// shared (the new work only reads) or exclusive (it writes). Reserve
	// fills the entry with the fences the new work must order after.
	//
	// Entries are reference counted so that completion handling can be
	// deferred: take one reference per collected fence ([Entry.Get]),
	// register the matching embedded callback slot ([Entry.Callback]) on
	// each, and drop a reference from each callback. The final [Entry.Put]
	// runs the release hook, by default detaching the entry from its [List]
	// and dropping any still-collected fences.
	Entry struct {
		obj    *Object
		shared bool
		// whether this entry currently holds its object's reservation;
		// meaningful only to the goroutine driving the batch
		reserved bool
		// fences collected by Reserve
		fences    [MaxSharedFences]*fence.Fence
		numFences int
		refs      atomic.Int64
		// one callback slot per possible collected fence
		waits   [MaxSharedFences]fence.Callback
		priv    any
		release func(e *Entry)
		list    *List
	}

	// List is an ordered batch of entries. Reserve acquires, and Commit
	// publishes, in the order entries were added; the order has no
	// correctness impact, only the usual lock-ordering fairness effects.
	List struct {
		entries []*Entry
	}
)

// NewEntry returns an entry for obj with the given intent, holding the
// initial reference. priv is an opaque payload, retrievable via [Entry.Priv].
func NewEntry(obj *Object, shared bool, priv any) *Entry {
	if obj == nil {
		panic(`reservation: new entry: nil object`)
	}
	x := &Entry{obj: obj, shared: shared, priv: priv}
	x.refs.Store(1)
	return x
}

// Object returns the object this entry reserves.
func (x *Entry) Object() *Object { return x.obj }

// Shared reports whether the entry's intent is shared (read) rather than
// exclusive (write).
func (x *Entry) Shared() bool { return x.shared }

// Reserved reports whether the entry currently holds its object's
// reservation. Only meaningful to the goroutine driving the batch.
func (x *Entry) Reserved() bool { return x.reserved }

// Priv returns the opaque payload provided to [NewEntry].
func (x *Entry) Priv() any { return x.priv }

// Fences returns the fences collected by the last Reserve, in slot order.
// The returned slice aliases the entry and is valid until the collected set
// is consumed, backed off, or the entry released.
func (x *Entry) Fences() []*fence.Fence {
	return x.fences[:x.numFences]
}

// Callback returns the i'th embedded callback slot, one per possible
// collected fence. The slots are for the entry holder's own use; the
// reservation layer never touches them.
func (x *Entry) Callback(i int) *fence.Callback {
	return &x.waits[i]
}

// SetRelease replaces the hook run by the final [Entry.Put]. A nil fn
// restores the default, which detaches the entry from its list and drops any
// collected fences.
func (x *Entry) SetRelease(fn func(e *Entry)) {
	x.release = fn
}

// Get takes an additional reference and returns x, for convenience.
func (x *Entry) Get() *Entry {
	if x.refs.Add(1) <= 1 {
		panic(`reservation: entry get: use after final reference`)
	}
	return x
}

// Put drops a reference, running the release hook on the final drop.
func (x *Entry) Put() {
	switch n := x.refs.Add(-1); {
	case n > 0:
	case n == 0:
		if x.release != nil {
			x.release(x)
		} else {
			x.Detach()
			x.dropFences()
		}
	default:
		panic(fmt.Sprintf(`reservation: entry put: refcount underflow (%d)`, n))
	}
}

// Detach removes the entry from its list, if any.
func (x *Entry) Detach() {
	if x.list != nil {
		x.list.remove(x)
	}
}

func (x *Entry) dropFences() {
	for i := 0; i < x.numFences; i++ {
		x.fences[i].Put()
		x.fences[i] = nil
	}
	x.numFences = 0
}

// NewList returns a list of the given entries, in order.
func NewList(entries ...*Entry) *List {
	x := &List{}
	for _, e := range entries {
		x.Add(e)
	}
	return x
}

// Add appends e to the batch. Panics if e is already in a list.
func (x *List) Add(e *Entry) {
	if e.list != nil {
		panic(`reservation: list add: entry already in a list`)
	}
	e.list = x
	x.entries = append(x.entries, e)
}

// Entries returns the batch in order. The returned slice aliases the list.
func (x *List) Entries() []*Entry { return x.entries }

// Len returns the number of entries in the batch.
func (x *List) Len() int { return len(x.entries) }

func (x *List) remove(e *Entry) {
	for i, v := range x.entries {
		if v == e {
			x.entries = append(x.entries[:i], x.entries[i+1:]...)
			e.list = nil
			return
		}
	}
}
