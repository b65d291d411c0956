// Package reservation provides deadlock-free multi-object reservation with
// fence tracking, for pipelines where a batch of shared buffers must be
// locked together, have outstanding work waited on or chained after, and then
// be republished with a fence covering the new work.
//
// # Protocol
//
// Each [Object] tracks one exclusive fence (the last writer) and a bounded
// ordered set of shared fences (readers since that writer). A [Domain]
// serializes all slot mutation and reservation state for the objects used
// with it, and issues the tickets that make multi-object acquisition safe.
//
// The usual cycle, driven through an [Entry] batch ([List]):
//
//  1. [Domain.Reserve] acquires every object in the batch, using
//     wound-or-wait ticket ordering to resolve overlapping batches, and
//     snapshots the fences the new work must come after.
//  2. The caller either waits for the collected fences
//     ([WaitCollected]) or registers callbacks on them
//     (see [Entry.Get] and [Entry.Callback] for the join-counter idiom).
//  3. [Domain.Commit] publishes a single new fence across the batch,
//     replacing prior fences on exclusively-used objects, and releases every
//     reservation.
//
// [Domain.Backoff] abandons a reserved batch without publishing, for error
// paths between reserve and commit.
//
// # Deadlock avoidance
//
// Reserve stamps each attempt with a ticket drawn from the domain's wrapping
// counter. On collision, the batch holding the newer ticket backs off
// completely and retries, while the older ticket's batch simply waits for the
// object to be released. Each batch acquires its objects in its own list
// order; the batch holding the oldest ticket never backs off, so overlapping
// batches reserved from different goroutines cannot deadlock, whatever their
// object order.
//
// # Concurrency
//
// Domain operations may be called from any goroutine. An [Entry] batch,
// however, belongs to whichever goroutine is driving it through the cycle
// above; entries and lists are not safe for unsynchronized sharing.
package reservation
