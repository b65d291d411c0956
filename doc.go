// Package fence provides single-shot completion fences for coordinating work
// across independent execution engines, in the style of graphics and DMA
// pipelines: a producer publishes a [Fence] alongside the work it submits,
// and consumers block, poll, or register callbacks against it.
//
// # Lifecycle
//
// A fence starts unsignaled and transitions to signaled exactly once, via
// [Fence.Signal]. The transition wakes every blocked [Fence.Wait] and
// [Fence.WaitTimeout] call and invokes every callback registered with
// [Fence.AddCallback], in FIFO order, from the signaling goroutine.
//
// Fences are reference counted ([Fence.Get], [Fence.Put]) so that producers
// and any number of consumers can hold them independently. Dropping the final
// reference runs the variant's release hook; doing so while waiters are still
// queued panics, as that is always a lifetime bug in the caller.
//
// # Variants and deferred signaling
//
// Custom fence variants embed a [Fence] and initialize it with [Init] and an
// [Ops] table. The EnableSignaling hook supports engines where completion
// detection has a cost (an interrupt to enable, a poll loop to start): it is
// deferred until the first waiter or callback actually needs it, and runs at
// most once per fence.
//
// [SeqnoFence] is the built-in variant: completion is a threshold test
// against a 32-bit sequence cell in shared memory (see
// [github.com/joeycumines/go-fence/memcell]), letting engines that only
// share memory agree on ordering without sharing Go objects.
//
// Software-only fences, from [New], have no machinery behind them at all:
// they signal when told to and never anything else.
//
// # Interruption
//
// Blocking operations accept a [context.Context] in place of an interrupt
// flag: cancellation and deadlines end the wait with the context's error,
// while a nil or never-canceled context waits indefinitely.
// [Fence.WaitTimeout] additionally carries an explicit budget, and reports
// the unconsumed remainder so callers can spread one budget across several
// fences.
//
// # Logging
//
// The package is silent by default. [SetLogger] installs a
// [github.com/joeycumines/logiface] logger for trace-level state transitions.
package fence
