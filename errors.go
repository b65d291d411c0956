package fence

import (
	"errors"
)

var (
	// ErrAlreadySignaled is returned by [Fence.Signal] when the fence has
	// already been signaled, and by [Fence.AddCallback] when registration
	// would be pointless because the fence completed first.
	//
	// Callers that treat completion as success should match this error with
	// [errors.Is] and continue.
	ErrAlreadySignaled = errors.New(`fence: already signaled`)

	// ErrTimeout is returned by [Fence.WaitTimeout] when the budget elapsed
	// before the fence was signaled.
	ErrTimeout = errors.New(`fence: wait timed out`)

	// ErrMisalignedOffset is returned by [NewSeqno] when the sequence cell
	// offset is not 4-byte aligned.
	ErrMisalignedOffset = errors.New(`fence: seqno: misaligned offset`)
)
