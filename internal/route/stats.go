package route

import "sync/atomic"

// Stats contains router statistics.
type Stats struct {
	// Dispatched is the number of dispatch calls.
	Dispatched uint64

	// Invoked is the number of handler invocations.
	Invoked uint64

	// Succeeded is the number of invocations that returned a result.
	Succeeded uint64

	// Declined is the number of invocations that declined.
	Declined uint64

	// Failed is the number of invocations that returned any other error.
	Failed uint64

	// Panicked is the number of invocations that panicked.
	Panicked uint64

	// Blocked is the number of candidates skipped because they were blocked.
	Blocked uint64

	// Filtered is the number of candidates skipped by the version ceiling
	// or the target identifier.
	Filtered uint64

	// NotFound is the number of dispatches that ran out of candidates.
	NotFound uint64

	// Registrations is the current number of registrations.
	Registrations int

	// Paths is the current number of path nodes, excluding the root.
	Paths int

	// BlockedIDs is the current size of the blocked set.
	BlockedIDs int
}

// counters holds the live statistics of a router.
type counters struct {
	dispatched atomic.Uint64
	invoked    atomic.Uint64
	succeeded  atomic.Uint64
	declined   atomic.Uint64
	failed     atomic.Uint64
	panicked   atomic.Uint64
	blocked    atomic.Uint64
	filtered   atomic.Uint64
	notFound   atomic.Uint64
}
