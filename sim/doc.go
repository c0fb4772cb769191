// Package sim provides a virtual-time, cooperative discrete-event simulation
// kernel centered on shared-resource admission.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - occurrence.go: the one-shot resolvable Occurrence and its continuation contract
//   - scheduler.go: the virtual clock and the (tick, seq)-ordered timeline
//   - resource.go: the admission core (Request/Release, FIFO-strict cascade, withdrawal)
//
// # Architecture
//
// Everything runs on one logical thread: the scheduler pops one timeline
// entry, resolves its occurrence, and every continuation that resolution
// triggers (cascaded admissions, resumed processes, re-entrant releases) runs
// to completion before the next entry is popped. Processes (process.go) are
// goroutines only as an implementation detail; a strict channel handshake
// keeps exactly one of them runnable at a time.
//
// # Key Extension Points
//
//   - SelectionStrategy: which free member of a pool satisfies a request
//     (allocator.go); the plain resource treats "is a slot free" as the
//     whole predicate
//   - Resource.ReleaseOn: bind a held slot to any occurrence (typically a
//     process's Done) so abandoned holders never leak capacity
//
// Client scenarios live in sub-packages; see sim/shop for a worked example.
package sim
