// Defines the Occurrence, the one-shot resolvable happening that everything
// else in the kernel is built on. Requests, releases, timeouts and process
// completions are all occurrences.

package sim

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OccurrenceState represents the resolution state of an occurrence.
type OccurrenceState string

const (
	StatePending   OccurrenceState = "pending"
	StateSucceeded OccurrenceState = "succeeded"
	StateFailed    OccurrenceState = "failed"
	StateCancelled OccurrenceState = "cancelled"
)

// ErrCancelled is the error observed by waiters of a cancelled occurrence.
var ErrCancelled = errors.New("occurrence cancelled")

// Occurrence is a future happening with a one-time resolution outcome and a
// list of continuations. Continuations run synchronously inside the resolving
// call, in registration order, exactly once each. A continuation registered
// while dispatch is in progress still runs in the same pass; one registered
// after resolution runs immediately.
//
// Resolving a terminal occurrence is a programming error and panics.
type Occurrence struct {
	id            string
	sched         *Scheduler
	state         OccurrenceState
	value         any
	err           error
	continuations []func(*Occurrence)
}

// shortID returns a compact identifier for log lines and metrics keys.
func shortID() string {
	return uuid.NewString()[:8]
}

// ID returns the occurrence's identifier.
func (o *Occurrence) ID() string {
	return o.id
}

// State returns the current resolution state.
func (o *Occurrence) State() OccurrenceState {
	return o.state
}

// Resolved reports whether the occurrence has reached a terminal state.
func (o *Occurrence) Resolved() bool {
	return o.state != StatePending
}

// Value returns the success payload. Nil until the occurrence succeeds.
func (o *Occurrence) Value() any {
	return o.value
}

// Err returns the failure or cancellation error. Nil unless the occurrence
// failed or was cancelled.
func (o *Occurrence) Err() error {
	return o.err
}

// OnResolve registers a continuation invoked exactly once when the occurrence
// resolves. If the occurrence is already resolved, fn runs immediately.
func (o *Occurrence) OnResolve(fn func(*Occurrence)) {
	if fn == nil {
		panic("OnResolve: fn must not be nil")
	}
	if o.Resolved() {
		fn(o)
		return
	}
	o.continuations = append(o.continuations, fn)
}

// Succeed resolves the occurrence successfully with the given payload.
func (o *Occurrence) Succeed(value any) {
	o.resolve(StateSucceeded, value, nil)
}

// Fail resolves the occurrence as failed with the given error.
func (o *Occurrence) Fail(err error) {
	if err == nil {
		panic(fmt.Sprintf("occurrence %s: Fail requires a non-nil error", o.id))
	}
	o.resolve(StateFailed, nil, err)
}

// Cancel resolves the occurrence as cancelled. Waiters observe ErrCancelled.
func (o *Occurrence) Cancel() {
	o.resolve(StateCancelled, nil, ErrCancelled)
}

func (o *Occurrence) resolve(state OccurrenceState, value any, err error) {
	if o.state != StatePending {
		panic(fmt.Sprintf("occurrence %s resolved twice (%s, then %s)", o.id, o.state, state))
	}
	o.state = state
	o.value = value
	o.err = err
	logrus.Debugf("[tick %07d] occurrence %s %s", o.sched.Now(), o.id, state)
	// Index loop rather than range: continuations appended during dispatch
	// must run in this same pass.
	for i := 0; i < len(o.continuations); i++ {
		o.continuations[i](o)
	}
	o.continuations = nil
}

func (o *Occurrence) String() string {
	return fmt.Sprintf("occurrence{id: %s, state: %s}", o.id, o.state)
}
