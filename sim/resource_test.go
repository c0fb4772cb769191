package sim

import (
	"testing"
)

func newTestResource(t *testing.T, capacity int) (*Scheduler, *Resource) {
	t.Helper()
	s := NewScheduler()
	r, err := NewResource(s, capacity)
	if err != nil {
		t.Fatalf("NewResource(%d): unexpected error %v", capacity, err)
	}
	return s, r
}

func TestNewResource_NonPositiveCapacity_Errors(t *testing.T) {
	s := NewScheduler()
	for _, capacity := range []int{0, -1, -100} {
		r, err := NewResource(s, capacity)
		if err == nil {
			t.Errorf("NewResource(%d): want configuration error, got nil", capacity)
		}
		if r != nil {
			t.Errorf("NewResource(%d): no resource must be created on error, got %v", capacity, r)
		}
	}
}

func TestResource_CapacityOne_AdmitsInArrivalOrder(t *testing.T) {
	// GIVEN a capacity-1 resource and three requests in order
	_, r := newTestResource(t, 1)
	r1 := r.Request()
	r2 := r.Request()
	r3 := r.Request()

	// THEN only the first is admitted immediately
	if !r1.Resolved() {
		t.Fatal("r1 must be admitted immediately")
	}
	if r2.Resolved() || r3.Resolved() {
		t.Fatal("r2 and r3 must remain pending while r1 holds the slot")
	}
	if r.Waiting() != 2 {
		t.Errorf("Waiting() = %d, want 2", r.Waiting())
	}

	// WHEN r1 releases
	r.Release(r1)

	// THEN exactly r2 is admitted, not r3
	if !r2.Resolved() {
		t.Fatal("releasing r1 must admit r2")
	}
	if r3.Resolved() {
		t.Fatal("r3 must not be admitted ahead of or together with r2")
	}

	// WHEN r2 releases
	r.Release(r2)

	// THEN r3 is admitted
	if !r3.Resolved() {
		t.Fatal("releasing r2 must admit r3")
	}
	if r.InUse() != 1 || r.Waiting() != 0 {
		t.Errorf("InUse() = %d, Waiting() = %d, want 1 and 0", r.InUse(), r.Waiting())
	}
}

func TestResource_WithdrawPending_PreservesOrderOfRemainingWaiters(t *testing.T) {
	// GIVEN r1 holding and r2, r3 waiting
	_, r := newTestResource(t, 1)
	r1 := r.Request()
	r2 := r.Request()
	r3 := r.Request()

	// WHEN the middle waiter is withdrawn before any release
	r.Withdraw(r2)

	// THEN r2 is cancelled and gone from the wait queue
	if r2.State() != StateCancelled {
		t.Errorf("r2 state = %s, want %s", r2.State(), StateCancelled)
	}
	if r.Waiting() != 1 {
		t.Errorf("Waiting() = %d, want 1", r.Waiting())
	}
	// AND r3 is not admitted any earlier than it would have been
	if r3.Resolved() {
		t.Fatal("withdrawing r2 must not admit r3 while r1 still holds the slot")
	}

	// WHEN r1 releases
	r.Release(r1)

	// THEN r3 is admitted, strictly after r1's release
	if !r3.Resolved() {
		t.Fatal("releasing r1 must admit r3")
	}
}

func TestResource_ReleaseNeverAdmittedRequest_RemovesFromWaitQueue(t *testing.T) {
	// GIVEN r1 holding and r2 waiting
	_, r := newTestResource(t, 1)
	r1 := r.Request()
	r2 := r.Request()

	// WHEN r2 is released without ever being admitted
	rel := r.Release(r2)

	// THEN the release resolves, holders are untouched, and r2 left the queue
	if !rel.Resolved() {
		t.Fatal("release must always resolve")
	}
	if r.InUse() != 1 {
		t.Errorf("InUse() = %d, want 1 (r1 still holds)", r.InUse())
	}
	if r.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0 (r2 removed)", r.Waiting())
	}
	// AND r2 stays unresolved: its owner gave up, nobody admits it later
	r.Release(r1)
	if r2.Resolved() {
		t.Error("an abandoned request must not be admitted by a later release")
	}
	if r.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", r.InUse())
	}
}

func TestResource_CapacityTwo_Scenario(t *testing.T) {
	// GIVEN capacity 2 and requests A, B, C in order
	_, r := newTestResource(t, 2)
	a := r.Request()
	b := r.Request()
	c := r.Request()

	// THEN A and B are admitted immediately, C pends
	if !a.Resolved() || !b.Resolved() {
		t.Fatal("a and b must be admitted immediately")
	}
	if c.Resolved() {
		t.Fatal("c must pend while capacity is exhausted")
	}

	// WHEN A releases
	r.Release(a)

	// THEN C is admitted and the holders are exactly {B, C}
	if !c.Resolved() {
		t.Fatal("releasing a must admit c")
	}
	holders := r.Holders()
	if len(holders) != 2 || holders[0] != b || holders[1] != c {
		t.Fatalf("Holders() = %v, want [b, c]", holders)
	}

	// WHEN B and C release
	r.Release(b)
	r.Release(c)

	// THEN both queues and the holder set are empty
	if r.InUse() != 0 || r.Waiting() != 0 {
		t.Errorf("InUse() = %d, Waiting() = %d, want 0 and 0", r.InUse(), r.Waiting())
	}
	if len(r.pendingReleases) != 0 {
		t.Errorf("pendingReleases length = %d, want 0", len(r.pendingReleases))
	}
}

func TestResource_HoldersNeverExceedCapacity(t *testing.T) {
	// GIVEN a capacity-2 resource
	_, r := newTestResource(t, 2)

	check := func(op string) {
		if r.InUse() > r.Capacity() {
			t.Fatalf("after %s: %d holders exceed capacity %d", op, r.InUse(), r.Capacity())
		}
	}

	// WHEN a mixed sequence of requests, withdrawals and releases runs
	var reqs []*Request
	for i := 0; i < 6; i++ {
		reqs = append(reqs, r.Request())
		check("request")
	}
	r.Withdraw(reqs[3])
	check("withdraw")
	r.Release(reqs[0])
	check("release")
	r.Release(reqs[1])
	check("release")
	r.Release(reqs[2])
	check("release")
	r.Withdraw(reqs[5])
	check("withdraw")
	r.Release(reqs[4])
	check("release")
}

func TestResource_ReentrantRelease_DoesNotReadmitOrSkip(t *testing.T) {
	// GIVEN r1 holding, and r2 wired to release itself the moment it is
	// admitted (a release triggered re-entrantly inside another release's
	// cascade)
	_, r := newTestResource(t, 1)
	r1 := r.Request()
	r2 := r.Request()
	r2Admissions := 0
	r2.OnResolve(func(o *Occurrence) {
		r2Admissions++
		r.Release(r2)
	})
	r3 := r.Request()

	// WHEN r1 releases
	r.Release(r1)

	// THEN r2 was admitted exactly once and r3 was admitted in order by the
	// re-entrant release, with a consistent holder set
	if r2Admissions != 1 {
		t.Fatalf("r2 admitted %d times, want exactly 1", r2Admissions)
	}
	if !r3.Resolved() {
		t.Fatal("r3 must be admitted by r2's re-entrant release")
	}
	holders := r.Holders()
	if len(holders) != 1 || holders[0] != r3 {
		t.Fatalf("Holders() = %v, want exactly [r3]", holders)
	}
	if r.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0", r.Waiting())
	}
}

func TestResource_ReleaseOn_ReturnsSlotOfAbandonedHolder(t *testing.T) {
	// GIVEN r1 holding with its slot bound to a lifecycle occurrence, and
	// r2 waiting
	s, r := newTestResource(t, 1)
	r1 := r.Request()
	lifecycle := s.NewOccurrence()
	r.ReleaseOn(lifecycle, r1)
	r2 := r.Request()

	// WHEN the lifecycle occurrence is invalidated
	lifecycle.Fail(&Interrupt{Cause: "holder terminated"})

	// THEN the slot was released on r1's behalf and r2 admitted
	if r.isHolder(r1) {
		t.Error("r1 must no longer hold the slot")
	}
	if !r2.Resolved() {
		t.Error("r2 must be admitted after the auto-release")
	}
}

func TestResource_ReleaseOn_NoOpWhenAlreadyReleased(t *testing.T) {
	// GIVEN a holder that releases explicitly before its bound occurrence
	// resolves
	s, r := newTestResource(t, 1)
	r1 := r.Request()
	lifecycle := s.NewOccurrence()
	r.ReleaseOn(lifecycle, r1)
	r.Release(r1)

	// WHEN the lifecycle occurrence later resolves
	lifecycle.Succeed(nil)

	// THEN nothing changes: the second withdrawal is a no-op by contract
	if r.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", r.InUse())
	}
	if got := r.Metrics().Released; got != 1 {
		t.Errorf("Released = %d, want 1 (no double release)", got)
	}
}

func TestResource_Withdraw_HeldRequest_Releases(t *testing.T) {
	_, r := newTestResource(t, 1)
	r1 := r.Request()
	r2 := r.Request()

	r.Withdraw(r1)

	if r.isHolder(r1) {
		t.Error("withdrawing a holder must release its slot")
	}
	if !r2.Resolved() {
		t.Error("r2 must be admitted after the withdrawal releases the slot")
	}
}

func TestResource_ForeignRequest_Panics(t *testing.T) {
	s := NewScheduler()
	r1, _ := NewResource(s, 1)
	r2, _ := NewResource(s, 1)
	req := r1.Request()

	assertPanics(t, "Release of a foreign request", func() { r2.Release(req) })
	assertPanics(t, "Withdraw of a foreign request", func() { r2.Withdraw(req) })
}

func TestResource_DoubleRelease_IsNoOp(t *testing.T) {
	// GIVEN a request released once already
	_, r := newTestResource(t, 1)
	r1 := r.Request()
	r.Release(r1)

	// WHEN it is released again
	rel := r.Release(r1)

	// THEN the release still resolves and state is untouched
	if !rel.Resolved() {
		t.Fatal("release must always resolve")
	}
	if r.InUse() != 0 || r.Waiting() != 0 {
		t.Errorf("InUse() = %d, Waiting() = %d, want 0 and 0", r.InUse(), r.Waiting())
	}
	if got := r.Metrics().Released; got != 1 {
		t.Errorf("Released = %d, want 1", got)
	}
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
