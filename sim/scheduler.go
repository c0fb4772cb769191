// sim/scheduler.go
package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// timelineEntry is a pending timed resolution on the virtual-time timeline.
type timelineEntry struct {
	tick  int64
	seq   uint64 // tie-break so same-tick entries fire in scheduling order
	occ   *Occurrence
	value any
	err   error
}

// timeline implements heap.Interface and orders entries by (tick, seq).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type timeline []*timelineEntry

func (tl timeline) Len() int { return len(tl) }
func (tl timeline) Less(i, j int) bool {
	if tl[i].tick != tl[j].tick {
		return tl[i].tick < tl[j].tick
	}
	return tl[i].seq < tl[j].seq
}
func (tl timeline) Swap(i, j int) { tl[i], tl[j] = tl[j], tl[i] }

func (tl *timeline) Push(x any) {
	*tl = append(*tl, x.(*timelineEntry))
}

func (tl *timeline) Pop() any {
	old := *tl
	n := len(old)
	item := old[n-1]
	*tl = old[0 : n-1]
	return item
}

// Scheduler owns the virtual clock and the timeline of pending resolutions.
// It is the single driver of the simulation: one resolution, together with
// every continuation it triggers synchronously, runs to completion before the
// next timeline entry is popped. There is no real parallelism and no locking;
// everything the scheduler touches runs on one logical thread.
type Scheduler struct {
	clock int64
	seq   uint64
	tl    timeline
}

// NewScheduler creates a scheduler with the clock at tick zero.
func NewScheduler() *Scheduler {
	return &Scheduler{tl: make(timeline, 0)}
}

// Now returns the current virtual time in ticks.
func (s *Scheduler) Now() int64 {
	return s.clock
}

// NewOccurrence creates an unresolved occurrence bound to this scheduler.
// The caller resolves it directly or hands it to a timed helper.
func (s *Scheduler) NewOccurrence() *Occurrence {
	return &Occurrence{id: shortID(), sched: s, state: StatePending}
}

// Timeout returns an occurrence that succeeds with value after delay ticks.
func (s *Scheduler) Timeout(delay int64, value any) *Occurrence {
	occ := s.NewOccurrence()
	s.schedule(delay, occ, value, nil)
	return occ
}

// FailAfter returns an occurrence that fails with err after delay ticks.
func (s *Scheduler) FailAfter(delay int64, err error) *Occurrence {
	if err == nil {
		panic("FailAfter: err must not be nil")
	}
	occ := s.NewOccurrence()
	s.schedule(delay, occ, nil, err)
	return occ
}

func (s *Scheduler) schedule(delay int64, occ *Occurrence, value any, err error) {
	if delay < 0 {
		panic(fmt.Sprintf("schedule: negative delay %d", delay))
	}
	s.seq++
	heap.Push(&s.tl, &timelineEntry{
		tick:  s.clock + delay,
		seq:   s.seq,
		occ:   occ,
		value: value,
		err:   err,
	})
}

// Run processes timeline entries until none remain. Returns the final clock.
func (s *Scheduler) Run() int64 {
	return s.RunUntil(math.MaxInt64)
}

// RunUntil processes timeline entries in (tick, seq) order until the timeline
// drains or the next entry lies beyond horizon. Entries whose occurrence was
// already resolved by other means (an interrupt or a withdrawal raced with a
// timeout) are skipped.
func (s *Scheduler) RunUntil(horizon int64) int64 {
	for len(s.tl) > 0 {
		e := heap.Pop(&s.tl).(*timelineEntry)
		if e.tick > horizon {
			// Leave the entry for a later RunUntil with a wider horizon.
			heap.Push(&s.tl, e)
			s.clock = horizon
			break
		}
		// advance the clock
		s.clock = e.tick
		if e.occ.Resolved() {
			continue
		}
		logrus.Debugf("[tick %07d] timeline resolving %s", s.clock, e.occ.ID())
		if e.err != nil {
			e.occ.Fail(e.err)
		} else {
			e.occ.Succeed(e.value)
		}
	}
	if len(s.tl) == 0 {
		logrus.Infof("[tick %07d] timeline drained", s.clock)
	} else {
		logrus.Infof("[tick %07d] horizon reached, %d entries deferred", s.clock, len(s.tl))
	}
	return s.clock
}
