// Implements the cooperative work unit. A process runs in its own goroutine,
// but control is handed over explicitly: at any moment exactly one goroutine
// in the simulation is runnable, so the single-threaded execution model holds
// and no state needs locking.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Interrupt is the error delivered to a process whose wait was cut short by
// another process or event. Cause carries whatever the interrupter supplied.
type Interrupt struct {
	Cause any
}

func (i *Interrupt) Error() string {
	return fmt.Sprintf("interrupted: %v", i.Cause)
}

// wake carries a resolution outcome (or an interrupt) to a parked process.
type wake struct {
	value any
	err   error
}

// Waitable is anything a process can park on. *Occurrence satisfies it
// directly; *Request and *Release satisfy it through their embedded
// occurrence, so client code waits on them without unwrapping.
type Waitable interface {
	Resolved() bool
	Value() any
	Err() error
	OnResolve(fn func(*Occurrence))
}

// Process is a unit of cooperative work. Its body function runs until it
// parks on an occurrence via Wait; control then returns to whichever call
// resumed it. The body is resumed synchronously, inside the resolving call,
// when the awaited occurrence resolves.
type Process struct {
	id    string
	sched *Scheduler
	done  *Occurrence

	resume chan wake     // driver -> process: run until next park
	parked chan struct{} // process -> driver: parked again (or finished)

	waitGen  uint64 // increments per Wait; stale continuations compare against it
	waiting  bool   // true while parked on an occurrence
	finished bool
}

// StartProcess launches body as a cooperative process. The body runs
// synchronously up to its first Wait (or to completion) before StartProcess
// returns. A nil return from body resolves Done successfully; a non-nil
// return resolves it as failed.
func StartProcess(s *Scheduler, body func(*Process) error) *Process {
	if body == nil {
		panic("StartProcess: body must not be nil")
	}
	p := &Process{
		id:     shortID(),
		sched:  s,
		done:   s.NewOccurrence(),
		resume: make(chan wake),
		parked: make(chan struct{}),
	}
	go func() {
		<-p.resume // wait for the initial activation
		logrus.Debugf("[tick %07d] process %s started", s.Now(), p.id)
		err := body(p)
		p.finished = true
		logrus.Debugf("[tick %07d] process %s finished (err=%v)", s.Now(), p.id, err)
		if err != nil {
			p.done.Fail(err)
		} else {
			p.done.Succeed(nil)
		}
		p.parked <- struct{}{}
	}()
	p.resume <- wake{}
	<-p.parked
	return p
}

// ID returns the process identifier.
func (p *Process) ID() string {
	return p.id
}

// Done returns the occurrence that resolves when the process body returns.
// This is the occurrence to hand to Resource.ReleaseOn so that a slot held
// by a dying process is returned on its behalf.
func (p *Process) Done() *Occurrence {
	return p.done
}

// Finished reports whether the process body has returned.
func (p *Process) Finished() bool {
	return p.finished
}

// Wait parks the process until w resolves and returns the resolution
// outcome. Waiting on an already-resolved occurrence returns immediately
// without parking. If the process is interrupted while parked, Wait returns
// a nil value and the *Interrupt error; the abandoned occurrence keeps its
// registration, which becomes a no-op once stale.
//
// Wait must only be called from within the process's own body.
func (p *Process) Wait(w Waitable) (any, error) {
	if w.Resolved() {
		return w.Value(), w.Err()
	}
	p.waitGen++
	gen := p.waitGen
	p.waiting = true
	w.OnResolve(func(o *Occurrence) {
		if !p.waiting || p.waitGen != gen {
			return // wait was abandoned by an interrupt
		}
		p.deliver(wake{value: o.Value(), err: o.Err()})
	})
	p.parked <- struct{}{} // hand control back to whoever resumed us
	wk := <-p.resume
	return wk.value, wk.err
}

// Interrupt wakes a parked process with an *Interrupt carrying cause. It is
// a no-op if the process has finished or is not parked on an occurrence
// (which also covers a process attempting to interrupt itself).
func (p *Process) Interrupt(cause any) {
	if p.finished || !p.waiting {
		return
	}
	logrus.Debugf("[tick %07d] process %s interrupted: %v", p.sched.Now(), p.id, cause)
	p.deliver(wake{err: &Interrupt{Cause: cause}})
}

// deliver resumes the parked process and blocks until it parks again or
// finishes. Called only from the currently running context, so the strict
// one-runnable-goroutine handoff is preserved.
func (p *Process) deliver(w wake) {
	p.waiting = false
	p.resume <- w
	<-p.parked
}
