// Implements the shared-resource admission core: a capacity-limited resource
// that work units contend for. Admission is strictly FIFO by arrival order;
// releasing a slot cascades admission through the wait queue, and a waiter
// that gives up is withdrawn without disturbing the order of the rest.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Request is an occurrence meaning "a unit of work wants to hold one slot of
// the resource". It succeeds when admitted, with the granted member name as
// its payload ("" for anonymous slots), and resolves as cancelled if
// withdrawn before admission.
type Request struct {
	*Occurrence

	res      *Resource
	issuedAt int64
	match    func(member string) bool
	member   string
}

// Member returns the name of the pool member granted to this request.
// Empty until admission, and always empty on a plain (memberless) resource.
func (q *Request) Member() string {
	return q.member
}

// Resource returns the resource this request was issued by.
func (q *Request) Resource() *Resource {
	return q.res
}

// Release is an occurrence meaning "a unit of work returns the slot held by
// a specific prior request". A release cannot be refused; it always resolves,
// and its resolution is what cascades admission to waiting requests.
type Release struct {
	*Occurrence

	res     *Resource
	request *Request
}

// Request returns the request this release returns the slot of.
func (l *Release) Request() *Request {
	return l.request
}

// Resource owns the waiting-request queue, the waiting-release queue, and the
// current holder set. All methods run synchronously inside a single scheduler
// callback; the cooperative execution model means no locking is needed, but
// the cascade loops must tolerate their own queues shrinking re-entrantly.
type Resource struct {
	sched    *Scheduler
	capacity int

	// members is nil for a plain slot-counted resource. A pool resource
	// names its members and picks one per admission via selector.
	members  []string
	selector SelectionStrategy

	pendingRequests []*Request // arrival order; only unresolved requests
	pendingReleases []*Release // arrival order; only unresolved releases
	holders         []*Request // admitted requests, at most capacity

	metrics *ContentionMetrics
}

// NewResource creates a plain resource with the given slot capacity.
// Capacity below one is a configuration error.
func NewResource(s *Scheduler, capacity int) (*Resource, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("resource capacity must be positive, got %d", capacity)
	}
	return &Resource{
		sched:    s,
		capacity: capacity,
		metrics:  NewContentionMetrics(),
	}, nil
}

// Capacity returns the fixed slot count.
func (r *Resource) Capacity() int {
	return r.capacity
}

// InUse returns the number of currently held slots.
func (r *Resource) InUse() int {
	return len(r.holders)
}

// Waiting returns the number of requests waiting for admission.
func (r *Resource) Waiting() int {
	return len(r.pendingRequests)
}

// Holders returns a copy of the admitted request set, in admission order.
func (r *Resource) Holders() []*Request {
	out := make([]*Request, len(r.holders))
	copy(out, r.holders)
	return out
}

// Metrics returns the resource's contention counters.
func (r *Resource) Metrics() *ContentionMetrics {
	return r.metrics
}

// Request issues a new admission request. If a slot is free the request is
// admitted and resolved before Request returns; otherwise it joins the wait
// queue in arrival order and the caller suspends on it.
func (r *Resource) Request() *Request {
	return r.issue(nil)
}

// RequestMatching issues a request that only accepts pool members satisfying
// pred. Only valid on a pool resource (see NewPool); a blocked head-of-line
// request holds back every later arrival even if capacity remains free.
func (r *Resource) RequestMatching(pred func(member string) bool) *Request {
	if pred == nil {
		panic("RequestMatching: pred must not be nil")
	}
	if r.members == nil {
		panic("RequestMatching: resource has no member pool")
	}
	return r.issue(pred)
}

func (r *Resource) issue(pred func(string) bool) *Request {
	req := &Request{
		Occurrence: r.sched.NewOccurrence(),
		res:        r,
		issuedAt:   r.sched.Now(),
		match:      pred,
	}
	r.pendingRequests = append(r.pendingRequests, req)
	r.metrics.Issued++
	// Resolution removes the request from the wait queue, whichever way it
	// resolves, and mirrors the admission cascade on the release side.
	req.OnResolve(func(*Occurrence) {
		r.dropPendingRequest(req)
		r.resolveReleases()
	})
	r.tryAdmit(req)
	return req
}

// Release returns the slot held by req. The release always resolves; its
// resolution cascades admission through the wait queue. Releasing a request
// that was never admitted removes it from the wait queue (its owner gave up
// on the wait). Releasing a request issued by a different resource panics.
func (r *Resource) Release(req *Request) *Release {
	if req == nil {
		panic("Release: req must not be nil")
	}
	if req.res != r {
		panic(fmt.Sprintf("Release: request %s was issued by a different resource", req.ID()))
	}
	rel := &Release{
		Occurrence: r.sched.NewOccurrence(),
		res:        r,
		request:    req,
	}
	r.pendingReleases = append(r.pendingReleases, rel)
	rel.OnResolve(func(*Occurrence) {
		r.dropPendingRelease(rel)
		r.admitWaiting()
	})
	r.tryRelease(rel)
	return rel
}

// Withdraw is the notification path for abandonment: a work unit that was
// interrupted or terminated hands its request back. A pending request is
// cancelled (removed from the wait queue, FIFO order of the rest untouched);
// a held request is released; a request that already ran its course is left
// alone, by contract.
func (r *Resource) Withdraw(req *Request) {
	if req == nil {
		return
	}
	if req.res != r {
		panic(fmt.Sprintf("Withdraw: request %s was issued by a different resource", req.ID()))
	}
	switch {
	case !req.Resolved():
		logrus.Debugf("[tick %07d] resource: request %s withdrawn while waiting", r.sched.Now(), req.ID())
		r.metrics.Withdrawn++
		req.Cancel()
	case r.isHolder(req):
		r.Release(req)
	}
}

// ReleaseOn arranges for req to be withdrawn when trigger resolves. Binding
// a holder's request to its process-completion occurrence guarantees the
// slot is returned even if the process dies without releasing explicitly.
func (r *Resource) ReleaseOn(trigger *Occurrence, req *Request) {
	trigger.OnResolve(func(*Occurrence) {
		r.Withdraw(req)
	})
}

// tryAdmit admits req if a slot is free and, on a pool, a member satisfies
// it. Admission resolves the request synchronously, which runs its waiter's
// continuations before tryAdmit returns.
func (r *Resource) tryAdmit(req *Request) {
	if len(r.holders) >= r.capacity {
		return
	}
	member, ok := r.selectMember(req)
	if !ok {
		return
	}
	r.holders = append(r.holders, req)
	req.member = member
	r.metrics.recordAdmit(req.ID(), r.sched.Now()-req.issuedAt, len(r.holders))
	logrus.Debugf("[tick %07d] resource: request %s admitted (member=%q, holders=%d/%d)",
		r.sched.Now(), req.ID(), member, len(r.holders), r.capacity)
	req.Succeed(member)
}

// tryRelease processes rel: a never-admitted request is dropped from the
// wait queue, the holder entry is removed if present, and the release
// resolves. Resolution then cascades admission via the OnResolve hook.
func (r *Resource) tryRelease(rel *Release) {
	req := rel.request
	if !req.Resolved() {
		// Never admitted; the owner gave up while still queued.
		r.dropPendingRequest(req)
	}
	if r.dropHolder(req) {
		r.metrics.Released++
		logrus.Debugf("[tick %07d] resource: request %s released slot (holders=%d/%d)",
			r.sched.Now(), req.ID(), len(r.holders), r.capacity)
	}
	rel.Succeed(nil)
}

// admitWaiting runs the admission cascade: admit waiting requests in arrival
// order, stopping at the first one that cannot be admitted. The scan restarts
// from the current head after every admission because resolving a request may
// mutate the queue re-entrantly (a resumed waiter can issue or release within
// the same call).
func (r *Resource) admitWaiting() {
	for len(r.pendingRequests) > 0 {
		head := r.pendingRequests[0]
		if head.Resolved() {
			// Resolved re-entrantly during this pass; clear and rescan.
			r.dropPendingRequest(head)
			continue
		}
		r.tryAdmit(head)
		if !head.Resolved() {
			return
		}
	}
}

// resolveReleases is the mirror cascade, triggered by any request
// resolution: process waiting releases in arrival order, stopping at the
// first that stays unresolved. The plain core resolves every release
// immediately, so this normally finds the queue empty; deferred-release
// policy extensions rely on the symmetric trigger being wired.
func (r *Resource) resolveReleases() {
	for len(r.pendingReleases) > 0 {
		head := r.pendingReleases[0]
		if head.Resolved() {
			r.dropPendingRelease(head)
			continue
		}
		r.tryRelease(head)
		if !head.Resolved() {
			return
		}
	}
}

func (r *Resource) selectMember(req *Request) (string, bool) {
	if r.members == nil {
		// Plain resource: a free slot always satisfies the head.
		return "", true
	}
	free := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if r.memberHeld(m) {
			continue
		}
		if req.match != nil && !req.match(m) {
			continue
		}
		free = append(free, m)
	}
	if len(free) == 0 {
		return "", false
	}
	return r.selector.Select(req, free)
}

func (r *Resource) memberHeld(member string) bool {
	for _, h := range r.holders {
		if h.member == member {
			return true
		}
	}
	return false
}

func (r *Resource) isHolder(req *Request) bool {
	for _, h := range r.holders {
		if h == req {
			return true
		}
	}
	return false
}

func (r *Resource) dropPendingRequest(req *Request) {
	for i, q := range r.pendingRequests {
		if q == req {
			r.pendingRequests = append(r.pendingRequests[:i], r.pendingRequests[i+1:]...)
			return
		}
	}
}

func (r *Resource) dropPendingRelease(rel *Release) {
	for i, l := range r.pendingReleases {
		if l == rel {
			r.pendingReleases = append(r.pendingReleases[:i], r.pendingReleases[i+1:]...)
			return
		}
	}
}

func (r *Resource) dropHolder(req *Request) bool {
	for i, h := range r.holders {
		if h == req {
			r.holders = append(r.holders[:i], r.holders[i+1:]...)
			return true
		}
	}
	return false
}
