// Package request tracks outstanding incoming-transfer requests and
// guarantees that each is resolved at most once. Resolution signals
// arrive concurrently from several sources — notification actions,
// dismissal and failure callbacks, shell commands, feed clients — and
// the underlying notification subsystem is known to fire duplicates, so
// the tracker absorbs every signal after the first rather than treating
// it as an error.
package request

import (
	"sort"
	"sync"
	"time"
)

// State is the lifecycle position of an outstanding request.
type State int

const (
	// StatePending means the request exists but its prompt has not been
	// confirmed on screen yet.
	StatePending State = iota
	// StateShown means the prompt is on screen awaiting a decision.
	StateShown
	// StateResolved is terminal; a resolved request is removed from the
	// tracker immediately, so this state is never observed in a lookup.
	StateResolved
)

// Request is an outstanding incoming-transfer request awaiting a
// decision. The tracker owns the stored copy for its whole lifetime;
// callers only hold the task id.
type Request struct {
	TaskID    string
	Filename  string
	Size      uint64
	Sender    string
	Device    string
	State     State
	CreatedAt time.Time
}

// Tracker holds outstanding requests keyed by task id. The zero value is
// not usable; call NewTracker. All methods are safe for concurrent use,
// and no lock is held while a caller acts on a returned value.
type Tracker struct {
	mu       sync.Mutex
	requests map[string]*Request
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		requests: make(map[string]*Request),
	}
}

// Add registers a new pending request. A request already stored under the
// same task id is replaced; late signals for the old prompt then resolve
// the new entry, which carries identical semantics.
func (t *Tracker) Add(req Request) {
	req.State = StatePending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	t.mu.Lock()
	t.requests[req.TaskID] = &req
	t.mu.Unlock()
}

// MarkShown records that the prompt for the task is on screen. It
// reports false when the task is unknown or already resolved.
func (t *Tracker) MarkShown(taskID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[taskID]
	if !ok {
		return false
	}
	req.State = StateShown
	return true
}

// Resolve transitions the request to its terminal state and removes it.
// It reports whether this call performed the transition; false means the
// task id is unknown or a concurrent caller resolved it first, and the
// caller must not forward a decision to the core. The check and the
// removal happen under one lock acquisition so that exactly one caller
// ever sees true for a given task id.
func (t *Tracker) Resolve(taskID string) (Request, bool) {
	t.mu.Lock()
	req, ok := t.requests[taskID]
	if ok {
		delete(t.requests, taskID)
	}
	t.mu.Unlock()

	if !ok {
		return Request{}, false
	}

	req.State = StateResolved
	return *req, true
}

// Get returns a copy of the stored request for the task id.
func (t *Tracker) Get(taskID string) (Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[taskID]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// All returns copies of every outstanding request, oldest first.
func (t *Tracker) All() []Request {
	t.mu.Lock()
	out := make([]Request, 0, len(t.requests))
	for _, req := range t.requests {
		out = append(out, *req)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of outstanding requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// Drain removes and returns every outstanding request without resolving
// any of them. Used at shutdown: abandoned requests must not produce a
// resolution call after the core handle closes.
func (t *Tracker) Drain() []Request {
	t.mu.Lock()
	out := make([]Request, 0, len(t.requests))
	for _, req := range t.requests {
		out = append(out, *req)
	}
	t.requests = make(map[string]*Request)
	t.mu.Unlock()

	return out
}
