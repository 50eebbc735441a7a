package resolver

import "sync"

// Quota is a run-scoped budget of remote calls.
type Quota struct {
	mu        sync.Mutex
	limit     int
	remaining int
}

// NewQuota returns a budget of limit calls. Negative limits are treated as zero.
func NewQuota(limit int) *Quota {
	if limit < 0 {
		limit = 0
	}
	return &Quota{limit: limit, remaining: limit}
}

// Take consumes one unit and reports whether one was available.
func (q *Quota) Take() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.remaining <= 0 {
		return false
	}
	q.remaining--
	return true
}

// Remaining returns the units left.
func (q *Quota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining
}

// Used returns the units consumed so far.
func (q *Quota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit - q.remaining
}
