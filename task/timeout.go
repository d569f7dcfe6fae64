package task

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TimeoutHandler is a watchdog meant to be passed to Task.Wait as the poll
// callback. The first Check at or past the deadline calls abort; later checks
// do nothing. There is no way to disarm it.
type TimeoutHandler struct {
	abort    func()
	start    time.Time
	deadline time.Time
	now      func() time.Time

	mu      sync.Mutex
	aborted bool
}

// NewTimeoutHandler arms a handler that calls abort once ttl has elapsed. A
// zero or negative ttl triggers on the first Check.
func NewTimeoutHandler(abort func(), ttl time.Duration) *TimeoutHandler {
	return newTimeoutHandler(abort, ttl, time.Now)
}

func newTimeoutHandler(abort func(), ttl time.Duration, now func() time.Time) *TimeoutHandler {
	start := now()
	return &TimeoutHandler{
		abort:    abort,
		start:    start,
		deadline: start.Add(ttl),
		now:      now,
	}
}

// Check calls the abort callback if the deadline has passed and it has not
// been called yet.
func (h *TimeoutHandler) Check() {
	h.mu.Lock()
	if h.aborted || h.now().Before(h.deadline) {
		h.mu.Unlock()
		logrus.Debugf("Timeout check at %s", h.Elapsed())
		return
	}
	h.aborted = true
	h.mu.Unlock()

	logrus.Debugf("Timeout after %s, aborting", h.Elapsed())
	h.abort()
}

// TimedOut reports whether the abort callback has been triggered. A child
// killed on timeout and one that exited on its own both look finished to
// Task.Wait; this is the only way to tell them apart.
func (h *TimeoutHandler) TimedOut() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.aborted
}

// Elapsed returns the time since the handler was armed.
func (h *TimeoutHandler) Elapsed() time.Duration {
	return h.now().Sub(h.start)
}
