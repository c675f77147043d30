package scheduler

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// idleThrottle tracks, per idle task name, when it last ran and when
// its "skipped — waiting" log last fired, so a 1s tick loop doesn't
// spam the log once per second while a task waits out its interval.
type idleThrottle struct {
	mu       sync.Mutex
	lastRan  map[string]time.Time
	lastSkip map[string]time.Time
}

func newIdleThrottle() *idleThrottle {
	return &idleThrottle{
		lastRan:  make(map[string]time.Time),
		lastSkip: make(map[string]time.Time),
	}
}

func (t *idleThrottle) due(name string, interval time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastRan[name]
	if !ok {
		return true
	}
	return time.Since(last) >= interval
}

func (t *idleThrottle) markRan(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastRan[name] = time.Now()
}

func (t *idleThrottle) logSkipThrottled(log *logrus.Entry, name string) {
	t.mu.Lock()
	last, ok := t.lastSkip[name]
	due := !ok || time.Since(last) >= 60*time.Second
	if due {
		t.lastSkip[name] = time.Now()
	}
	t.mu.Unlock()

	if due {
		log.WithField("task", name).Debug("skipped — waiting")
	}
}
