package lifecycle

import (
	"sync"
	"time"
)

// ackScheduler tracks the pending acknowledgment timers per alert so they can
// be cancelled individually when an alert closes, or wholesale at shutdown.
type ackScheduler struct {
	mu     sync.Mutex
	timers map[string][]*time.Timer
}

func newAckScheduler() *ackScheduler {
	return &ackScheduler{timers: make(map[string][]*time.Timer)}
}

// schedule runs fn after delay, tracked under the alert id.
func (s *ackScheduler) schedule(id string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		fn()
		s.remove(id, t)
	})
	s.timers[id] = append(s.timers[id], t)
}

// cancel stops all pending acknowledgments for an alert.
func (s *ackScheduler) cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.timers[id] {
		t.Stop()
	}
	delete(s.timers, id)
}

// cancelAll stops every pending acknowledgment.
func (s *ackScheduler) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ts := range s.timers {
		for _, t := range ts {
			t.Stop()
		}
		delete(s.timers, id)
	}
}

// remove drops a fired timer from the tracking map.
func (s *ackScheduler) remove(id string, fired *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.timers[id][:0]
	for _, t := range s.timers[id] {
		if t != fired {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) == 0 {
		delete(s.timers, id)
	} else {
		s.timers[id] = remaining
	}
}

// pending returns the number of tracked timers for an alert.
func (s *ackScheduler) pending(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[id])
}
