package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// poller is an explicit cancellable polling task. It issues at most one tick
// per interval and, when a timeout is set, fires onTimeout once and stops.
// Late remote responses are harmless because every tick re-checks the
// session generation before writing.
type poller struct {
	interval time.Duration
	timeout  time.Duration // zero means unbounded
	stop     chan struct{}
	stopOnce sync.Once
}

func newPoller(interval, timeout time.Duration) *poller {
	return &poller{
		interval: interval,
		timeout:  timeout,
		stop:     make(chan struct{}),
	}
}

// run drives the loop. tick returns true to stop polling.
func (p *poller) run(tick func() bool, onTimeout func()) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-p.stop:
			return
		case <-deadline:
			if onTimeout != nil {
				onTimeout()
			}
			return
		case <-ticker.C:
			if tick() {
				return
			}
		}
	}
}

// Stop cancels the poller. Safe to call more than once.
func (p *poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

const (
	pollVerification = "verification"
	pollStatus       = "status"
)

// startPoller registers and launches a poller for the session, replacing any
// previous poller of the same kind.
func (s *Service) startPoller(sessionKey, kind string, p *poller, tick func() bool, onTimeout func()) {
	key := sessionKey + ":" + kind

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if old, exists := s.pollers[key]; exists {
		old.Stop()
	}
	s.pollers[key] = p
	s.mu.Unlock()

	go func() {
		p.run(tick, onTimeout)
		s.mu.Lock()
		if s.pollers[key] == p {
			delete(s.pollers, key)
		}
		s.mu.Unlock()
	}()
}

func (s *Service) stopSessionPollers(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range []string{pollVerification, pollStatus} {
		key := sessionID.String() + ":" + kind
		if p, exists := s.pollers[key]; exists {
			p.Stop()
			delete(s.pollers, key)
		}
	}
}
