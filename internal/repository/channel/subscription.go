package channel

import "sync/atomic"

// Subscription is the handle returned by Subscribe. Once revoked its
// listeners are never invoked again.
type Subscription struct {
	listeners Listeners
	revoked   atomic.Bool
	manager   *Manager
}

func (s *Subscription) Revoked() bool {
	return s.revoked.Load()
}

func (s *Subscription) Unsubscribe() {
	s.revoked.Store(true)

	s.manager.mu.Lock()
	if s.manager.sub == s {
		s.manager.sub = nil
	}
	s.manager.mu.Unlock()
}
