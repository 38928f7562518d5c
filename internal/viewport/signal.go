// Package viewport derives the active page section from scroll and visibility
// reports and publishes it to subscribers.
package viewport

import "sync"

// Signal is an observable string. Subscribers only hear about changes.
type Signal struct {
	mu    sync.RWMutex
	value string
	subs  map[chan string]struct{}
}

func NewSignal(initial string) *Signal {
	return &Signal{value: initial, subs: make(map[chan string]struct{})}
}

func (s *Signal) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores v and notifies subscribers. It reports whether the value changed.
func (s *Signal) Set(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == s.value {
		return false
	}
	s.value = v
	for ch := range s.subs {
		// Subscribers only care about the latest value; replace a stale pending one.
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
	return true
}

// Subscribe returns a channel of changes and a cancel func that closes it.
func (s *Signal) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
}

// closeAll drops every subscriber.
func (s *Signal) closeAll() {
	s.mu.Lock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}
