package notify

import (
	"context"
	"sync"
)

// Sink which keeps every notification in memory. Intended for tests.
type MemSink struct {
	mu  sync.Mutex
	got []Notification
}

func (s *MemSink) Send(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return nil
}

func (s *MemSink) All() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.got...)
}

// Notifications of the given kind, in send order.
func (s *MemSink) OfKind(k Kind) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notification
	for _, n := range s.got {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

func (s *MemSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = nil
}
