package notify

import (
	"context"
	"sync"
)

const subscriberBuffer = 8

type subscriber struct {
	ch chan Event
}

// Hub fans committed events out to in-process subscribers keyed by user id.
// A subscriber that falls behind loses its oldest pending events, never the
// newest one.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Subscribe returns a channel closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan Event {
	s := &subscriber{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[userID], s)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		close(s.ch)
		h.mu.Unlock()
	}()

	return s.ch
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs[ev.UserID] {
		offer(s.ch, ev)
	}
	return nil
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// offer must be called by the channel's only sender.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
