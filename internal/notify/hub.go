// Package notify fans game events out to connected websocket clients and
// other sinks.
package notify

import (
	"context"
	"errors"
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const subscriberBuffer = 8

// Hub delivers events to in-process subscribers of a game. A slow subscriber
// loses its oldest pending event instead of blocking the publisher.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int64]map[chan domain.Event]struct{})}
}

// Subscribe registers for events of gameID. cancel closes the channel.
func (h *Hub) Subscribe(gameID int64) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[gameID]
	if !ok {
		subs = make(map[chan domain.Event]struct{})
		h.subscribers[gameID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[gameID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, gameID)
		}
	}
	return ch, cancel
}

// Publish delivers event to every subscriber of its game.
func (h *Hub) Publish(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[event.GameID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Notify implements app.Notifier.
func (h *Hub) Notify(_ context.Context, event domain.Event) error {
	h.Publish(event)
	return nil
}

// Subscribers returns how many clients watch gameID.
func (h *Hub) Subscribers(gameID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[gameID])
}

// Fanout sends every event to all notifiers and joins their errors.
type Fanout []app.Notifier

func (f Fanout) Notify(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
