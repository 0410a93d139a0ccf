package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

// DefaultChannelPrefix namespaces game event channels: game-events:{gameId}.
const DefaultChannelPrefix = "game-events:"

// Notifier publishes game events so that every instance can push them to its
// own websocket clients.
type Notifier struct {
	client *redis.Client
	prefix string
}

func NewNotifier(client *redis.Client, prefix string) *Notifier {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Notifier{client: client, prefix: prefix}
}

func (n *Notifier) Notify(ctx context.Context, event domain.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	channel := n.prefix + strconv.FormatInt(event.GameID, 10)
	if err := n.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Sink receives relayed events.
type Sink interface {
	Publish(event domain.Event)
}

// Relay forwards events published by any instance into a local Sink.
type Relay struct {
	client *redis.Client
	prefix string
	sink   Sink
	logger *zap.Logger
}

func NewRelay(client *redis.Client, prefix string, sink Sink, logger *zap.Logger) *Relay {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, prefix: prefix, sink: sink, logger: logger}
}

// Run blocks until ctx is done. ready, if non-nil, is closed once the
// subscription is confirmed.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", r.prefix, err)
	}
	if ready != nil {
		close(ready)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.forward(msg)
		}
	}
}

func (r *Relay) forward(msg *redis.Message) {
	var event domain.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		r.logger.Warn("dropping malformed event", zap.String("channel", msg.Channel), zap.Error(err))
		return
	}
	if event.GameID == 0 {
		id, err := strconv.ParseInt(strings.TrimPrefix(msg.Channel, r.prefix), 10, 64)
		if err != nil {
			r.logger.Warn("dropping event without game", zap.String("channel", msg.Channel))
			return
		}
		event.GameID = id
	}
	r.sink.Publish(event)
}
