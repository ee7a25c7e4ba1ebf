// Package realtime fans run status changes out to live status streams.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Broker publishes run events and hands out per-brand subscriptions.
// Events are change notifications only; consumers re-read the run list.
type Broker interface {
	Publish(ctx context.Context, event models.RunEvent) error
	Subscribe(ctx context.Context, brandID uuid.UUID) (Subscription, error)
}

// Subscription delivers events for one brand until Close is called or the
// subscribing context ends.
type Subscription interface {
	Events() <-chan models.RunEvent
	Close() error
}

// RedisBroker implements Broker on Redis pub/sub so that events published by
// a worker process reach streams served by any API instance.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, event models.RunEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	if err := b.client.Publish(ctx, cache.RunEventsChannel(event.BrandID), payload).Err(); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning, so
// an event published after Subscribe returns is never missed.
func (b *RedisBroker) Subscribe(ctx context.Context, brandID uuid.UUID) (Subscription, error) {
	ps := b.client.Subscribe(ctx, cache.RunEventsChannel(brandID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe run events: %w", err)
	}

	sub := &redisSubscription{
		ps:     ps,
		events: make(chan models.RunEvent, 16),
	}
	go sub.pump(ctx)
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan models.RunEvent
}

func (s *redisSubscription) Events() <-chan models.RunEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}

func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.events)
	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event models.RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("dropping malformed run event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case s.events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

var _ Broker = (*RedisBroker)(nil)
