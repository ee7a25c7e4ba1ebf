package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// MemoryBroker is an in-process Broker. Slow subscribers drop events rather
// than block publishers; a dropped notification only delays a re-read.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*memorySubscription]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[uuid.UUID]map[*memorySubscription]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, event models.RunEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[event.BrandID] {
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, brandID uuid.UUID) (Subscription, error) {
	sub := &memorySubscription{
		broker:  b,
		brandID: brandID,
		events:  make(chan models.RunEvent, 16),
	}

	b.mu.Lock()
	if b.subs[brandID] == nil {
		b.subs[brandID] = make(map[*memorySubscription]struct{})
	}
	b.subs[brandID][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

type memorySubscription struct {
	broker  *MemoryBroker
	brandID uuid.UUID
	events  chan models.RunEvent
	once    sync.Once
}

func (s *memorySubscription) Events() <-chan models.RunEvent {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs[s.brandID], s)
		if len(s.broker.subs[s.brandID]) == 0 {
			delete(s.broker.subs, s.brandID)
		}
		close(s.events)
		s.broker.mu.Unlock()
	})
	return nil
}

var _ Broker = (*MemoryBroker)(nil)
