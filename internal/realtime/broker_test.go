package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/realtime"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func receive(t *testing.T, sub realtime.Subscription) models.RunEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return models.RunEvent{}
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	broker := realtime.NewRedisBroker(setupRedisClient(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brandID := uuid.New()
	sub, err := broker.Subscribe(ctx, brandID)
	require.NoError(t, err)
	defer sub.Close()

	// An event for another brand must not be delivered.
	require.NoError(t, broker.Publish(ctx, models.RunEvent{BrandID: uuid.New(), Status: models.RunStatusAnalyzing}))

	runID := uuid.New()
	require.NoError(t, broker.Publish(ctx, models.RunEvent{
		BrandID:      brandID,
		RunID:        runID,
		AnalyzerType: models.AnalyzerBasics,
		Status:       models.RunStatusComplete,
		At:           time.Now().UTC(),
	}))

	ev := receive(t, sub)
	assert.Equal(t, runID, ev.RunID)
	assert.Equal(t, models.AnalyzerBasics, ev.AnalyzerType)
	assert.Equal(t, models.RunStatusComplete, ev.Status)
}

func TestRedisBroker_SubscriptionEndsWithContext(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	broker := realtime.NewRedisBroker(setupRedisClient(t))
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := broker.Subscribe(ctx, uuid.New())
	require.NoError(t, err)
	defer sub.Close()

	cancel()
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brandID := uuid.New()
	sub, err := broker.Subscribe(ctx, brandID)
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, models.RunEvent{BrandID: uuid.New()}))
	require.NoError(t, broker.Publish(ctx, models.RunEvent{BrandID: brandID, Status: models.RunStatusParsing}))

	ev := receive(t, sub)
	assert.Equal(t, brandID, ev.BrandID)
	assert.Equal(t, models.RunStatusParsing, ev.Status)
}

func TestMemoryBroker_CloseIsIdempotent(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := broker.Subscribe(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	cancel()
	require.NoError(t, sub.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestMemoryBroker_PublishWithoutSubscribers(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	assert.NoError(t, broker.Publish(context.Background(), models.RunEvent{BrandID: uuid.New()}))
}
