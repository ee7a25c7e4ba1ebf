package main

import (
	"strings"
	"testing"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/mock"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/analyzer"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache/cachetest"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/realtime"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store/storetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(mem *storetest.Memory) *analyzer.Runner {
	return analyzer.NewRunner(mock.NewMockProvider(), mem, mem.Admin(), realtime.NewMemoryBroker(), analyzer.DefaultRegistry())
}

func TestNewDispatcher(t *testing.T) {
	mem := storetest.NewMemory()
	runner := testRunner(mem)
	// The client is never used: go-redis connects lazily.
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	t.Run("inprocess", func(t *testing.T) {
		d, w := newDispatcher(config.DispatchConfig{Mode: "inprocess"}, client, runner, mem.Admin())
		assert.IsType(t, &analyzer.InProcessDispatcher{}, d)
		assert.Nil(t, w)
	})

	t.Run("queue with embedded worker", func(t *testing.T) {
		d, w := newDispatcher(config.DispatchConfig{
			Mode: "queue", QueueName: "analysis", EmbeddedWorker: true, PollTimeout: time.Second,
		}, client, runner, mem.Admin())
		assert.IsType(t, &analyzer.QueueDispatcher{}, d)
		assert.NotNil(t, w)
	})

	t.Run("queue without embedded worker", func(t *testing.T) {
		d, w := newDispatcher(config.DispatchConfig{Mode: "queue", QueueName: "analysis"}, client, runner, mem.Admin())
		assert.IsType(t, &analyzer.QueueDispatcher{}, d)
		assert.Nil(t, w)
	})
}

func TestNewGoogleService_Disabled(t *testing.T) {
	mem := storetest.NewMemory()
	svc, err := newGoogleService(&config.Config{}, mem, mem.Admin(), cachetest.NewMemory())
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestNewGoogleService_Enabled(t *testing.T) {
	mem := storetest.NewMemory()
	key := []byte(strings.Repeat("k", 32))

	cfg := &config.Config{
		Server: config.ServerConfig{AppBaseURL: "http://localhost:3000"},
		Auth:   config.AuthConfig{JWTSecret: "secret"},
		Google: config.GoogleConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8080/api/v1/oauth/google/callback",
			TokenKey:     key,
		},
	}
	svc, err := newGoogleService(cfg, mem, mem.Admin(), cachetest.NewMemory())
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewGoogleService_BadKey(t *testing.T) {
	mem := storetest.NewMemory()
	cfg := &config.Config{Google: config.GoogleConfig{
		ClientID: "client-id", ClientSecret: "client-secret", TokenKey: []byte("short"),
	}}
	_, err := newGoogleService(cfg, mem, mem.Admin(), cachetest.NewMemory())
	assert.Error(t, err)
}
