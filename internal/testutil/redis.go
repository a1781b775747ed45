// Package testutil provides test helpers including container management.
package testutil

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/arenalabs/arena/internal/config"
	"github.com/arenalabs/arena/internal/store"
)

// RedisContainer wraps a testcontainers Redis instance connected through the
// store client.
type RedisContainer struct {
	container *tcredis.RedisContainer
	Store     *store.Redis
	Config    config.RedisConfig
}

// NewRedisContainer starts a Redis test container and returns a connected
// store client.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected client, or
// fails the test. Cleanup is registered on t.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("starting redis container: %v [%s]", err, time.Since(start))
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminating redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("reading redis connection string: %v", err)
	}

	cfg := config.RedisConfig{URL: url, DialTimeout: 5 * time.Second}
	st, err := store.NewRedis(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to redis container: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &RedisContainer{container: container, Store: st, Config: cfg}
}
