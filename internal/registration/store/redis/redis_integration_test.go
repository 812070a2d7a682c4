//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"realform/internal/registration/store/redis"
	"realform/internal/registration/store/storetest"
	"realform/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	store := redis.New(rc.Client, redis.WithKeyPrefix("test:"))

	storetest.Run(t, func(t *testing.T) storetest.Store {
		require.NoError(t, rc.Reset(context.Background()))
		return store
	})
}
