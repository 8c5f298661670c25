//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trustledger/internal/ledger"
	"trustledger/internal/platform/config"
	redisplatform "trustledger/internal/platform/redis"
	id "trustledger/pkg/domain"
	"trustledger/pkg/testutil/containers"
)

func TestRedisSource(t *testing.T) {
	ctx := context.Background()
	url := containers.StartRedis(t)

	client, err := redisplatform.New(config.Redis{
		URL:          url,
		PoolSize:     2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	const key = "trustledger:height"
	require.NoError(t, client.Set(ctx, key, "150", 0).Err())

	// Zero cache TTL so every read hits Redis.
	source := ledger.NewRedisSource(client, key, 0)

	h, err := source.CurrentHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, id.Height(150), h)

	require.NoError(t, client.Set(ctx, key, "175", 0).Err())
	h, err = source.CurrentHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, id.Height(175), h)

	// A lagging replica publishing an older height never moves the clock back.
	require.NoError(t, client.Set(ctx, key, "160", 0).Err())
	h, err = source.CurrentHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, id.Height(175), h)
}

func TestRedisSourceMissingKey(t *testing.T) {
	ctx := context.Background()
	url := containers.StartRedis(t)

	client, err := redisplatform.New(config.Redis{
		URL:          url,
		PoolSize:     2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	source := ledger.NewRedisSource(client, "trustledger:missing", 0)
	_, err = source.CurrentHeight(ctx)
	require.Error(t, err, "no height has ever been observed, so there is nothing to fall back to")
}
