package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/registrar/internal/cache"
)

// unreachable points at a port nothing listens on.
func unreachable(t *testing.T) *cache.Redis {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	return cache.New(client, time.Minute)
}

func TestRedis_Unreachable(t *testing.T) {
	c := unreachable(t)

	var dst map[string]int

	found, err := c.Get(context.Background(), "report:summary", &dst)
	require.Error(t, err)
	assert.False(t, found)

	assert.Error(t, c.Set(context.Background(), "report:summary", map[string]int{"Submitted": 1}))
}

func TestRedis_SetUnencodable(t *testing.T) {
	c := unreachable(t)

	err := c.Set(context.Background(), "bad", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding bad")
}

func TestConnect_Fails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cache.Connect(ctx, "127.0.0.1:1", "", 0, time.Minute)
	assert.Error(t, err)
}
