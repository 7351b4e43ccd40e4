package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "menu:1", []entry{{Name: "Soup"}}))

	var got []entry
	hit, err := c.Get(ctx, "menu:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
	assert.NoError(t, c.Delete(ctx, "menu:1"))
}

// Runs against a live server when CAFE_TEST_REDIS_ADDR is set.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("CAFE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CAFE_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewRedis(ctx, addr, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key := "test:" + t.Name()
	want := []entry{{Name: "Soup", Price: "4.00"}, {Name: "Tea", Price: "1.50"}}
	require.NoError(t, c.Set(ctx, key, want))

	var got []entry
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, key))
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedis(ctx, "127.0.0.1:1", time.Minute)
	assert.Error(t, err)
}
