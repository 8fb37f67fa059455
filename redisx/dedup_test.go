package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Config{
		Addr:         mr.Addr(),
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     5,
		PoolTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMarkProcessed_FirstThenDuplicate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "processed:game-play:ev-1"

	created, err := c.MarkProcessed(ctx, key, ProcessedTTL)
	require.NoError(t, err)
	require.True(t, created)

	created, err = c.MarkProcessed(ctx, key, ProcessedTTL)
	require.NoError(t, err)
	require.False(t, created)
}

func TestReleaseProcessed_AllowsReprocessing(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "processed:game-play:ev-2"

	_, err := c.MarkProcessed(ctx, key, ProcessedTTL)
	require.NoError(t, err)

	require.NoError(t, c.ReleaseProcessed(ctx, key))

	created, err := c.MarkProcessed(ctx, key, ProcessedTTL)
	require.NoError(t, err)
	require.True(t, created)
}
