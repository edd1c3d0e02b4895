package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedItem struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_MissFetchesAndPopulates(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	fetched := 0
	var item cachedItem
	err := Aside(ctx, ContentKey(7), &item, time.Minute, func() error {
		fetched++
		item = cachedItem{ID: 7, Title: "gated"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	assert.Equal(t, "gated", item.Title)
	assert.True(t, mr.Exists(ContentKey(7)))

	// Second call is served from cache; fetch is not called again.
	var again cachedItem
	err = Aside(ctx, ContentKey(7), &again, time.Minute, func() error {
		fetched++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	assert.Equal(t, item, again)
}

func TestAside_FetchErrorPropagatesAndNothingCached(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	fetchErr := errors.New("db down")
	var item cachedItem
	err := Aside(ctx, ContentKey(8), &item, time.Minute, func() error { return fetchErr })
	assert.ErrorIs(t, err, fetchErr)
	assert.False(t, mr.Exists(ContentKey(8)))
}

func TestAside_NilClientAlwaysFetches(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	fetched := 0
	var item cachedItem
	for i := 0; i < 2; i++ {
		err := Aside(ctx, ContentKey(9), &item, time.Minute, func() error {
			fetched++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fetched)
}

func TestInvalidateContent(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, ContentKey(3), cachedItem{ID: 3}, time.Minute))
	require.NoError(t, SetJSON(ctx, ReplyTreeKey(3), []string{"a"}, time.Minute))

	InvalidateContent(ctx, 3)
	assert.False(t, mr.Exists(ContentKey(3)))
	assert.False(t, mr.Exists(ReplyTreeKey(3)))
}
