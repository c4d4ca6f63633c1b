package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
)

func TestRedisTimelineCache_UnreachableServerIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisTimelineCache(client, time.Second)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		c.Set(ctx, []*domain.Post{{ID: "p1", Text: "hi"}})
		c.Invalidate(ctx)
	})

	posts, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, posts)
}

func newMiniredisCache(t *testing.T, ttl time.Duration) (*RedisTimelineCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTimelineCache(client, ttl), srv
}

func TestRedisTimelineCache_RoundTrip(t *testing.T) {
	c, srv := newMiniredisCache(t, 5*time.Second)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	want := []*domain.Post{
		{
			ID:        "p2",
			UserID:    "u1",
			UserName:  "Alice",
			UserPhoto: "https://img/alice.png",
			Text:      "sunset",
			ImageURL:  "https://img/sunset.jpg",
			Location:  "Lisbon",
			Reactions: domain.Reactions{Heart: 1, Fire: 3, Laugh: 2},
			CreatedAt: created.Add(time.Minute),
			ExpiresAt: created.Add(time.Minute + domain.PostLifetime),
		},
		{
			ID:        "p1",
			UserID:    "u2",
			UserName:  "Bob",
			Text:      "coffee",
			CreatedAt: created,
			ExpiresAt: created.Add(domain.PostLifetime),
		},
	}

	_, ok := c.Get(ctx)
	assert.False(t, ok, "empty cache is a miss")

	c.Set(ctx, want)
	assert.Equal(t, 5*time.Second, srv.TTL(TimelineKey))

	got, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].UserID, got[i].UserID)
		assert.Equal(t, want[i].UserName, got[i].UserName)
		assert.Equal(t, want[i].UserPhoto, got[i].UserPhoto)
		assert.Equal(t, want[i].Text, got[i].Text)
		assert.Equal(t, want[i].ImageURL, got[i].ImageURL)
		assert.Equal(t, want[i].Location, got[i].Location)
		assert.Equal(t, want[i].Reactions, got[i].Reactions)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
		assert.True(t, want[i].ExpiresAt.Equal(got[i].ExpiresAt))
	}
}

func TestRedisTimelineCache_EntryExpires(t *testing.T) {
	c, srv := newMiniredisCache(t, 5*time.Second)
	ctx := context.Background()

	c.Set(ctx, []*domain.Post{{ID: "p1"}})
	srv.FastForward(6 * time.Second)

	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestRedisTimelineCache_InvalidateDeletesKey(t *testing.T) {
	c, srv := newMiniredisCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, []*domain.Post{{ID: "p1"}})
	require.True(t, srv.Exists(TimelineKey))

	c.Invalidate(ctx)
	assert.False(t, srv.Exists(TimelineKey))
	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestRedisTimelineCache_CorruptEntryIsAMiss(t *testing.T) {
	c, srv := newMiniredisCache(t, time.Minute)
	require.NoError(t, srv.Set(TimelineKey, "{not json"))

	posts, ok := c.Get(context.Background())
	assert.False(t, ok)
	assert.Nil(t, posts)
}

func TestRedisTimelineCache_EmptyTimelineIsAHit(t *testing.T) {
	c, _ := newMiniredisCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, []*domain.Post{})
	posts, ok := c.Get(ctx)
	assert.True(t, ok)
	assert.Empty(t, posts)
}
