package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
)

const TimelineKey = "nowshare:timeline"

// cachedPost is the JSON shape kept in Redis, decoupled from the domain type.
type cachedPost struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserPhoto string    `json:"user_photo"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url"`
	Location  string    `json:"location"`
	Heart     int       `json:"heart"`
	Fire      int       `json:"fire"`
	Laugh     int       `json:"laugh"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisTimelineCache keeps the last computed timeline for a few seconds so
// that polling clients do not all hit the store. Redis errors degrade to a
// cache miss.
type RedisTimelineCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisTimelineCache(client redis.Cmdable, ttl time.Duration) *RedisTimelineCache {
	return &RedisTimelineCache{client: client, ttl: ttl}
}

func (c *RedisTimelineCache) Get(ctx context.Context) ([]*domain.Post, bool) {
	data, err := c.client.Get(ctx, TimelineKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Timeline cache read failed", "error", err)
		}
		return nil, false
	}

	var entries []cachedPost
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("Timeline cache entry is corrupt", "error", err)
		return nil, false
	}

	posts := make([]*domain.Post, len(entries))
	for i, e := range entries {
		posts[i] = &domain.Post{
			ID:        e.ID,
			UserID:    e.UserID,
			UserName:  e.UserName,
			UserPhoto: e.UserPhoto,
			Text:      e.Text,
			ImageURL:  e.ImageURL,
			Location:  e.Location,
			Reactions: domain.Reactions{Heart: e.Heart, Fire: e.Fire, Laugh: e.Laugh},
			CreatedAt: e.CreatedAt,
			ExpiresAt: e.ExpiresAt,
		}
	}
	return posts, true
}

func (c *RedisTimelineCache) Set(ctx context.Context, posts []*domain.Post) {
	entries := make([]cachedPost, len(posts))
	for i, p := range posts {
		entries[i] = cachedPost{
			ID:        p.ID,
			UserID:    p.UserID,
			UserName:  p.UserName,
			UserPhoto: p.UserPhoto,
			Text:      p.Text,
			ImageURL:  p.ImageURL,
			Location:  p.Location,
			Heart:     p.Reactions.Heart,
			Fire:      p.Reactions.Fire,
			Laugh:     p.Reactions.Laugh,
			CreatedAt: p.CreatedAt,
			ExpiresAt: p.ExpiresAt,
		}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		slog.Warn("Timeline cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, TimelineKey, data, c.ttl).Err(); err != nil {
		slog.Warn("Timeline cache write failed", "error", err)
	}
}

func (c *RedisTimelineCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, TimelineKey).Err(); err != nil {
		slog.Warn("Timeline cache invalidation failed", "error", err)
	}
}
