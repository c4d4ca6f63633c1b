package services

import (
	"context"
	"time"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

// Option customises a service. Unset collaborators default to no-ops.
type Option func(*deps)

type deps struct {
	now       func() time.Time
	publisher ports.EventPublisher
	cache     ports.TimelineCache
	metrics   ports.FeedMetrics
}

func newDeps(opts []Option) deps {
	d := deps{
		now:       func() time.Time { return time.Now().UTC() },
		publisher: NoopPublisher{},
		cache:     NoopCache{},
		metrics:   noopMetrics{},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

func WithPublisher(p ports.EventPublisher) Option {
	return func(d *deps) {
		if p != nil {
			d.publisher = p
		}
	}
}

func WithTimelineCache(c ports.TimelineCache) Option {
	return func(d *deps) {
		if c != nil {
			d.cache = c
		}
	}
}

func WithMetrics(m ports.FeedMetrics) Option {
	return func(d *deps) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishUserUpserted(context.Context, *domain.User, bool) error { return nil }
func (NoopPublisher) PublishFriendAdded(context.Context, string, string) error       { return nil }
func (NoopPublisher) PublishPostCreated(context.Context, *domain.Post) error         { return nil }
func (NoopPublisher) PublishPostReacted(context.Context, *domain.Post, domain.ReactionKind) error {
	return nil
}
func (NoopPublisher) PublishPostDeleted(context.Context, string) error   { return nil }
func (NoopPublisher) PublishExpiredCleanup(context.Context, int64) error { return nil }

// NoopCache never holds anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context) ([]*domain.Post, bool) { return nil, false }
func (NoopCache) Set(context.Context, []*domain.Post)        {}
func (NoopCache) Invalidate(context.Context)                 {}

type noopMetrics struct{}

func (noopMetrics) PostCreated()                      {}
func (noopMetrics) ReactionAdded(domain.ReactionKind) {}
func (noopMetrics) ExpiredDeleted(int64)              {}
