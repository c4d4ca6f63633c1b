package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

// PostService implements ports.PostService.
type PostService struct {
	posts ports.PostRepository
	users ports.UserRepository
	deps
}

func NewPostService(posts ports.PostRepository, users ports.UserRepository, opts ...Option) *PostService {
	return &PostService{posts: posts, users: users, deps: newDeps(opts)}
}

// ListTimeline returns the newest posts of the last 24 hours, capped at
// domain.TimelineLimit.
//
// A cached timeline is re-filtered on every read, as posts may have crossed
// the 24h line since it was stored. A read racing a write can still store a
// timeline that misses the write; the cache TTL bounds how long it is served.
func (s *PostService) ListTimeline(ctx context.Context) ([]*domain.Post, error) {
	cutoff := domain.TimelineCutoff(s.now())
	if cached, ok := s.cache.Get(ctx); ok {
		live := make([]*domain.Post, 0, len(cached))
		for _, p := range cached {
			if !p.CreatedAt.Before(cutoff) {
				live = append(live, p)
			}
		}
		return live, nil
	}

	posts, err := s.posts.ListSince(ctx, cutoff, domain.TimelineLimit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, posts)
	return posts, nil
}

// ListUserPosts does not filter on expiry: posts past ExpiresAt that the
// store has not swept yet are still returned.
func (s *PostService) ListUserPosts(ctx context.Context, uid string) ([]*domain.Post, error) {
	user, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.posts.ListByAuthor(ctx, user.ID)
}

// CreatePost requires an existing author; unknown uids are ErrUserNotFound.
func (s *PostService) CreatePost(ctx context.Context, d domain.Draft) (*domain.Post, error) {
	author, err := s.users.GetByUID(ctx, d.UID)
	if err != nil {
		return nil, err
	}

	post, err := domain.NewPost(author, d, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.posts.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.metrics.PostCreated()
	if err := s.publisher.PublishPostCreated(ctx, post); err != nil {
		slog.Warn("Failed to publish post created", "post_id", post.ID, "error", err)
	}
	return post, nil
}

func (s *PostService) AddReaction(ctx context.Context, postID, reactionType string) (*domain.Post, error) {
	kind, ok := domain.ParseReaction(reactionType)
	if !ok {
		slog.Debug("Ignoring unknown reaction", "post_id", postID, "reaction", reactionType)
		return s.posts.FindByID(ctx, postID)
	}

	post, err := s.posts.IncrementReaction(ctx, postID, kind)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.metrics.ReactionAdded(kind)
	if err := s.publisher.PublishPostReacted(ctx, post, kind); err != nil {
		slog.Warn("Failed to publish post reacted", "post_id", post.ID, "error", err)
	}
	return post, nil
}

// DeletePost has no ownership check: any caller may delete any post.
func (s *PostService) DeletePost(ctx context.Context, postID string) error {
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	if err := s.publisher.PublishPostDeleted(ctx, postID); err != nil {
		slog.Warn("Failed to publish post deleted", "post_id", postID, "error", err)
	}
	return nil
}

// CleanupExpired removes every post past its expiry and returns how many
// were deleted. Running it twice in a row deletes nothing the second time.
func (s *PostService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.posts.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	s.cache.Invalidate(ctx)
	s.metrics.ExpiredDeleted(n)
	if err := s.publisher.PublishExpiredCleanup(ctx, n); err != nil {
		slog.Warn("Failed to publish expired cleanup", "deleted", n, "error", err)
	}
	slog.Info("Expired posts removed", "deleted", n)
	return n, nil
}
