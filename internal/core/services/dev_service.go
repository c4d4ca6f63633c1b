package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

const (
	DemoUID         = "demo-user"
	DemoDisplayName = "Demo User"
	DemoEmail       = "demo@example.com"
)

var seedTexts = []string{
	"Morning coffee ☕",
	"Coding away 💻",
	"Heading out for a walk 🚶",
	"What should I get for lunch? 🍜",
	"Gaming time 🎮",
}

// DevService implements ports.DevService. It must only be reachable outside
// production.
type DevService struct {
	users ports.UserRepository
	posts ports.PostRepository
	deps
}

func NewDevService(users ports.UserRepository, posts ports.PostRepository, opts ...Option) *DevService {
	return &DevService{users: users, posts: posts, deps: newDeps(opts)}
}

// EnsureDemoUser creates the demo account if it does not exist yet.
func (s *DevService) EnsureDemoUser(ctx context.Context) (*domain.User, error) {
	u, err := s.users.GetByUID(ctx, DemoUID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	u, err = domain.NewUser(domain.Profile{UID: DemoUID, DisplayName: DemoDisplayName, Email: DemoEmail}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save demo user: %w", err)
	}
	return u, nil
}

// Reset wipes every user and post and recreates the demo account.
func (s *DevService) Reset(ctx context.Context) error {
	if err := s.posts.DeleteAll(ctx); err != nil {
		return fmt.Errorf("reset posts: %w", err)
	}
	if err := s.users.DeleteAll(ctx); err != nil {
		return fmt.Errorf("reset users: %w", err)
	}
	s.cache.Invalidate(ctx)
	_, err := s.EnsureDemoUser(ctx)
	return err
}

// Seed writes one post per seed text for the demo user, each an hour older
// than the previous one.
func (s *DevService) Seed(ctx context.Context) (int, error) {
	author, err := s.EnsureDemoUser(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	for i, text := range seedTexts {
		post, err := domain.NewPost(author, domain.Draft{UID: author.UID, Text: text}, now.Add(-time.Duration(i)*time.Hour))
		if err != nil {
			return i, err
		}
		post.Reactions = domain.Reactions{
			Heart: rand.IntN(10),
			Fire:  rand.IntN(5),
			Laugh: rand.IntN(3),
		}
		if err := s.posts.Save(ctx, post); err != nil {
			return i, fmt.Errorf("seed post %d: %w", i, err)
		}
	}
	s.cache.Invalidate(ctx)
	return len(seedTexts), nil
}

func (s *DevService) Snapshot(ctx context.Context) (*ports.DebugSnapshot, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.posts.Count(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListSince(ctx, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	return &ports.DebugSnapshot{
		Users:      publicUsers(users),
		PostsCount: count,
		Posts:      posts,
	}, nil
}
