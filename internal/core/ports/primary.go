package ports

import (
	"context"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
)

// UserService is the user directory as seen by the driving adapters.
// Everything except UpsertUser returns public (email stripped) users.
type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// UpsertUser reports created=true when the uid was unknown.
	UpsertUser(ctx context.Context, profile domain.Profile) (user *domain.User, created bool, err error)
	GetUser(ctx context.Context, uid string) (*domain.User, error)
	AddFriend(ctx context.Context, uid, friendUID string) (*domain.User, error)
	ListFriends(ctx context.Context, uid string) ([]*domain.User, error)
}

type PostService interface {
	ListTimeline(ctx context.Context) ([]*domain.Post, error)
	ListUserPosts(ctx context.Context, uid string) ([]*domain.Post, error)
	CreatePost(ctx context.Context, draft domain.Draft) (*domain.Post, error)
	// AddReaction ignores unknown reaction types and still returns the post.
	AddReaction(ctx context.Context, postID, reactionType string) (*domain.Post, error)
	DeletePost(ctx context.Context, postID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// DebugSnapshot is a compact dump of the store for development.
type DebugSnapshot struct {
	Users      []*domain.User
	PostsCount int64
	Posts      []*domain.Post
}

// DevService backs the non-production test endpoints.
type DevService interface {
	Reset(ctx context.Context) error
	Seed(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (*DebugSnapshot, error)
}
