package ports

import (
	"context"
	"time"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
)

// --- PERSISTENCE ---

// UserRepository stores the user directory. Lookups that miss return
// domain.ErrUserNotFound.
type UserRepository interface {
	List(ctx context.Context) ([]*domain.User, error)
	GetByUID(ctx context.Context, uid string) (*domain.User, error)
	// GetByIDs returns the users that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	// Save inserts a new user and fills user.ID.
	Save(ctx context.Context, user *domain.User) error
	// Update overwrites the profile fields of an existing user.
	Update(ctx context.Context, user *domain.User) error
	// AddFriend appends friendID to the user's friend list unless present
	// and returns the stored user.
	AddFriend(ctx context.Context, userID, friendID string) (*domain.User, error)
	DeleteAll(ctx context.Context) error
}

// PostRepository stores posts. Lookups that miss return domain.ErrPostNotFound.
type PostRepository interface {
	// Save inserts a new post and fills post.ID.
	Save(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, postID string) (*domain.Post, error)
	// ListSince returns posts created at or after cutoff, newest first.
	// A limit <= 0 means no limit.
	ListSince(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Post, error)
	// ListByAuthor returns every post of userID, newest first, expired or not.
	ListByAuthor(ctx context.Context, userID string) ([]*domain.Post, error)
	IncrementReaction(ctx context.Context, postID string, kind domain.ReactionKind) (*domain.Post, error)
	// Delete removes a post. Deleting a missing post is not an error.
	Delete(ctx context.Context, postID string) error
	// DeleteExpired removes posts whose ExpiresAt is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// --- MESSAGING ---

// EventPublisher notifies other systems of directory and feed changes.
// Publication is best effort.
type EventPublisher interface {
	PublishUserUpserted(ctx context.Context, user *domain.User, created bool) error
	PublishFriendAdded(ctx context.Context, uid, friendUID string) error
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostReacted(ctx context.Context, post *domain.Post, kind domain.ReactionKind) error
	PublishPostDeleted(ctx context.Context, postID string) error
	PublishExpiredCleanup(ctx context.Context, deleted int64) error
}

// --- CACHE ---

// TimelineCache holds the last computed timeline for a short time.
type TimelineCache interface {
	Get(ctx context.Context) ([]*domain.Post, bool)
	Set(ctx context.Context, posts []*domain.Post)
	Invalidate(ctx context.Context)
}

// --- METRICS ---

type FeedMetrics interface {
	PostCreated()
	ReactionAdded(kind domain.ReactionKind)
	ExpiredDeleted(n int64)
}
