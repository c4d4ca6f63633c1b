package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

var (
	_ ports.UserRepository = (*MemoryUserRepo)(nil)
	_ ports.PostRepository = (*MemoryPostRepo)(nil)
)

// MemoryUserRepo keeps users in process memory. It suits single-instance
// demos and tests; nothing survives a restart.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	byID  map[string]*domain.User
	order []string // insertion order of IDs
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{byID: make(map[string]*domain.User)}
}

func (r *MemoryUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneUser(r.byID[id]))
	}
	return out, nil
}

func (r *MemoryUserRepo) GetByUID(_ context.Context, uid string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.UID == uid {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *MemoryUserRepo) GetByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *MemoryUserRepo) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.UID == user.UID {
			return domain.ErrUserExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Friends == nil {
		user.Friends = []string{}
	}
	r.byID[user.ID] = cloneUser(user)
	r.order = append(r.order, user.ID)
	return nil
}

func (r *MemoryUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	stored.DisplayName = user.DisplayName
	stored.Email = user.Email
	stored.PhotoURL = user.PhotoURL
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *MemoryUserRepo) AddFriend(_ context.Context, userID, friendID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	stored.AddFriend(friendID)
	return cloneUser(stored), nil
}

func (r *MemoryUserRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]*domain.User)
	r.order = nil
	return nil
}

// MemoryPostRepo keeps posts in process memory behind its own lock.
type MemoryPostRepo struct {
	mu    sync.RWMutex
	posts map[string]*domain.Post
}

func NewMemoryPostRepo() *MemoryPostRepo {
	return &MemoryPostRepo{posts: make(map[string]*domain.Post)}
}

func (r *MemoryPostRepo) Save(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	c := *post
	r.posts[post.ID] = &c
	return nil
}

func (r *MemoryPostRepo) FindByID(_ context.Context, postID string) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	c := *p
	return &c, nil
}

func (r *MemoryPostRepo) ListSince(_ context.Context, cutoff time.Time, limit int) ([]*domain.Post, error) {
	out := r.collect(func(p *domain.Post) bool { return !p.CreatedAt.Before(cutoff) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryPostRepo) ListByAuthor(_ context.Context, userID string) ([]*domain.Post, error) {
	return r.collect(func(p *domain.Post) bool { return p.UserID == userID }), nil
}

func (r *MemoryPostRepo) IncrementReaction(_ context.Context, postID string, kind domain.ReactionKind) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	p.Reactions.Inc(kind)
	c := *p
	return &c, nil
}

func (r *MemoryPostRepo) Delete(_ context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.posts, postID)
	return nil
}

func (r *MemoryPostRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, p := range r.posts {
		if p.Expired(now) {
			delete(r.posts, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryPostRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.posts)), nil
}

func (r *MemoryPostRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = make(map[string]*domain.Post)
	return nil
}

// collect returns copies of the matching posts, newest first.
func (r *MemoryPostRepo) collect(match func(*domain.Post) bool) []*domain.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Post, 0)
	for _, p := range r.posts {
		if match(p) {
			c := *p
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Friends = slices.Clone(u.Friends)
	if c.Friends == nil {
		c.Friends = []string{}
	}
	return &c
}
