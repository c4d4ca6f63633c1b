package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newPost(userID string, created time.Time) *domain.Post {
	return &domain.Post{
		UserID:    userID,
		Text:      "hi",
		CreatedAt: created,
		ExpiresAt: created.Add(domain.PostLifetime),
	}
}

func TestMemoryUserRepo_SaveAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()

	u, err := domain.NewUser(domain.Profile{UID: "u1", DisplayName: "Alice", Email: "a@x"}, t0)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := repo.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "a@x", got.Email)

	_, err = repo.GetByUID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMemoryUserRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()

	u, _ := domain.NewUser(domain.Profile{UID: "u1", DisplayName: "Alice"}, t0)
	require.NoError(t, repo.Save(ctx, u))

	got, _ := repo.GetByUID(ctx, "u1")
	got.DisplayName = "Mallory"
	got.Friends = append(got.Friends, "x")

	again, _ := repo.GetByUID(ctx, "u1")
	assert.Equal(t, "Alice", again.DisplayName)
	assert.Empty(t, again.Friends)
}

func TestMemoryUserRepo_UpdateMissing(t *testing.T) {
	repo := NewMemoryUserRepo()
	err := repo.Update(context.Background(), &domain.User{ID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMemoryUserRepo_SaveRejectsTakenUID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()

	first, _ := domain.NewUser(domain.Profile{UID: "u1", DisplayName: "Alice"}, t0)
	require.NoError(t, repo.Save(ctx, first))

	dup, _ := domain.NewUser(domain.Profile{UID: "u1", DisplayName: "Mallory"}, t0)
	assert.ErrorIs(t, repo.Save(ctx, dup), domain.ErrUserExists)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].DisplayName)
}

func TestMemoryUserRepo_AddFriendKeepsOrderWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()

	u, _ := domain.NewUser(domain.Profile{UID: "u1"}, t0)
	require.NoError(t, repo.Save(ctx, u))

	_, err := repo.AddFriend(ctx, u.ID, "b")
	require.NoError(t, err)
	_, err = repo.AddFriend(ctx, u.ID, "a")
	require.NoError(t, err)
	got, err := repo.AddFriend(ctx, u.ID, "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, got.Friends)

	_, err = repo.AddFriend(ctx, "ghost", "a")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMemoryUserRepo_ListInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()
	for _, uid := range []string{"c", "a", "b"} {
		u, _ := domain.NewUser(domain.Profile{UID: uid}, t0)
		require.NoError(t, repo.Save(ctx, u))
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "c", users[0].UID)
	assert.Equal(t, "b", users[2].UID)

	require.NoError(t, repo.DeleteAll(ctx))
	users, _ = repo.List(ctx)
	assert.Empty(t, users)
}

func TestMemoryPostRepo_ListSinceNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostRepo()

	for i := range 5 {
		require.NoError(t, repo.Save(ctx, newPost("u", t0.Add(time.Duration(i)*time.Hour))))
	}

	posts, err := repo.ListSince(ctx, t0.Add(time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, posts, 4)
	assert.Equal(t, t0.Add(4*time.Hour), posts[0].CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), posts[3].CreatedAt)

	posts, err = repo.ListSince(ctx, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, t0.Add(4*time.Hour), posts[0].CreatedAt)
}

func TestMemoryPostRepo_ListByAuthor(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostRepo()
	require.NoError(t, repo.Save(ctx, newPost("alice", t0)))
	require.NoError(t, repo.Save(ctx, newPost("bob", t0)))
	require.NoError(t, repo.Save(ctx, newPost("alice", t0.Add(time.Minute))))

	posts, err := repo.ListByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.True(t, posts[0].CreatedAt.After(posts[1].CreatedAt))

	posts, err = repo.ListByAuthor(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestMemoryPostRepo_ConcurrentReactionsAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostRepo()
	p := newPost("u", t0)
	require.NoError(t, repo.Save(ctx, p))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.IncrementReaction(ctx, p.ID, domain.ReactionFire)
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Reactions.Fire)
	assert.Zero(t, got.Reactions.Heart)

	_, err = repo.IncrementReaction(ctx, "ghost", domain.ReactionFire)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestMemoryPostRepo_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostRepo()

	old := newPost("u", t0.Add(-25*time.Hour))
	fresh := newPost("u", t0)
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))

	n, err := repo.DeleteExpired(ctx, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteExpired(ctx, t0)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, _ := repo.Count(ctx)
	assert.EqualValues(t, 1, count)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestMemoryPostRepo_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostRepo()
	p := newPost("u", t0)
	require.NoError(t, repo.Save(ctx, p))

	require.NoError(t, repo.Delete(ctx, p.ID))
	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err := repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}
