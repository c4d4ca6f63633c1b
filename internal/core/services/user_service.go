package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

// UserService implements ports.UserService.
type UserService struct {
	repo ports.UserRepository
	deps
}

func NewUserService(repo ports.UserRepository, opts ...Option) *UserService {
	return &UserService{repo: repo, deps: newDeps(opts)}
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return publicUsers(users), nil
}

// UpsertUser creates the user on first sight, otherwise overwrites the
// profile fields. Concurrent upserts of the same uid are last-write-wins.
func (s *UserService) UpsertUser(ctx context.Context, p domain.Profile) (*domain.User, bool, error) {
	p.UID = strings.TrimSpace(p.UID)
	if p.UID == "" {
		return nil, false, domain.ErrMissingUID
	}
	now := s.now()

	user, err := s.repo.GetByUID(ctx, p.UID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		created, err := domain.NewUser(p, now)
		if err != nil {
			return nil, false, err
		}
		err = s.repo.Save(ctx, created)
		if err == nil {
			s.publishUpsert(ctx, created, true)
			return created, true, nil
		}
		if !errors.Is(err, domain.ErrUserExists) {
			return nil, false, fmt.Errorf("save user: %w", err)
		}
		// A concurrent upsert inserted the uid first; overwrite its record.
		if user, err = s.repo.GetByUID(ctx, p.UID); err != nil {
			return nil, false, err
		}
	case err != nil:
		return nil, false, err
	}

	user.Overwrite(p, now)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, false, fmt.Errorf("update user: %w", err)
	}
	s.publishUpsert(ctx, user, false)
	return user, false, nil
}

func (s *UserService) GetUser(ctx context.Context, uid string) (*domain.User, error) {
	user, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *UserService) AddFriend(ctx context.Context, uid, friendUID string) (*domain.User, error) {
	user, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	friend, err := s.repo.GetByUID(ctx, friendUID)
	if err != nil {
		return nil, err
	}

	if user.HasFriend(friend.ID) {
		return user.Public(), nil
	}

	updated, err := s.repo.AddFriend(ctx, user.ID, friend.ID)
	if err != nil {
		return nil, err
	}
	if err := s.publisher.PublishFriendAdded(ctx, user.UID, friend.UID); err != nil {
		slog.Warn("Failed to publish friend added", "uid", uid, "error", err)
	}
	return updated.Public(), nil
}

// ListFriends resolves the friend references in insertion order. References
// to users that no longer resolve are skipped.
func (s *UserService) ListFriends(ctx context.Context, uid string) ([]*domain.User, error) {
	user, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(user.Friends) == 0 {
		return []*domain.User{}, nil
	}

	found, err := s.repo.GetByIDs(ctx, user.Friends)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.User, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}

	friends := make([]*domain.User, 0, len(user.Friends))
	for _, id := range user.Friends {
		if f, ok := byID[id]; ok {
			friends = append(friends, f.Public())
		}
	}
	return friends, nil
}

func (s *UserService) publishUpsert(ctx context.Context, user *domain.User, created bool) {
	if err := s.publisher.PublishUserUpserted(ctx, user, created); err != nil {
		slog.Warn("Failed to publish user upserted", "uid", user.UID, "error", err)
	}
}

func publicUsers(users []*domain.User) []*domain.User {
	out := make([]*domain.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out
}
