package domain

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// --- DOMAIN ERRORS ---
var (
	ErrUserNotFound = errors.New("User not found")
	ErrMissingUID   = errors.New("uid is required")
	ErrUserExists   = errors.New("user already exists")
)

// User is a member of the directory, keyed externally by UID (issued by the
// identity provider) and internally by ID.
type User struct {
	ID          string
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
	Friends     []string // internal IDs, insertion order
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile carries the fields an upsert overwrites.
type Profile struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

// NewUser builds a fresh user from a profile. The caller assigns the ID when
// the store does not generate one.
func NewUser(p Profile, now time.Time) (*User, error) {
	uid := strings.TrimSpace(p.UID)
	if uid == "" {
		return nil, ErrMissingUID
	}
	return &User{
		UID:         uid,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		PhotoURL:    p.PhotoURL,
		Friends:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Overwrite replaces every profile field, including the ones left empty.
func (u *User) Overwrite(p Profile, now time.Time) {
	u.DisplayName = p.DisplayName
	u.Email = p.Email
	u.PhotoURL = p.PhotoURL
	u.UpdatedAt = now
}

// AddFriend appends friendID unless it is already present and reports
// whether the list changed.
func (u *User) AddFriend(friendID string) bool {
	if u.HasFriend(friendID) {
		return false
	}
	u.Friends = append(u.Friends, friendID)
	return true
}

func (u *User) HasFriend(friendID string) bool {
	return slices.Contains(u.Friends, friendID)
}

// Public returns a copy safe for public reads (email stripped).
func (u *User) Public() *User {
	c := *u
	c.Email = ""
	c.Friends = slices.Clone(u.Friends)
	if c.Friends == nil {
		c.Friends = []string{}
	}
	return &c
}
