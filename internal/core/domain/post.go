package domain

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// PostLifetime is how long a post stays alive after creation.
	PostLifetime = 24 * time.Hour
	// MaxTextLength is counted in characters (runes), not bytes.
	MaxTextLength = 200
	// TimelineLimit caps the number of posts returned by the timeline.
	TimelineLimit = 100
)

var (
	ErrPostNotFound = errors.New("Post not found")
	ErrTextTooLong  = fmt.Errorf("text exceeds %d characters", MaxTextLength)
)

type ReactionKind string

const (
	ReactionHeart ReactionKind = "heart"
	ReactionFire  ReactionKind = "fire"
	ReactionLaugh ReactionKind = "laugh"
)

// ParseReaction reports whether s names one of the three counters.
func ParseReaction(s string) (ReactionKind, bool) {
	switch k := ReactionKind(s); k {
	case ReactionHeart, ReactionFire, ReactionLaugh:
		return k, true
	}
	return "", false
}

type Reactions struct {
	Heart int
	Fire  int
	Laugh int
}

// Inc bumps the counter for kind by one. Unknown kinds are ignored.
func (r *Reactions) Inc(kind ReactionKind) {
	switch kind {
	case ReactionHeart:
		r.Heart++
	case ReactionFire:
		r.Fire++
	case ReactionLaugh:
		r.Laugh++
	}
}

// Post is an ephemeral update. UserName and UserPhoto are a snapshot of the
// author taken at creation and are never re-synced with later profile edits.
type Post struct {
	ID        string
	UserID    string
	UserName  string
	UserPhoto string
	Text      string
	ImageURL  string
	Location  string
	Reactions Reactions
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Draft is the caller-supplied part of a new post.
type Draft struct {
	UID      string
	Text     string
	ImageURL string
	Location string
}

// NewPost builds a post for author. ExpiresAt is always CreatedAt + PostLifetime.
func NewPost(author *User, d Draft, now time.Time) (*Post, error) {
	if utf8.RuneCountInString(d.Text) > MaxTextLength {
		return nil, ErrTextTooLong
	}
	return &Post{
		UserID:    author.ID,
		UserName:  author.DisplayName,
		UserPhoto: author.PhotoURL,
		Text:      d.Text,
		ImageURL:  d.ImageURL,
		Location:  d.Location,
		CreatedAt: now,
		ExpiresAt: now.Add(PostLifetime),
	}, nil
}

// Expired reports whether the post is past its expiry at now.
func (p *Post) Expired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}

// TimelineCutoff is the oldest creation time still visible in the timeline.
func TimelineCutoff(now time.Time) time.Time {
	return now.Add(-PostLifetime)
}
