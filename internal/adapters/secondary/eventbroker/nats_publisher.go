package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
)

const (
	SubjectUserUpserted   = "nowshare.user.upserted"
	SubjectFriendAdded    = "nowshare.user.friend_added"
	SubjectPostCreated    = "nowshare.post.created"
	SubjectPostReacted    = "nowshare.post.reacted"
	SubjectPostDeleted    = "nowshare.post.deleted"
	SubjectExpiredCleanup = "nowshare.post.expired_cleanup"
)

// msgPublisher is the part of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

type NatsPublisher struct {
	nc msgPublisher
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// Event payloads. Email never leaves the service.
type UserUpsertedEvent struct {
	UserID      string    `json:"user_id"`
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name"`
	Created     bool      `json:"created"`
	At          time.Time `json:"at"`
}

type FriendAddedEvent struct {
	UID       string `json:"uid"`
	FriendUID string `json:"friend_uid"`
}

type PostCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	HasImage  bool      `json:"has_image"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PostReactedEvent struct {
	ID        string         `json:"id"`
	Reaction  string         `json:"reaction"`
	Reactions map[string]int `json:"reactions"`
}

type PostDeletedEvent struct {
	ID string `json:"id"`
}

type ExpiredCleanupEvent struct {
	Deleted int64 `json:"deleted"`
}

func (p *NatsPublisher) PublishUserUpserted(ctx context.Context, user *domain.User, created bool) error {
	return p.publish(ctx, SubjectUserUpserted, UserUpsertedEvent{
		UserID:      user.ID,
		UID:         user.UID,
		DisplayName: user.DisplayName,
		Created:     created,
		At:          user.UpdatedAt,
	})
}

func (p *NatsPublisher) PublishFriendAdded(ctx context.Context, uid, friendUID string) error {
	return p.publish(ctx, SubjectFriendAdded, FriendAddedEvent{UID: uid, FriendUID: friendUID})
}

func (p *NatsPublisher) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	return p.publish(ctx, SubjectPostCreated, PostCreatedEvent{
		ID:        post.ID,
		AuthorID:  post.UserID,
		Text:      post.Text,
		HasImage:  post.ImageURL != "",
		CreatedAt: post.CreatedAt,
		ExpiresAt: post.ExpiresAt,
	})
}

func (p *NatsPublisher) PublishPostReacted(ctx context.Context, post *domain.Post, kind domain.ReactionKind) error {
	return p.publish(ctx, SubjectPostReacted, PostReactedEvent{
		ID:       post.ID,
		Reaction: string(kind),
		Reactions: map[string]int{
			string(domain.ReactionHeart): post.Reactions.Heart,
			string(domain.ReactionFire):  post.Reactions.Fire,
			string(domain.ReactionLaugh): post.Reactions.Laugh,
		},
	})
}

func (p *NatsPublisher) PublishPostDeleted(ctx context.Context, postID string) error {
	return p.publish(ctx, SubjectPostDeleted, PostDeletedEvent{ID: postID})
}

func (p *NatsPublisher) PublishExpiredCleanup(ctx context.Context, deleted int64) error {
	return p.publish(ctx, SubjectExpiredCleanup, ExpiredCleanupEvent{Deleted: deleted})
}

// publish encodes event as JSON and carries the caller's trace context in
// the message headers.
func (p *NatsPublisher) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("Publishing event", "subject", subject)
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}
