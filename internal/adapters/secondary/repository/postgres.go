package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

var (
	_ ports.UserRepository = (*PostgresUserRepo)(nil)
	_ ports.PostRepository = (*PostgresPostRepo)(nil)
)

// DBTX is the part of *pgxpool.Pool the Postgres stores use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresSchema is applied at start up. Postgres has no TTL, expired rows
// are removed by the sweeper.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	uid          TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	photo_url    TEXT NOT NULL DEFAULT '',
	friends      TEXT[] NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL DEFAULT '',
	user_photo TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL DEFAULT '',
	image_url  TEXT NOT NULL DEFAULT '',
	location   TEXT NOT NULL DEFAULT '',
	heart      INTEGER NOT NULL DEFAULT 0,
	fire       INTEGER NOT NULL DEFAULT 0,
	laugh      INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at DESC);
CREATE INDEX IF NOT EXISTS posts_user_id_idx ON posts (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS posts_expires_at_idx ON posts (expires_at);
`

const (
	userColumns = `id, uid, display_name, email, photo_url, friends, created_at, updated_at`
	postColumns = `id, user_id, user_name, user_photo, text, image_url, location, heart, fire, laugh, created_at, expires_at`
)

// reactionColumns whitelists the counter columns an increment may touch.
var reactionColumns = map[domain.ReactionKind]string{
	domain.ReactionHeart: "heart",
	domain.ReactionFire:  "fire",
	domain.ReactionLaugh: "laugh",
}

// sqlUser is the row shape of the users table.
type sqlUser struct {
	ID          string
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
	Friends     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EnsurePostgresSchema creates the tables and indexes if missing.
func EnsurePostgresSchema(ctx context.Context, pool DBTX) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("db: schema: %w", err)
	}
	return nil
}

// --- USERS ---

type PostgresUserRepo struct {
	db DBTX
}

func NewPostgresUserRepo(pool DBTX) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("db: list users: %w", err)
	}
	return collectUsers(rows)
}

func (r *PostgresUserRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("db: get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("db: get users by ids: %w", err)
	}
	return collectUsers(rows)
}

func (r *PostgresUserRepo) Save(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Friends == nil {
		user.Friends = []string{}
	}

	q := `
		INSERT INTO users (id, uid, display_name, email, photo_url, friends, created_at, updated_at)
		VALUES (@id, @uid, @display_name, @email, @photo_url, @friends, @created_at, @updated_at)
	`
	args := pgx.NamedArgs{
		"id":           user.ID,
		"uid":          user.UID,
		"display_name": user.DisplayName,
		"email":        user.Email,
		"photo_url":    user.PhotoURL,
		"friends":      user.Friends,
		"created_at":   user.CreatedAt,
		"updated_at":   user.UpdatedAt,
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return handlePgError(err)
	}
	return nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, user *domain.User) error {
	q := `
		UPDATE users
		SET display_name = @display_name, email = @email, photo_url = @photo_url, updated_at = @updated_at
		WHERE id = @id
	`
	args := pgx.NamedArgs{
		"id":           user.ID,
		"display_name": user.DisplayName,
		"email":        user.Email,
		"photo_url":    user.PhotoURL,
		"updated_at":   user.UpdatedAt,
	}
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return handlePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddFriend appends in a single statement so the list keeps insertion order
// and never holds duplicates.
func (r *PostgresUserRepo) AddFriend(ctx context.Context, userID, friendID string) (*domain.User, error) {
	q := `
		UPDATE users
		SET friends = CASE WHEN @friend = ANY(friends) THEN friends ELSE array_append(friends, @friend) END
		WHERE id = @id
		RETURNING ` + userColumns
	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": userID, "friend": friendID})
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("db: add friend: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("db: delete users: %w", err)
	}
	return nil
}

// --- POSTS ---

type PostgresPostRepo struct {
	db DBTX
}

func NewPostgresPostRepo(pool DBTX) *PostgresPostRepo {
	return &PostgresPostRepo{db: pool}
}

func (r *PostgresPostRepo) Save(ctx context.Context, post *domain.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}

	q := `
		INSERT INTO posts (` + postColumns + `)
		VALUES (@id, @user_id, @user_name, @user_photo, @text, @image_url, @location,
		        @heart, @fire, @laugh, @created_at, @expires_at)
	`
	args := pgx.NamedArgs{
		"id":         post.ID,
		"user_id":    post.UserID,
		"user_name":  post.UserName,
		"user_photo": post.UserPhoto,
		"text":       post.Text,
		"image_url":  post.ImageURL,
		"location":   post.Location,
		"heart":      post.Reactions.Heart,
		"fire":       post.Reactions.Fire,
		"laugh":      post.Reactions.Laugh,
		"created_at": post.CreatedAt,
		"expires_at": post.ExpiresAt,
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return handlePgError(err)
	}
	return nil
}

func (r *PostgresPostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	row := r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("db: find post: %w", err)
	}
	return p, nil
}

func (r *PostgresPostRepo) ListSince(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Post, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.Query(ctx, `
			SELECT `+postColumns+` FROM posts
			WHERE created_at >= $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, cutoff, limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+postColumns+` FROM posts
			WHERE created_at >= $1
			ORDER BY created_at DESC, id DESC`, cutoff)
	}
	if err != nil {
		return nil, fmt.Errorf("db: list posts: %w", err)
	}
	return collectPosts(rows)
}

func (r *PostgresPostRepo) ListByAuthor(ctx context.Context, userID string) ([]*domain.Post, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db: list posts by author: %w", err)
	}
	return collectPosts(rows)
}

func (r *PostgresPostRepo) IncrementReaction(ctx context.Context, postID string, kind domain.ReactionKind) (*domain.Post, error) {
	col, ok := reactionColumns[kind]
	if !ok {
		return nil, fmt.Errorf("db: unknown reaction %q", kind)
	}

	q := fmt.Sprintf(`UPDATE posts SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[2]s`, col, postColumns)
	p, err := scanPost(r.db.QueryRow(ctx, q, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("db: increment reaction: %w", err)
	}
	return p, nil
}

func (r *PostgresPostRepo) Delete(ctx context.Context, postID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID); err != nil {
		return fmt.Errorf("db: delete post: %w", err)
	}
	return nil
}

func (r *PostgresPostRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresPostRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db: count posts: %w", err)
	}
	return n, nil
}

func (r *PostgresPostRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("db: delete posts: %w", err)
	}
	return nil
}

// --- HELPERS ---

func scanUser(row pgx.Row) (*domain.User, error) {
	var u sqlUser
	if err := row.Scan(&u.ID, &u.UID, &u.DisplayName, &u.Email, &u.PhotoURL, &u.Friends, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u.toDomain(), nil
}

func collectUsers(rows pgx.Rows) ([]*domain.User, error) {
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID, &p.UserID, &p.UserName, &p.UserPhoto, &p.Text, &p.ImageURL, &p.Location,
		&p.Reactions.Heart, &p.Reactions.Fire, &p.Reactions.Laugh,
		&p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]*domain.Post, error) {
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("db: scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (u *sqlUser) toDomain() *domain.User {
	friends := u.Friends
	if friends == nil {
		friends = []string{}
	}
	return &domain.User{
		ID:          u.ID,
		UID:         u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		Friends:     friends,
		CreatedAt:   u.CreatedAt.UTC(),
		UpdatedAt:   u.UpdatedAt.UTC(),
	}
}

// handlePgError maps Postgres error codes onto domain errors.
func handlePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "users_uid_key" {
		// unique_violation on users.uid: a concurrent upsert won the insert
		return fmt.Errorf("db: duplicate key %s: %w", pgErr.ConstraintName, domain.ErrUserExists)
	}
	return fmt.Errorf("db: %w", err)
}
