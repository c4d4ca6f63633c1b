package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

var (
	_ ports.UserRepository = (*MongoUserRepo)(nil)
	_ ports.PostRepository = (*MongoPostRepo)(nil)
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

// mongoUser is the stored shape of a user. Friends hold ObjectIDs of other
// user documents.
type mongoUser struct {
	ID          primitive.ObjectID   `bson:"_id"`
	UID         string               `bson:"uid"`
	DisplayName string               `bson:"displayName"`
	Email       string               `bson:"email,omitempty"`
	PhotoURL    string               `bson:"photoURL"`
	Friends     []primitive.ObjectID `bson:"friends"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type mongoReactions struct {
	Heart int `bson:"heart"`
	Fire  int `bson:"fire"`
	Laugh int `bson:"laugh"`
}

type mongoPost struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    primitive.ObjectID `bson:"userId"`
	UserName  string             `bson:"userName"`
	UserPhoto string             `bson:"userPhoto"`
	Text      string             `bson:"text"`
	ImageURL  string             `bson:"imageURL"`
	Location  string             `bson:"location"`
	Reactions mongoReactions     `bson:"reactions"`
	CreatedAt time.Time          `bson:"createdAt"`
	ExpiresAt time.Time          `bson:"expiresAt"`
}

// EnsureMongoIndexes creates the indexes both collections rely on. The TTL
// index on posts.expiresAt lets the server purge expired posts on its own
// schedule, some time after ExpiresAt. Safe to call on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo: users indexes: %w", err)
	}

	_, err = db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: posts indexes: %w", err)
	}
	return nil
}

// --- USERS ---

type MongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(usersCollection)}
}

func (r *MongoUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list users: %w", err)
	}
	return decodeUsers(ctx, cur)
}

func (r *MongoUserRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	var u mongoUser
	err := r.coll.FindOne(ctx, bson.M{"uid": uid}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("mongo: get user: %w", err)
	}
	return u.toDomain(), nil
}

func (r *MongoUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*domain.User{}, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("mongo: get users by ids: %w", err)
	}
	return decodeUsers(ctx, cur)
}

func (r *MongoUserRepo) Save(ctx context.Context, user *domain.User) error {
	doc := mongoUser{
		ID:          primitive.NewObjectID(),
		UID:         user.UID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
		Friends:     []primitive.ObjectID{},
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo: insert user %q: %w", user.UID, domain.ErrUserExists)
		}
		return fmt.Errorf("mongo: insert user: %w", err)
	}
	user.ID = doc.ID.Hex()
	if user.Friends == nil {
		user.Friends = []string{}
	}
	return nil
}

func (r *MongoUserRepo) Update(ctx context.Context, user *domain.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	set := bson.M{
		"displayName": user.DisplayName,
		"photoURL":    user.PhotoURL,
		"updatedAt":   user.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if user.Email == "" {
		update["$unset"] = bson.M{"email": ""}
	} else {
		set["email"] = user.Email
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("mongo: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddFriend uses $addToSet, so concurrent calls with the same friend leave a
// single entry.
func (r *MongoUserRepo) AddFriend(ctx context.Context, userID, friendID string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	fid, err := primitive.ObjectIDFromHex(friendID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	var u mongoUser
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"friends": fid}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("mongo: add friend: %w", err)
	}
	return u.toDomain(), nil
}

func (r *MongoUserRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("mongo: delete users: %w", err)
	}
	return nil
}

// --- POSTS ---

type MongoPostRepo struct {
	coll *mongo.Collection
}

func NewMongoPostRepo(db *mongo.Database) *MongoPostRepo {
	return &MongoPostRepo{coll: db.Collection(postsCollection)}
}

func (r *MongoPostRepo) Save(ctx context.Context, post *domain.Post) error {
	author, err := primitive.ObjectIDFromHex(post.UserID)
	if err != nil {
		return fmt.Errorf("mongo: invalid author id %q: %w", post.UserID, err)
	}

	doc := mongoPost{
		ID:        primitive.NewObjectID(),
		UserID:    author,
		UserName:  post.UserName,
		UserPhoto: post.UserPhoto,
		Text:      post.Text,
		ImageURL:  post.ImageURL,
		Location:  post.Location,
		Reactions: mongoReactions(post.Reactions),
		CreatedAt: post.CreatedAt,
		ExpiresAt: post.ExpiresAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: insert post: %w", err)
	}
	post.ID = doc.ID.Hex()
	return nil
}

func (r *MongoPostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, domain.ErrPostNotFound
	}

	var p mongoPost
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("mongo: find post: %w", err)
	}
	return p.toDomain(), nil
}

func (r *MongoPostRepo) ListSince(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"createdAt": bson.M{"$gte": cutoff}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list posts: %w", err)
	}
	return decodePosts(ctx, cur)
}

func (r *MongoPostRepo) ListByAuthor(ctx context.Context, userID string) ([]*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []*domain.Post{}, nil
	}
	cur, err := r.coll.Find(ctx,
		bson.M{"userId": oid},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list posts by author: %w", err)
	}
	return decodePosts(ctx, cur)
}

// IncrementReaction applies $inc server side and returns the updated document.
func (r *MongoPostRepo) IncrementReaction(ctx context.Context, postID string, kind domain.ReactionKind) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, domain.ErrPostNotFound
	}

	var p mongoPost
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"reactions." + string(kind): 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("mongo: increment reaction: %w", err)
	}
	return p.toDomain(), nil
}

func (r *MongoPostRepo) Delete(ctx context.Context, postID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil
	}
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("mongo: delete post: %w", err)
	}
	return nil
}

func (r *MongoPostRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("mongo: delete expired: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoPostRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongo: count posts: %w", err)
	}
	return n, nil
}

func (r *MongoPostRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("mongo: delete posts: %w", err)
	}
	return nil
}

// --- HELPERS ---

func (u *mongoUser) toDomain() *domain.User {
	friends := make([]string, len(u.Friends))
	for i, f := range u.Friends {
		friends[i] = f.Hex()
	}
	return &domain.User{
		ID:          u.ID.Hex(),
		UID:         u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		Friends:     friends,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (p *mongoPost) toDomain() *domain.Post {
	return &domain.Post{
		ID:        p.ID.Hex(),
		UserID:    p.UserID.Hex(),
		UserName:  p.UserName,
		UserPhoto: p.UserPhoto,
		Text:      p.Text,
		ImageURL:  p.ImageURL,
		Location:  p.Location,
		Reactions: domain.Reactions(p.Reactions),
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
}

func decodeUsers(ctx context.Context, cur *mongo.Cursor) ([]*domain.User, error) {
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode users: %w", err)
	}
	users := make([]*domain.User, len(docs))
	for i := range docs {
		users[i] = docs[i].toDomain()
	}
	return users, nil
}

func decodePosts(ctx context.Context, cur *mongo.Cursor) ([]*domain.Post, error) {
	var docs []mongoPost
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode posts: %w", err)
	}
	posts := make([]*domain.Post, len(docs))
	for i := range docs {
		posts[i] = docs[i].toDomain()
	}
	return posts, nil
}
