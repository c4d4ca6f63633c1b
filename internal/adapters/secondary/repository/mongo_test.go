package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
)

func toBSON(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func samplePostDoc() mongoPost {
	return mongoPost{
		ID:        primitive.NewObjectID(),
		UserID:    primitive.NewObjectID(),
		UserName:  "Alice",
		Text:      "hello",
		Reactions: mongoReactions{Fire: 3},
		CreatedAt: t0,
		ExpiresAt: t0.Add(domain.PostLifetime),
	}
}

func TestMongoPostRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	ns := "nowshare.posts"

	mt.Run("save assigns an object id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoPostRepo(mt.DB)

		p := newPost(primitive.NewObjectID().Hex(), t0)
		require.NoError(mt, repo.Save(context.Background(), p))
		_, err := primitive.ObjectIDFromHex(p.ID)
		assert.NoError(mt, err)
	})

	mt.Run("save rejects a non object id author", func(mt *mtest.T) {
		repo := NewMongoPostRepo(mt.DB)
		err := repo.Save(context.Background(), newPost("not-hex", t0))
		assert.Error(mt, err)
	})

	mt.Run("find by id decodes the document", func(mt *mtest.T) {
		doc := samplePostDoc()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toBSON(mt.T, doc)))
		repo := NewMongoPostRepo(mt.DB)

		got, err := repo.FindByID(context.Background(), doc.ID.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, doc.ID.Hex(), got.ID)
		assert.Equal(mt, doc.UserID.Hex(), got.UserID)
		assert.Equal(mt, 3, got.Reactions.Fire)
		assert.True(mt, got.ExpiresAt.Equal(t0.Add(24*time.Hour)))
	})

	mt.Run("find by id maps no documents to not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewMongoPostRepo(mt.DB)

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, domain.ErrPostNotFound)
	})

	mt.Run("malformed ids are not found without a round trip", func(mt *mtest.T) {
		repo := NewMongoPostRepo(mt.DB)

		_, err := repo.FindByID(context.Background(), "xyz")
		assert.ErrorIs(mt, err, domain.ErrPostNotFound)
		_, err = repo.IncrementReaction(context.Background(), "xyz", domain.ReactionHeart)
		assert.ErrorIs(mt, err, domain.ErrPostNotFound)
		assert.NoError(mt, repo.Delete(context.Background(), "xyz"))
	})

	mt.Run("increment reaction returns the updated post", func(mt *mtest.T) {
		doc := samplePostDoc()
		doc.Reactions.Fire = 4
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toBSON(mt.T, doc)}))
		repo := NewMongoPostRepo(mt.DB)

		got, err := repo.IncrementReaction(context.Background(), doc.ID.Hex(), domain.ReactionFire)
		require.NoError(mt, err)
		assert.Equal(mt, 4, got.Reactions.Fire)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		var inc int
		require.NoError(mt, evt.Command.Lookup("update", "$inc", "reactions.fire").Unmarshal(&inc))
		assert.Equal(mt, 1, inc)
	})

	mt.Run("list since keeps server order", func(mt *mtest.T) {
		newer, older := samplePostDoc(), samplePostDoc()
		newer.CreatedAt = t0.Add(time.Hour)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toBSON(mt.T, newer), toBSON(mt.T, older)))
		repo := NewMongoPostRepo(mt.DB)

		posts, err := repo.ListSince(context.Background(), t0.Add(-time.Hour), domain.TimelineLimit)
		require.NoError(mt, err)
		require.Len(mt, posts, 2)
		assert.Equal(mt, newer.ID.Hex(), posts[0].ID)
	})

	mt.Run("delete expired reports the count", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(2)}))
		repo := NewMongoPostRepo(mt.DB)

		n, err := repo.DeleteExpired(context.Background(), t0)
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)
	})
}

func TestMongoUserRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	ns := "nowshare.users"

	mt.Run("get by uid converts friend ids", func(mt *mtest.T) {
		friend := primitive.NewObjectID()
		doc := mongoUser{
			ID:          primitive.NewObjectID(),
			UID:         "u1",
			DisplayName: "Alice",
			Email:       "a@x",
			Friends:     []primitive.ObjectID{friend},
			CreatedAt:   t0,
			UpdatedAt:   t0,
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toBSON(mt.T, doc)))
		repo := NewMongoUserRepo(mt.DB)

		got, err := repo.GetByUID(context.Background(), "u1")
		require.NoError(mt, err)
		assert.Equal(mt, doc.ID.Hex(), got.ID)
		assert.Equal(mt, []string{friend.Hex()}, got.Friends)
		assert.Equal(mt, "a@x", got.Email)
	})

	mt.Run("get by uid maps no documents to not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewMongoUserRepo(mt.DB)

		_, err := repo.GetByUID(context.Background(), "u-missing")
		assert.ErrorIs(mt, err, domain.ErrUserNotFound)
	})

	mt.Run("save of a taken uid", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: nowshare.users index: uid_1",
		}))
		repo := NewMongoUserRepo(mt.DB)

		u, err := domain.NewUser(domain.Profile{UID: "u1"}, t0)
		require.NoError(mt, err)
		assert.ErrorIs(mt, repo.Save(context.Background(), u), domain.ErrUserExists)
	})

	mt.Run("update of a missing user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}))
		repo := NewMongoUserRepo(mt.DB)

		err := repo.Update(context.Background(), &domain.User{ID: primitive.NewObjectID().Hex()})
		assert.ErrorIs(mt, err, domain.ErrUserNotFound)
	})

	mt.Run("get by ids skips malformed ids", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)

		users, err := repo.GetByIDs(context.Background(), []string{"bad", ""})
		require.NoError(mt, err)
		assert.Empty(mt, users)
	})

	mt.Run("add friend returns the stored user", func(mt *mtest.T) {
		friend := primitive.NewObjectID()
		doc := mongoUser{ID: primitive.NewObjectID(), UID: "u1", Friends: []primitive.ObjectID{friend}, CreatedAt: t0, UpdatedAt: t0}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toBSON(mt.T, doc)}))
		repo := NewMongoUserRepo(mt.DB)

		got, err := repo.AddFriend(context.Background(), doc.ID.Hex(), friend.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, []string{friend.Hex()}, got.Friends)
	})
}
