package rest

import (
	"time"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

// Wire shapes. Field names follow the mobile client contract, hence "_id".

type userDTO struct {
	ID          string    `json:"_id"`
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	PhotoURL    string    `json:"photoURL"`
	Friends     []string  `json:"friends"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type reactionsDTO struct {
	Heart int `json:"heart"`
	Fire  int `json:"fire"`
	Laugh int `json:"laugh"`
}

type postDTO struct {
	ID        string       `json:"_id"`
	UserID    string       `json:"userId"`
	UserName  string       `json:"userName"`
	UserPhoto string       `json:"userPhoto"`
	Text      string       `json:"text"`
	ImageURL  string       `json:"imageURL"`
	Location  string       `json:"location"`
	Reactions reactionsDTO `json:"reactions"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// --- REQUESTS ---

type upsertUserRequest struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

type addFriendRequest struct {
	FriendUID string `json:"friendUid"`
}

type createPostRequest struct {
	UID      string `json:"uid"`
	Text     string `json:"text"`
	ImageURL string `json:"imageURL"`
	Location string `json:"location"`
}

type reactionRequest struct {
	ReactionType string `json:"reactionType"`
}

// --- RESPONSES ---

type userEnvelope struct {
	Message string   `json:"message"`
	User    *userDTO `json:"user"`
}

type postEnvelope struct {
	Message string   `json:"message"`
	Post    *postDTO `json:"post"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type cleanupResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

type infoResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Mode      string    `json:"mode"`
}

type seedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type debugPostDTO struct {
	ID        string       `json:"_id"`
	UserName  string       `json:"userName"`
	Text      string       `json:"text"`
	Reactions reactionsDTO `json:"reactions"`
}

type debugResponse struct {
	Users      []*userDTO     `json:"users"`
	PostsCount int64          `json:"postsCount"`
	Posts      []debugPostDTO `json:"posts"`
}

// --- MAPPERS ---

func mapUser(u *domain.User) *userDTO {
	friends := u.Friends
	if friends == nil {
		friends = []string{}
	}
	return &userDTO{
		ID:          u.ID,
		UID:         u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		Friends:     friends,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func mapUsers(users []*domain.User) []*userDTO {
	out := make([]*userDTO, len(users))
	for i, u := range users {
		out[i] = mapUser(u)
	}
	return out
}

func mapReactions(r domain.Reactions) reactionsDTO {
	return reactionsDTO{Heart: r.Heart, Fire: r.Fire, Laugh: r.Laugh}
}

func mapPost(p *domain.Post) *postDTO {
	return &postDTO{
		ID:        p.ID,
		UserID:    p.UserID,
		UserName:  p.UserName,
		UserPhoto: p.UserPhoto,
		Text:      p.Text,
		ImageURL:  p.ImageURL,
		Location:  p.Location,
		Reactions: mapReactions(p.Reactions),
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
}

func mapPosts(posts []*domain.Post) []*postDTO {
	out := make([]*postDTO, len(posts))
	for i, p := range posts {
		out[i] = mapPost(p)
	}
	return out
}

func mapSnapshot(s *ports.DebugSnapshot) debugResponse {
	posts := make([]debugPostDTO, len(s.Posts))
	for i, p := range s.Posts {
		posts[i] = debugPostDTO{
			ID:        p.ID,
			UserName:  p.UserName,
			Text:      p.Text,
			Reactions: mapReactions(p.Reactions),
		}
	}
	return debugResponse{
		Users:      mapUsers(s.Users),
		PostsCount: s.PostsCount,
		Posts:      posts,
	}
}
