package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jupiterclapton/nowshare/internal/core/domain"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

type Handler struct {
	users ports.UserService
	posts ports.PostService
}

func NewHandler(users ports.UserService, posts ports.PostService) *Handler {
	return &Handler{users: users, posts: posts}
}

// --- USERS ---

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUsers(users))
}

func (h *Handler) upsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, created, err := h.users.UpsertUser(r.Context(), domain.Profile{
		UID:         req.UID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created {
		writeJSON(w, http.StatusCreated, userEnvelope{Message: "User created", User: mapUser(user)})
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: "User updated", User: mapUser(user)})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

func (h *Handler) addFriend(w http.ResponseWriter, r *http.Request) {
	var req addFriendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.AddFriend(r.Context(), chi.URLParam(r, "uid"), req.FriendUID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: "Friend added", User: mapUser(user)})
}

func (h *Handler) listFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.users.ListFriends(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUsers(friends))
}

// --- POSTS ---

func (h *Handler) listTimeline(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListTimeline(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPosts(posts))
}

func (h *Handler) listUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListUserPosts(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPosts(posts))
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.posts.CreatePost(r.Context(), domain.Draft{
		UID:      req.UID,
		Text:     req.Text,
		ImageURL: req.ImageURL,
		Location: req.Location,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, postEnvelope{Message: "Post created", Post: mapPost(post)})
}

func (h *Handler) addReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.posts.AddReaction(r.Context(), chi.URLParam(r, "id"), req.ReactionType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postEnvelope{Message: "Reaction added", Post: mapPost(post)})
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Post deleted"})
}

func (h *Handler) cleanupExpired(w http.ResponseWriter, r *http.Request) {
	n, err := h.posts.CleanupExpired(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cleanupResponse{Message: "Expired posts cleaned up", DeletedCount: n})
}
