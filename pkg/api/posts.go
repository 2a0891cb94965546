package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/neveleren/thewire/pkg/db/models"
	"github.com/neveleren/thewire/pkg/orchestrator"
)

const maxPostLength = 500

type createPostRequest struct {
	Username  string  `json:"username"`
	Content   string  `json:"content"`
	ReplyToID *string `json:"reply_to_id"`
	Depth     int     `json:"depth"`
}

// validateContent enforces the content rules before any side effects.
func validateContent(w http.ResponseWriter, content string) (string, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		httpError(w, http.StatusBadRequest, "content is required")
		return "", false
	}
	if utf8.RuneCountInString(content) > maxPostLength {
		httpError(w, http.StatusBadRequest, "content exceeds %d characters", maxPostLength)
		return "", false
	}
	return content, true
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	content, ok := validateContent(w, req.Content)
	if !ok {
		return
	}

	username := req.Username
	if username == "" {
		username = s.cfg.Creator
	}
	user, err := s.users.ByUsername(r.Context(), username)
	if err != nil {
		storeError(w, err, "unknown username")
		return
	}

	var parent *models.Post
	if req.ReplyToID != nil && *req.ReplyToID != "" {
		parent, err = s.posts.Get(r.Context(), *req.ReplyToID)
		if err != nil {
			storeError(w, err, "parent post not found")
			return
		}
	}

	post, err := s.posts.Create(r.Context(), user.ID, content, req.ReplyToID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	ev := orchestrator.PostEvent{
		PostID:  post.ID,
		Author:  username,
		Content: content,
		Depth:   req.Depth,
	}
	if parent != nil && parent.User != nil {
		ev.Parent = &orchestrator.ParentPost{
			ID:         parent.ID,
			Author:     parent.User.Username,
			Content:    parent.Content,
			IsTopLevel: parent.ReplyToID == nil,
		}
	}
	s.orch.HandlePost(r.Context(), ev)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"post":    post,
	})
}

// handleServicePost creates a post on behalf of the automation service.
// No orchestration runs here; the caller threads depth through the
// regular endpoint when it wants rule evaluation.
func (s *Server) handleServicePost(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeService(w, r) {
		return
	}

	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		httpError(w, http.StatusBadRequest, "username is required")
		return
	}
	content, ok := validateContent(w, req.Content)
	if !ok {
		return
	}

	user, err := s.users.ByUsername(r.Context(), req.Username)
	if err != nil {
		storeError(w, err, "unknown username")
		return
	}

	post, err := s.posts.Create(r.Context(), user.ID, content, req.ReplyToID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"post":    post,
	})
}

func (s *Server) authorizeService(w http.ResponseWriter, r *http.Request) bool {
	secret := s.cfg.ServiceSecret
	if secret == "" {
		httpError(w, http.StatusForbidden, "service endpoint disabled")
		return false
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		httpError(w, http.StatusForbidden, "invalid service credential")
		return false
	}
	return true
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	views, err := s.posts.ListTopLevel(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"posts":   views,
	})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	view, err := s.posts.Thread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err, "post not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"post":    view,
	})
}

type updatePostRequest struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	content, ok := validateContent(w, req.Content)
	if !ok {
		return
	}

	post, ok := s.requireOwner(w, r, chi.URLParam(r, "id"), req.Username)
	if !ok {
		return
	}

	updated, err := s.posts.UpdateContent(r.Context(), post.ID, content)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to update post")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"post":    updated,
	})
}

type deletePostRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	// Body is optional on delete; an absent body means the creator.
	var req deletePostRequest
	decodeOptionalBody(r, &req)

	post, ok := s.requireOwner(w, r, chi.URLParam(r, "id"), req.Username)
	if !ok {
		return
	}

	if err := s.posts.Delete(r.Context(), post.ID); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// requireOwner resolves the post and enforces that username owns it.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request, postID, username string) (*models.Post, bool) {
	if username == "" {
		username = s.cfg.Creator
	}
	post, err := s.posts.Get(r.Context(), postID)
	if err != nil {
		storeError(w, err, "post not found")
		return nil, false
	}
	if post.User == nil || post.User.Username != username {
		httpError(w, http.StatusForbidden, "not the post owner")
		return nil, false
	}
	return post, true
}

type likeRequest struct {
	PostID   string `json:"post_id"`
	Username string `json:"username"`
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PostID == "" {
		httpError(w, http.StatusBadRequest, "post_id is required")
		return
	}

	username := req.Username
	if username == "" {
		username = s.cfg.Creator
	}
	user, err := s.users.ByUsername(r.Context(), username)
	if err != nil {
		storeError(w, err, "unknown username")
		return
	}

	liked, err := s.posts.ToggleLike(r.Context(), user.ID, req.PostID)
	if err != nil {
		storeError(w, err, "post not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"liked":   liked,
	})
}
