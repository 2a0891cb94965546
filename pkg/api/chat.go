package api

import (
	"net/http"

	"github.com/neveleren/thewire/pkg/orchestrator"
	"github.com/neveleren/thewire/pkg/store"
)

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	views, err := s.chat.List(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": views,
	})
}

type createMessageRequest struct {
	Username  string  `json:"username"`
	Content   string  `json:"content"`
	MediaURL  *string `json:"media_url"`
	MediaType *string `json:"media_type"`
	ReplyToID *string `json:"reply_to_message_id"`
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
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

	var replyTo *store.ChatEntry
	if req.ReplyToID != nil && *req.ReplyToID != "" {
		replyTo, err = s.chat.Entry(r.Context(), *req.ReplyToID)
		if err != nil {
			storeError(w, err, "replied-to message not found")
			return
		}
	}

	msg, err := s.chat.Create(r.Context(), user.ID, content, req.MediaURL, req.MediaType, req.ReplyToID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create message")
		return
	}

	s.orch.HandleChatMessage(r.Context(), orchestrator.ChatEvent{
		MessageID:         msg.ID,
		Author:            username,
		AuthorDisplayName: user.DisplayName,
		Content:           content,
		ReplyTo:           replyTo,
	})

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}
