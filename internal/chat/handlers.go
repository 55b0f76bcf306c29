package chat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/obs"
)

// Handler relays chat requests to the primary provider and falls back to
// canned answers when the model is unconfigured or failing.
type Handler struct {
	Primary  Provider
	Fallback Provider
	Logger   zerolog.Logger
}

type chatRequest struct {
	Message string    `json:"message"`
	History []Message `json:"history"`
}

// Respond handles POST /api/v1/chat.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "message is required", nil)
		return
	}
	messages := append(req.History, Message{Role: "user", Content: req.Message})

	backend := "model"
	var reply string
	useFallback := h.Primary == nil
	if !useFallback {
		var err error
		reply, err = h.Primary.Reply(r.Context(), messages)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("chat_model_unavailable")
			useFallback = true
		}
	}
	if useFallback {
		backend = "fallback"
		var err error
		reply, err = h.Fallback.Reply(r.Context(), messages)
		if err != nil {
			countChat(backend, "error")
			common.JSONError(w, http.StatusServiceUnavailable, "CHAT_UNAVAILABLE", "assistant is unavailable", nil)
			return
		}
	}

	countChat(backend, "ok")
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"reply":   reply,
			"backend": backend,
		},
	})
}

func countChat(backend, result string) {
	if obs.ChatRequestsTotal != nil {
		obs.ChatRequestsTotal.WithLabelValues(backend, result).Inc()
	}
}
