package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/duochat/duochat-server/internal/logger"
	"github.com/duochat/duochat-server/internal/service"
)

// ConversationService defines chat operations over expanded conversations.
type ConversationService interface {
	FindOrCreate(ctx context.Context, participantIDs []string) (service.ConversationResult, bool, error)
	Append(ctx context.Context, conversationID, senderID, text string) (service.ConversationResult, error)
	ListForUser(ctx context.Context, userID string) ([]service.ConversationResult, error)
	Get(ctx context.Context, conversationID string) (service.ConversationResult, error)
}

// Conversation handles HTTP endpoints for chats and messages.
type Conversation struct {
	conversationService ConversationService
	logger              *logger.Logger
}

// NewConversation creates a new Conversation handler.
func NewConversation(conversationService ConversationService, logger *logger.Logger) *Conversation {
	return &Conversation{
		conversationService: conversationService,
		logger:              logger,
	}
}

// CreateChat resolves the single chat for a participant pair, creating it
// if absent. A fresh chat answers 201, an existing one 200.
func (h *Conversation) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Participants []string `json:"participants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, created, err := h.conversationService.FindOrCreate(r.Context(), req.Participants)
	if err != nil {
		h.logger.Info("Conversation handler: create chat failed",
			"participants", req.Participants,
			"error", err.Error())
		handleError(w, err)
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Chat already exists.",
			"chat":    toChatJSON(res),
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Chat created successfully.",
		"chat":    toChatJSON(res),
	})
}

// GetChatsForUser lists every chat the user takes part in. A user with no
// chats gets an empty list.
func (h *Conversation) GetChatsForUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	results, err := h.conversationService.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Info("Conversation handler: list chats failed",
			"user_id", userID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Chats retrieved successfully.",
		"chats":   toChatsJSON(results),
	})
}

// SendMessage appends a message to an existing chat and returns the
// updated chat.
func (h *Conversation) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID string `json:"chatId"`
		Sender string `json:"sender"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.conversationService.Append(r.Context(), req.ChatID, req.Sender, req.Text)
	if err != nil {
		h.logger.Info("Conversation handler: send message failed",
			"chat_id", req.ChatID,
			"sender", req.Sender,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Message sent successfully.",
		"chat":    toChatJSON(res),
	})
}

// GetChat returns one chat with its full message log.
func (h *Conversation) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chatId")

	res, err := h.conversationService.Get(r.Context(), chatID)
	if err != nil {
		h.logger.Info("Conversation handler: get chat failed",
			"chat_id", chatID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Chat retrieved successfully.",
		"chat":    toChatJSON(res),
	})
}
