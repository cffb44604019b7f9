package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"duochat/internal/core/domain"
	"duochat/internal/core/services"
	"duochat/pkg/httputil"
)

type ChatHandler struct {
	log   *slog.Logger
	chats *services.ChatService
}

func NewChatHandler(log *slog.Logger, c *services.ChatService) *ChatHandler {
	return &ChatHandler{log: log, chats: c}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	chats, err := h.chats.ListChats(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nonNil(chats))
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	chat, err := h.chats.GetChat(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, chat)
}

type chatSummary struct {
	ID              string    `json:"id"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
}

type sendMessageResponse struct {
	Message *domain.Message `json:"message"`
	Chat    chatSummary     `json:"chat"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req struct {
		Content string             `json:"content"`
		Type    domain.MessageType `json:"type"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	msg, chat, err := h.chats.SendMessage(r.Context(), caller, chi.URLParam(r, "id"), req.Content, req.Type)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sendMessageResponse{
		Message: msg,
		Chat: chatSummary{
			ID:              chat.ID,
			LastMessage:     chat.LastMessage,
			LastMessageTime: chat.LastMessageTime,
		},
	})
}

func (h *ChatHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req struct {
		Status domain.MessageStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	msg, err := h.chats.UpdateStatus(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "messageId"), req.Status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}
