package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rswarnkar/converse/internal/services"
)

type ChatHandler struct {
	chats    *services.ChatService
	validate *validator.Validate
}

func NewChatHandler(chats *services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats, validate: validator.New()}
}

func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.createChat)
	r.Post("/group", h.createGroupChat)
	r.Get("/", h.listChats)
	r.Get("/archived", h.listArchivedChats)
	r.Get("/{chatID}/messages", h.listMessages)
	r.Post("/{chatID}/archive", h.archiveChat)
	r.Post("/messages/{messageID}/reactions", h.addReaction)
	r.Delete("/messages/{messageID}/reactions", h.removeReaction)
	return r
}

type createChatRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

func (h *ChatHandler) createChat(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := h.chats.CreateChat(r.Context(), claims.UserID, req.UserID)
	if errors.Is(err, services.ErrSelfChat) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

type createGroupChatRequest struct {
	Name    string      `json:"name" validate:"required"`
	UserIDs []uuid.UUID `json:"userIds" validate:"required,min=2"`
}

func (h *ChatHandler) createGroupChat(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createGroupChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := h.chats.CreateGroupChat(r.Context(), append(req.UserIDs, claims.UserID), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create group chat")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) listChats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	chats, err := h.chats.GetUserChats(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) listArchivedChats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	chats, err := h.chats.GetArchivedChats(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list archived chats")
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	messages, err := h.chats.GetMessages(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) archiveChat(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	chat, err := h.chats.ArchiveChat(r.Context(), chatID)
	if errors.Is(err, services.ErrChatNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to archive chat")
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (h *ChatHandler) addReaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reaction, err := h.chats.AddReaction(r.Context(), messageID, claims.UserID, req.Emoji)
	if errors.Is(err, services.ErrMessageNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, services.ErrEmptyEmoji) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add reaction")
		return
	}
	writeJSON(w, http.StatusOK, reaction)
}

func (h *ChatHandler) removeReaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chats.RemoveReaction(r.Context(), messageID, claims.UserID, req.Emoji); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove reaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
