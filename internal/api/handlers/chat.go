package handlers

import (
	"club-backend/internal/app"
	"club-backend/internal/auth"
	"club-backend/internal/logger"
	"club-backend/internal/repository/db"
	chatService "club-backend/internal/service/chat"
	conversationService "club-backend/internal/service/conversation"
	"club-backend/internal/service/llm"
	"club-backend/pkg/validation"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// MaxRequestBodyBytes bounds JSON request bodies. A maximum-length message
// with every character escaped still fits.
const MaxRequestBodyBytes = 64 << 10

// Request/Response types

type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content"`
}

type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

type MessageData struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	IsUser         bool   `json:"is_user"`
	Timestamp      string `json:"timestamp"`
}

type ConversationInfo struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	UserID    *string `json:"user_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ConversationData struct {
	ConversationInfo
	Messages []MessageData `json:"messages"`
}

type ChatResponse struct {
	Message      MessageData      `json:"message"`
	Conversation ConversationData `json:"conversation"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ChatHandlers uses the service layer for better separation of concerns
type ChatHandlers struct {
	config              *app.Config
	validator           *validation.ChatRequestValidator
	chatService         *chatService.ChatService
	conversationService *conversationService.ConversationService
}

// NewChatHandlers creates a new ChatHandlers with service layer. completer may be nil.
func NewChatHandlers(config *app.Config, completer llm.CompletionClient) *ChatHandlers {
	return &ChatHandlers{
		config:              config,
		validator:           validation.NewChatRequestValidator(),
		chatService:         chatService.NewChatService(config.DB, config, completer),
		conversationService: conversationService.NewConversationService(config.DB),
	}
}

// ChatHandler runs one chat turn
func (ch *ChatHandlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if status, err := decodeBody(w, r, &req); err != nil {
		ch.sendError(w, status, "Invalid request body", err)
		return
	}

	resp, status, err := ch.chat(r, req)
	if err != nil {
		ch.sendError(w, status, "Error processing message", err)
		return
	}

	ch.sendJSON(w, http.StatusOK, resp)
}

// chat validates and runs a chat turn, returning the HTTP status to report on error
func (ch *ChatHandlers) chat(r *http.Request, req ChatRequest) (*ChatResponse, int, error) {
	if err := ch.validator.ValidateChatRequest(req.Content, req.ConversationID); err != nil {
		return nil, http.StatusBadRequest, err
	}

	owner := auth.UserFromContext(r.Context())
	logger.Log.WithFields(logrus.Fields{
		"conversation_id": req.ConversationID,
		"authenticated":   owner != nil,
		"content_chars":   len(req.Content),
	}).Info("Chat request received")

	result, err := ch.chatService.SendMessage(r.Context(), chatService.SendMessageRequest{
		Content:        req.Content,
		ConversationID: req.ConversationID,
		UserID:         owner,
	})
	if err != nil {
		return nil, statusFor(err), err
	}

	return &ChatResponse{
		Message:      toMessageData(result.Message),
		Conversation: toConversationData(result.Conversation),
	}, http.StatusOK, nil
}

// GetConversationsHandler lists all conversations, most recently updated first
func (ch *ChatHandlers) GetConversationsHandler(w http.ResponseWriter, r *http.Request) {
	conversations, err := ch.conversationService.ListConversations(r.Context())
	if err != nil {
		ch.sendError(w, statusFor(err), "Error retrieving conversations", err)
		return
	}

	infos := make([]ConversationInfo, 0, len(conversations))
	for _, conv := range conversations {
		infos = append(infos, toConversationInfo(conv))
	}

	logger.Log.WithField("count", len(infos)).Debug("Returning conversations")
	ch.sendJSON(w, http.StatusOK, infos)
}

// CreateConversationHandler creates an empty conversation
func (ch *ChatHandlers) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if r.ContentLength != 0 {
		if status, err := decodeBody(w, r, &req); err != nil {
			ch.sendError(w, status, "Invalid request body", err)
			return
		}
	}

	if err := ch.validator.ValidateTitle(req.Title); err != nil {
		ch.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	conv, err := ch.conversationService.CreateConversation(r.Context(), auth.UserFromContext(r.Context()), req.Title)
	if err != nil {
		ch.sendError(w, statusFor(err), "Error creating conversation", err)
		return
	}

	ch.sendJSON(w, http.StatusCreated, ConversationData{
		ConversationInfo: toConversationInfo(*conv),
		Messages:         []MessageData{},
	})
}

// GetConversationHandler returns a conversation with all its messages
func (ch *ChatHandlers) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ch.conversationService.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ch.sendError(w, statusFor(err), "Error retrieving conversation", err)
		return
	}

	ch.sendJSON(w, http.StatusOK, toConversationData(snapshot))
}

// GetConversationMessagesHandler returns the messages of a conversation, oldest first
func (ch *ChatHandlers) GetConversationMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := ch.conversationService.ListMessages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ch.sendError(w, statusFor(err), "Error retrieving messages", err)
		return
	}

	ch.sendJSON(w, http.StatusOK, toMessageDataList(messages))
}

// DeleteConversationHandler deletes a conversation and its messages
func (ch *ChatHandlers) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	if err := ch.conversationService.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		ch.sendError(w, statusFor(err), "Error deleting conversation", err)
		return
	}

	ch.sendJSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		Message: "Conversation deleted successfully",
	})
}

// ClubHandler returns the static club profile the assistant answers from
func (ch *ChatHandlers) ClubHandler(w http.ResponseWriter, r *http.Request) {
	ch.sendJSON(w, http.StatusOK, ch.config.Club())
}

// HealthHandler reports liveness
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// decodeBody reads a JSON request body of at most MaxRequestBodyBytes
func decodeBody(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (ch *ChatHandlers) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.WithError(err).Error("Error encoding response")
	}
}

// sendError sends a standardized JSON error response
func (ch *ChatHandlers) sendError(w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("status", status).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(newErrorResponse(status, message, err))
}

func newErrorResponse(status int, message string, err error) ErrorResponse {
	errResp := ErrorResponse{
		Code:    status,
		Message: message,
	}
	switch {
	case err == nil:
	case status >= http.StatusInternalServerError:
		// store details stay in the logs
		errResp.Error = http.StatusText(status)
	default:
		errResp.Error = err.Error()
	}
	return errResp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toMessageData(msg db.Message) MessageData {
	return MessageData{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		IsUser:         msg.IsUser,
		Timestamp:      formatTime(msg.Timestamp),
	}
}

func toMessageDataList(messages []db.Message) []MessageData {
	data := make([]MessageData, 0, len(messages))
	for _, msg := range messages {
		data = append(data, toMessageData(msg))
	}
	return data
}

func toConversationInfo(conv db.Conversation) ConversationInfo {
	return ConversationInfo{
		ID:        conv.ID,
		Title:     conv.Title,
		UserID:    conv.UserID,
		CreatedAt: formatTime(conv.CreatedAt),
		UpdatedAt: formatTime(conv.UpdatedAt),
	}
}

func toConversationData(snapshot *conversationService.Snapshot) ConversationData {
	return ConversationData{
		ConversationInfo: toConversationInfo(snapshot.Conversation),
		Messages:         toMessageDataList(snapshot.Messages),
	}
}
