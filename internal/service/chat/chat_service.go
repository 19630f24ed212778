package chat

import (
	"club-backend/internal/app"
	"club-backend/internal/logger"
	"club-backend/internal/repository/db"
	"club-backend/internal/service/clubcontext"
	"club-backend/internal/service/conversation"
	"club-backend/internal/service/fallback"
	"club-backend/internal/service/llm"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// Generation parameters and history window for every chat turn
const (
	HistoryLimit = 10
	MaxTokens    = 500
	Temperature  = 0.7
)

const instrumentationName = "club-backend/chat"

// SendMessageRequest contains all the parameters needed to send a message
type SendMessageRequest struct {
	Content        string
	ConversationID string  // empty starts a new conversation
	UserID         *string // owner for new conversations, extracted from auth context
}

// SendMessageResponse contains the assistant reply and the updated conversation
type SendMessageResponse struct {
	Message      db.Message
	Conversation *conversation.Snapshot
	// Fallback is true when the reply came from the canned responder
	Fallback bool
}

// ChatService handles the business logic for chat operations
type ChatService struct {
	db            db.Database
	config        *app.Config
	completer     llm.CompletionClient
	conversations *conversation.ConversationService
	prompt        *clubcontext.Builder
	fallback      *fallback.Responder
	now           func() time.Time

	tracer    trace.Tracer
	fallbacks metric.Int64Counter
}

// NewChatService creates a new ChatService. A nil completer means every reply
// comes from the fallback responder.
func NewChatService(database db.Database, config *app.Config, completer llm.CompletionClient) *ChatService {
	return newChatService(database, config, completer, conversation.Now)
}

func newChatService(database db.Database, config *app.Config, completer llm.CompletionClient, now func() time.Time) *ChatService {
	builder := clubcontext.NewBuilder(config.Club(), config.Chatbot())

	fallbacks, err := otel.Meter(instrumentationName).Int64Counter(
		"chatbot.fallback_replies",
		metric.WithDescription("Chat replies produced by the canned responder"),
	)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to create fallback counter")
		fallbacks = noop.Int64Counter{}
	}

	return &ChatService{
		db:            database,
		config:        config,
		completer:     completer,
		conversations: conversation.NewConversationServiceWithClock(database, now),
		prompt:        builder,
		fallback:      fallback.NewResponder(config.Club(), builder),
		now:           now,
		tracer:        otel.Tracer(instrumentationName),
		fallbacks:     fallbacks,
	}
}

// SendMessage runs one chat turn: it stores the user message, asks the completion
// backend for a reply (or the fallback responder when that fails), stores the reply
// and returns it with the full conversation.
func (s *ChatService) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "chat.send_message")
	defer span.End()

	policy := conversation.MustExist
	if req.ConversationID == "" {
		policy = conversation.CreateIfAbsent
	}

	conv, err := s.conversations.ResolveConversation(ctx, req.ConversationID, policy, req.UserID)
	if err != nil {
		span.SetStatus(codes.Error, "resolve conversation")
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID))

	// Messages must sort after everything already stored, even if the clock stepped back
	userAt := s.now()
	if !userAt.After(conv.UpdatedAt) {
		userAt = conv.UpdatedAt.Add(time.Microsecond)
	}

	userMsg, err := s.db.AddMessage(ctx, conv.ID, req.Content, true, userAt)
	if err != nil {
		span.SetStatus(codes.Error, "save user message")
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	// The user message is stored; finish the turn even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	turns, err := s.buildTurns(ctx, conv.ID, req.Content)
	if err != nil {
		span.SetStatus(codes.Error, "load history")
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"turn_count":      len(turns),
	}).Debug("Prepared for completion call")

	reply, usedFallback := s.reply(ctx, conv.ID, turns, req.Content)
	span.SetAttributes(attribute.Bool("chat.fallback", usedFallback))

	assistantAt := s.now()
	if !assistantAt.After(userMsg.Timestamp) {
		assistantAt = userMsg.Timestamp.Add(time.Microsecond)
	}

	assistantMsg, err := s.db.AddMessage(ctx, conv.ID, reply, false, assistantAt)
	if err != nil {
		span.SetStatus(codes.Error, "save assistant message")
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	snapshot, err := s.conversations.GetConversation(ctx, conv.ID)
	if err != nil {
		span.SetStatus(codes.Error, "load conversation")
		return nil, err
	}

	return &SendMessageResponse{
		Message:      *assistantMsg,
		Conversation: snapshot,
		Fallback:     usedFallback,
	}, nil
}

// buildTurns returns the system turn, the recent history in chronological order and
// the current message as the trailing user turn. The history already contains the
// stored copy of the current message, so it is sent twice.
func (s *ChatService) buildTurns(ctx context.Context, conversationID, content string) ([]llm.Turn, error) {
	recent, err := s.db.ListRecentMessages(ctx, conversationID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation history: %w", err)
	}

	turns := make([]llm.Turn, 0, len(recent)+2)
	turns = append(turns, llm.Turn{Role: llm.RoleSystem, Content: s.prompt.Build()})
	for i := len(recent) - 1; i >= 0; i-- {
		role := llm.RoleAssistant
		if recent[i].IsUser {
			role = llm.RoleUser
		}
		turns = append(turns, llm.Turn{Role: role, Content: recent[i].Content})
	}
	turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: content})

	return turns, nil
}

// reply asks the completion backend and falls back to the canned responder on any failure
func (s *ChatService) reply(ctx context.Context, conversationID string, turns []llm.Turn, content string) (string, bool) {
	if s.completer == nil {
		return s.fallbackReply(ctx, conversationID, content, "not_configured"), true
	}

	timeout := s.config.Chatbot().Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	callCtx, span := s.tracer.Start(callCtx, "chat.completion",
		trace.WithAttributes(attribute.String("llm.provider", s.completer.Name())))
	defer span.End()

	start := time.Now()
	reply, err := s.completer.Complete(callCtx, turns, llm.Options{MaxTokens: MaxTokens, Temperature: Temperature})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = fmt.Errorf("%w: empty reply", llm.ErrUnavailable)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"provider":        s.completer.Name(),
			"elapsed_ms":      time.Since(start).Milliseconds(),
		}).Warn("Completion backend unavailable, using fallback reply")
		return s.fallbackReply(ctx, conversationID, content, "unavailable"), true
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"provider":        s.completer.Name(),
		"response_chars":  len(reply),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	}).Info("Completion received")

	return reply, false
}

func (s *ChatService) fallbackReply(ctx context.Context, conversationID, content, reason string) string {
	category := fallback.Classify(content)
	s.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
		attribute.String("category", string(category)),
	))
	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"category":        category,
		"reason":          reason,
	}).Info("Generated fallback reply")
	return s.fallback.Generate(content)
}
