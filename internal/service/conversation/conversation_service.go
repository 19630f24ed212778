package conversation

import (
	"club-backend/internal/logger"
	"club-backend/internal/repository/db"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LookupPolicy says what to do when a conversation id is not given or not found
type LookupPolicy int

const (
	// MustExist reports db.ErrNotFound for an unknown id
	MustExist LookupPolicy = iota
	// CreateIfAbsent creates a new conversation when no id is given
	CreateIfAbsent
)

// Snapshot is a conversation together with all of its messages, oldest first
type Snapshot struct {
	db.Conversation
	Messages []db.Message
}

// ConversationService handles the business logic for conversation management
type ConversationService struct {
	db  db.Database
	now func() time.Time
}

// NewConversationService creates a new ConversationService
func NewConversationService(database db.Database) *ConversationService {
	return NewConversationServiceWithClock(database, Now)
}

// NewConversationServiceWithClock creates a ConversationService that stamps new conversations with now
func NewConversationServiceWithClock(database db.Database, now func() time.Time) *ConversationService {
	return &ConversationService{
		db:  database,
		now: now,
	}
}

// Now is the store clock: UTC at microsecond precision, which both SQL dialects keep exactly
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ResolveConversation returns the conversation for id according to policy.
// An empty id with CreateIfAbsent creates a conversation owned by ownerID (nil for anonymous).
func (s *ConversationService) ResolveConversation(ctx context.Context, id string, policy LookupPolicy, ownerID *string) (*db.Conversation, error) {
	if id == "" {
		if policy != CreateIfAbsent {
			return nil, db.ErrNotFound
		}
		return s.CreateConversation(ctx, ownerID, "")
	}

	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation: %w", err)
	}
	return conv, nil
}

// CreateConversation creates a conversation; an empty title becomes the default title
func (s *ConversationService) CreateConversation(ctx context.Context, ownerID *string, title string) (*db.Conversation, error) {
	if title == "" {
		title = db.DefaultConversationTitle
	}
	conv, err := s.db.CreateConversation(ctx, ownerID, title, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations retrieves all conversations, most recently updated first
func (s *ConversationService) ListConversations(ctx context.Context) ([]db.Conversation, error) {
	conversations, err := s.db.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation returns the conversation and its full message history
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*Snapshot, error) {
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation: %w", err)
	}
	return s.snapshot(ctx, conv)
}

func (s *ConversationService) snapshot(ctx context.Context, conv *db.Conversation) (*Snapshot, error) {
	messages, err := s.db.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %w", err)
	}
	return &Snapshot{Conversation: *conv, Messages: messages}, nil
}

// ListMessages retrieves all messages from a specific conversation
func (s *ConversationService) ListMessages(ctx context.Context, id string) ([]db.Message, error) {
	if _, err := s.db.GetConversation(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation: %w", err)
	}

	messages, err := s.db.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %w", err)
	}
	return messages, nil
}

// DeleteConversation deletes a conversation and its messages
func (s *ConversationService) DeleteConversation(ctx context.Context, id string) error {
	if err := s.db.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": id}).Info("Conversation deleted")
	return nil
}
