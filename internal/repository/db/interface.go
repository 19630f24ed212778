package db

import (
	"context"
	"time"
)

// Database defines the persistence operations the chat core relies on.
// Lookups by an unknown or malformed conversation id return ErrNotFound.
type Database interface {
	// Conversations
	CreateConversation(ctx context.Context, userID *string, title string, createdAt time.Time) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// Messages

	// AddMessage appends a message and sets the conversation's updated_at to its timestamp
	AddMessage(ctx context.Context, conversationID, content string, isUser bool, timestamp time.Time) (*Message, error)
	// ListMessages returns all messages of a conversation, oldest first
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	// ListRecentMessages returns at most limit messages, newest first
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)

	Close() error
}
