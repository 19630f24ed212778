package db

import (
	"errors"
	"time"
)

// DefaultConversationTitle is used when a conversation is created without a title
const DefaultConversationTitle = "New Conversation"

// ErrNotFound is returned when a referenced conversation does not exist
var ErrNotFound = errors.New("conversation not found")

// Conversation represents a conversation in the database.
// UserID is nil for anonymous conversations.
type Conversation struct {
	ID        string
	UserID    *string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents a message in a conversation
type Message struct {
	ID             string
	ConversationID string
	Content        string
	IsUser         bool
	Timestamp      time.Time
}
