package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrValidation is wrapped by every validation failure
var ErrValidation = errors.New("validation failed")

const (
	// MaxMessageLength is the longest chat message accepted, in characters
	MaxMessageLength = 4000
	// MaxTitleLength is the longest conversation title accepted, in characters
	MaxTitleLength = 200
)

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateMessage validates a chat message
func (v *ChatRequestValidator) ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: message cannot be empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(message); n > MaxMessageLength {
		return fmt.Errorf("%w: message must be at most %d characters, got %d", ErrValidation, MaxMessageLength, n)
	}
	return nil
}

// ValidateTitle validates an optional conversation title
func (v *ChatRequestValidator) ValidateTitle(title string) error {
	if title == "" {
		return nil // Title is optional, defaults to "New Conversation"
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title cannot be blank", ErrValidation)
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters, got %d", ErrValidation, MaxTitleLength, n)
	}
	return nil
}

// ValidateConversationID checks an id taken from a request body. Unknown or
// malformed ids are reported as not found by the store, so only length is checked here.
func (v *ChatRequestValidator) ValidateConversationID(id string) error {
	if len(id) > 64 {
		return fmt.Errorf("%w: conversation_id is too long", ErrValidation)
	}
	return nil
}

// ValidateChatRequest validates a complete chat request
func (v *ChatRequestValidator) ValidateChatRequest(message, conversationID string) error {
	if err := v.ValidateMessage(message); err != nil {
		return err
	}

	if err := v.ValidateConversationID(conversationID); err != nil {
		return err
	}

	return nil
}
