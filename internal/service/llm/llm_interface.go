package llm

import (
	"context"
	"errors"
)

// Chat roles understood by every completion backend
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrUnavailable wraps every failure to obtain a reply from the backend
	ErrUnavailable = errors.New("completion backend unavailable")
	// ErrNotConfigured is returned by the factory when no credential is set
	ErrNotConfigured = errors.New("completion backend not configured")
)

// Turn is one role-tagged entry of a completion request
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the generation parameters sent with each request
type Options struct {
	MaxTokens   int
	Temperature float64
}

// CompletionClient sends an ordered list of turns to a text-completion backend.
// Implementations make a single attempt and wrap failures with ErrUnavailable.
type CompletionClient interface {
	Complete(ctx context.Context, turns []Turn, opts Options) (string, error)

	// Name identifies the backend in logs and spans
	Name() string
}
