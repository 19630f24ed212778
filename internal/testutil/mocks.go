package testutil

import (
	"club-backend/internal/app"
	"club-backend/internal/config"
	"club-backend/internal/repository/db"
	"club-backend/internal/service/llm"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// Conversation mocks
	CreateConversationFunc func(ctx context.Context, userID *string, title string, createdAt time.Time) (*db.Conversation, error)
	GetConversationFunc    func(ctx context.Context, id string) (*db.Conversation, error)
	ListConversationsFunc  func(ctx context.Context) ([]db.Conversation, error)
	DeleteConversationFunc func(ctx context.Context, id string) error

	// Message mocks
	AddMessageFunc         func(ctx context.Context, conversationID, content string, isUser bool, timestamp time.Time) (*db.Message, error)
	ListMessagesFunc       func(ctx context.Context, conversationID string) ([]db.Message, error)
	ListRecentMessagesFunc func(ctx context.Context, conversationID string, limit int) ([]db.Message, error)
}

var _ db.Database = (*MockDatabase)(nil)

// Conversation methods
func (m *MockDatabase) CreateConversation(ctx context.Context, userID *string, title string, createdAt time.Time) (*db.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, userID, title, createdAt)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ListConversations(ctx context.Context) ([]db.Conversation, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) DeleteConversation(ctx context.Context, id string) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, id)
	}
	return errors.New("not implemented")
}

// Message methods
func (m *MockDatabase) AddMessage(ctx context.Context, conversationID, content string, isUser bool, timestamp time.Time) (*db.Message, error) {
	if m.AddMessageFunc != nil {
		return m.AddMessageFunc(ctx, conversationID, content, isUser, timestamp)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ListMessages(ctx context.Context, conversationID string) ([]db.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, conversationID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
	if m.ListRecentMessagesFunc != nil {
		return m.ListRecentMessagesFunc(ctx, conversationID, limit)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) Close() error {
	return nil
}

// MockCompletionClient is a mock implementation of llm.CompletionClient
type MockCompletionClient struct {
	CompleteFunc func(ctx context.Context, turns []llm.Turn, opts llm.Options) (string, error)

	mu    sync.Mutex
	Calls [][]llm.Turn
}

func (m *MockCompletionClient) Complete(ctx context.Context, turns []llm.Turn, opts llm.Options) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, append([]llm.Turn(nil), turns...))
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, turns, opts)
	}
	return "", llm.ErrUnavailable
}

func (m *MockCompletionClient) Name() string {
	return "mock"
}

// MemoryDatabase is an in-memory db.Database with the same semantics as the SQL store
type MemoryDatabase struct {
	mu            sync.Mutex
	conversations map[string]*db.Conversation
	messages      map[string][]db.Message
}

var _ db.Database = (*MemoryDatabase)(nil)

// NewMemoryDatabase creates an empty in-memory database
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		conversations: map[string]*db.Conversation{},
		messages:      map[string][]db.Message{},
	}
}

func (m *MemoryDatabase) CreateConversation(ctx context.Context, userID *string, title string, createdAt time.Time) (*db.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if title == "" {
		title = db.DefaultConversationTitle
	}
	conv := &db.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	}
	m.conversations[conv.ID] = conv
	copied := *conv
	return &copied, nil
}

func (m *MemoryDatabase) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *MemoryDatabase) ListConversations(ctx context.Context) ([]db.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]db.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		list = append(list, *conv)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

func (m *MemoryDatabase) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

func (m *MemoryDatabase) AddMessage(ctx context.Context, conversationID, content string, isUser bool, timestamp time.Time) (*db.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, db.ErrNotFound
	}
	msg := db.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Content:        content,
		IsUser:         isUser,
		Timestamp:      timestamp.UTC(),
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	conv.UpdatedAt = msg.Timestamp
	return &msg, nil
}

func (m *MemoryDatabase) ListMessages(ctx context.Context, conversationID string) ([]db.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append([]db.Message{}, m.messages[conversationID]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	return list, nil
}

func (m *MemoryDatabase) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
	all, _ := m.ListMessages(ctx, conversationID)
	if limit < 0 {
		limit = 0
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	recent := make([]db.Message, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		recent = append(recent, all[i])
	}
	return recent, nil
}

func (m *MemoryDatabase) Close() error {
	return nil
}

// NewMockConfig creates a mock app.Config for testing
func NewMockConfig() *app.Config {
	return &app.Config{
		AppConfig: &config.AppConfig{
			Chatbot: config.ChatbotConfig{
				Provider:        "openai",
				APIKey:          "test-api-key",
				Model:           "test-model",
				Timeout:         5 * time.Second,
				UseClubContext:  true,
				FrontendBaseURL: "http://localhost:5173",
			},
			Club: config.DefaultClubProfile(),
		},
	}
}

// SteppingClock returns a clock that starts at start and advances by step on every call
func SteppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}
