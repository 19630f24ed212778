package chat

import (
	"club-backend/internal/repository/db"
	"club-backend/internal/service/llm"
	"club-backend/internal/testutil"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

var clockStart = time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC)

func newTestService(database db.Database, completer llm.CompletionClient) *ChatService {
	return newChatService(database, testutil.NewMockConfig(), completer, testutil.SteppingClock(clockStart, time.Second))
}

// Test NewChatService
func TestNewChatService(t *testing.T) {
	service := NewChatService(testutil.NewMemoryDatabase(), testutil.NewMockConfig(), nil)

	if service == nil {
		t.Fatal("Expected service to be created, got nil")
	}
	if service.db == nil || service.config == nil {
		t.Error("Expected db and config to be set")
	}
	if service.conversations == nil || service.prompt == nil || service.fallback == nil {
		t.Error("Expected collaborators to be built")
	}
}

func TestSendMessage_NewConversationWithoutBackend(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	service := newTestService(store, nil)

	resp, err := service.SendMessage(context.Background(), SendMessageRequest{Content: "Who is on the team?"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !resp.Fallback {
		t.Error("Expected fallback reply without a completion client")
	}
	if !strings.Contains(resp.Message.Content, "Darren (Club President)") {
		t.Errorf("Expected team reply, got %q", resp.Message.Content)
	}
	if resp.Message.IsUser {
		t.Error("Expected assistant message")
	}

	snap := resp.Conversation
	if snap.Title != db.DefaultConversationTitle {
		t.Errorf("Title = %q", snap.Title)
	}
	if snap.UserID != nil {
		t.Error("Expected anonymous conversation")
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(snap.Messages))
	}
	if !snap.Messages[0].IsUser || snap.Messages[0].Content != "Who is on the team?" {
		t.Errorf("First message = %+v", snap.Messages[0])
	}
	if snap.Messages[1].IsUser || snap.Messages[1].ID != resp.Message.ID {
		t.Errorf("Second message = %+v", snap.Messages[1])
	}
	if !snap.Messages[1].Timestamp.After(snap.Messages[0].Timestamp) {
		t.Error("Assistant message must be after the user message")
	}
	if !snap.UpdatedAt.Equal(resp.Message.Timestamp) {
		t.Errorf("UpdatedAt = %v, want assistant timestamp %v", snap.UpdatedAt, resp.Message.Timestamp)
	}

	list, _ := store.ListConversations(context.Background())
	if len(list) != 1 {
		t.Errorf("Expected exactly one conversation, got %d", len(list))
	}
}

func TestSendMessage_OwnerFromAuth(t *testing.T) {
	service := newTestService(testutil.NewMemoryDatabase(), nil)
	owner := "user-7"

	resp, err := service.SendMessage(context.Background(), SendMessageRequest{Content: "hi", UserID: &owner})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if resp.Conversation.UserID == nil || *resp.Conversation.UserID != owner {
		t.Errorf("UserID = %v, want %q", resp.Conversation.UserID, owner)
	}
}

func TestSendMessage_UsesCompletion(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	var gotOpts llm.Options
	mockLLM := &testutil.MockCompletionClient{
		CompleteFunc: func(ctx context.Context, turns []llm.Turn, opts llm.Options) (string, error) {
			gotOpts = opts
			return "Hi there!", nil
		},
	}
	service := newTestService(store, mockLLM)

	resp, err := service.SendMessage(context.Background(), SendMessageRequest{Content: "Hello, world!"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if resp.Fallback || resp.Message.Content != "Hi there!" {
		t.Errorf("Expected backend reply, got %q (fallback=%v)", resp.Message.Content, resp.Fallback)
	}

	if gotOpts.MaxTokens != 500 || gotOpts.Temperature != 0.7 {
		t.Errorf("Options = %+v", gotOpts)
	}

	if len(mockLLM.Calls) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(mockLLM.Calls))
	}
	turns := mockLLM.Calls[0]
	// system, stored user message, trailing user message
	if len(turns) != 3 {
		t.Fatalf("Expected 3 turns, got %d: %+v", len(turns), turns)
	}
	if turns[0].Role != llm.RoleSystem || !strings.Contains(turns[0].Content, "University of Guelph Rocketry Club") {
		t.Errorf("First turn should be the club system context, got %+v", turns[0])
	}
	for _, turn := range turns[1:] {
		if turn.Role != llm.RoleUser || turn.Content != "Hello, world!" {
			t.Errorf("Unexpected turn %+v", turn)
		}
	}
}

func TestSendMessage_HistoryBounded(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryDatabase()
	conv, _ := store.CreateConversation(ctx, nil, "", clockStart.Add(-time.Hour))
	for i := 0; i < 25; i++ {
		at := clockStart.Add(-time.Hour).Add(time.Duration(i+1) * time.Minute)
		store.AddMessage(ctx, conv.ID, fmt.Sprintf("m%d", i), i%2 == 0, at)
	}

	mockLLM := &testutil.MockCompletionClient{
		CompleteFunc: func(ctx context.Context, turns []llm.Turn, opts llm.Options) (string, error) {
			return "ok", nil
		},
	}
	service := newTestService(store, mockLLM)

	resp, err := service.SendMessage(ctx, SendMessageRequest{ConversationID: conv.ID, Content: "latest"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	turns := mockLLM.Calls[0]
	if len(turns) != 1+HistoryLimit+1 {
		t.Fatalf("Expected %d turns, got %d", 1+HistoryLimit+1, len(turns))
	}
	// newest ten stored messages are m16..m24 plus the new one, oldest first
	if turns[1].Content != "m16" || turns[1].Role != llm.RoleUser {
		t.Errorf("turns[1] = %+v, want user m16", turns[1])
	}
	if turns[2].Content != "m17" || turns[2].Role != llm.RoleAssistant {
		t.Errorf("turns[2] = %+v, want assistant m17", turns[2])
	}
	if turns[10].Content != "latest" || turns[11].Content != "latest" {
		t.Errorf("Expected the new message twice at the end, got %q and %q", turns[10].Content, turns[11].Content)
	}

	if len(resp.Conversation.Messages) != 27 {
		t.Errorf("Expected 27 messages, got %d", len(resp.Conversation.Messages))
	}
}

func TestSendMessage_SponsorshipWithBackendDown(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryDatabase()
	conv, _ := store.CreateConversation(ctx, nil, "", clockStart.Add(-time.Hour))
	store.AddMessage(ctx, conv.ID, "hello", true, clockStart.Add(-50*time.Minute))
	store.AddMessage(ctx, conv.ID, "Hi! How can I help?", false, clockStart.Add(-49*time.Minute))

	mockLLM := &testutil.MockCompletionClient{
		CompleteFunc: func(ctx context.Context, turns []llm.Turn, opts llm.Options) (string, error) {
			return "", fmt.Errorf("%w: API returned status 503", llm.ErrUnavailable)
		},
	}
	service := newTestService(store, mockLLM)

	resp, err := service.SendMessage(ctx, SendMessageRequest{ConversationID: conv.ID, Content: "tell me about sponsorship"})
	if err != nil {
		t.Fatalf("Completion failures must not propagate, got: %v", err)
	}
	if !resp.Fallback || !strings.Contains(resp.Message.Content, "Sponsors page") {
		t.Errorf("Expected sponsorship reply, got %q", resp.Message.Content)
	}
	if len(resp.Conversation.Messages) != 4 {
		t.Errorf("Expected 4 messages, got %d", len(resp.Conversation.Messages))
	}
}

func TestSendMessage_EmptyReplyFallsBack(t *testing.T) {
	mockLLM := &testutil.MockCompletionClient{
		CompleteFunc: func(ctx context.Context, turns []llm.Turn, opts llm.Options) (string, error) {
			return "   ", nil
		},
	}
	service := newTestService(testutil.NewMemoryDatabase(), mockLLM)

	resp, err := service.SendMessage(context.Background(), SendMessageRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !resp.Fallback || strings.TrimSpace(resp.Message.Content) == "" {
		t.Errorf("Expected a non-empty fallback reply, got %q", resp.Message.Content)
	}
}

func TestSendMessage_CompletionTimeout(t *testing.T) {
	mockLLM := &testutil.MockCompletionClient{
		CompleteFunc: func(ctx context.Context, turns []llm.Turn, opts llm.Options) (string, error) {
			<-ctx.Done()
			return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, ctx.Err())
		},
	}
	cfg := testutil.NewMockConfig()
	cfg.AppConfig.Chatbot.Timeout = 20 * time.Millisecond
	service := newChatService(testutil.NewMemoryDatabase(), cfg, mockLLM, testutil.SteppingClock(clockStart, time.Second))

	resp, err := service.SendMessage(context.Background(), SendMessageRequest{Content: "what projects are you building"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !resp.Fallback || !strings.Contains(resp.Message.Content, "CubeSat") {
		t.Errorf("Expected project fallback, got %q", resp.Message.Content)
	}
}

func TestSendMessage_CallerCancelAfterSave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockLLM := &testutil.MockCompletionClient{
		CompleteFunc: func(callCtx context.Context, turns []llm.Turn, opts llm.Options) (string, error) {
			cancel()
			if callCtx.Err() != nil {
				return "", callCtx.Err()
			}
			return "still here", nil
		},
	}
	service := newTestService(testutil.NewMemoryDatabase(), mockLLM)

	resp, err := service.SendMessage(ctx, SendMessageRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if resp.Message.Content != "still here" {
		t.Errorf("Expected the backend reply after caller cancel, got %q", resp.Message.Content)
	}
	if len(resp.Conversation.Messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(resp.Conversation.Messages))
	}
}

func TestSendMessage_FrozenClockStillOrders(t *testing.T) {
	frozen := func() time.Time { return clockStart }
	service := newChatService(testutil.NewMemoryDatabase(), testutil.NewMockConfig(), nil, frozen)

	resp, err := service.SendMessage(context.Background(), SendMessageRequest{Content: "hi"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	msgs := resp.Conversation.Messages
	if !msgs[1].Timestamp.After(msgs[0].Timestamp) {
		t.Errorf("assistant %v not after user %v", msgs[1].Timestamp, msgs[0].Timestamp)
	}
}

func TestSendMessage_ClockStepsBackBetweenTurns(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryDatabase()

	// create, user, assistant, then the clock jumps back ten seconds
	readings := []time.Time{clockStart, clockStart, clockStart, clockStart.Add(-10 * time.Second), clockStart.Add(-10 * time.Second)}
	var calls int
	clock := func() time.Time {
		now := readings[len(readings)-1]
		if calls < len(readings) {
			now = readings[calls]
		}
		calls++
		return now
	}
	service := newChatService(store, testutil.NewMockConfig(), nil, clock)

	first, err := service.SendMessage(ctx, SendMessageRequest{Content: "first"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := service.SendMessage(ctx, SendMessageRequest{ConversationID: first.Conversation.ID, Content: "second"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	msgs := second.Conversation.Messages
	if len(msgs) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[2].Content != "second" {
		t.Errorf("messages out of order: %q, %q, %q, %q", msgs[0].Content, msgs[1].Content, msgs[2].Content, msgs[3].Content)
	}
	for i := 1; i < len(msgs); i++ {
		if !msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
			t.Errorf("message %d at %v not after message %d at %v", i, msgs[i].Timestamp, i-1, msgs[i-1].Timestamp)
		}
	}
	if newest := msgs[len(msgs)-1].Timestamp; second.Conversation.UpdatedAt.Before(newest) {
		t.Errorf("UpdatedAt %v before newest message %v", second.Conversation.UpdatedAt, newest)
	}
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	service := newTestService(store, nil)

	for _, id := range []string{"0f5c3c1e-9a1b-4e55-8a76-2f1d4c9b7e10", "not-a-uuid"} {
		_, err := service.SendMessage(context.Background(), SendMessageRequest{ConversationID: id, Content: "hi"})
		if !errors.Is(err, db.ErrNotFound) {
			t.Errorf("SendMessage(%q) error = %v, want ErrNotFound", id, err)
		}
	}

	list, _ := store.ListConversations(context.Background())
	if len(list) != 0 {
		t.Errorf("Expected no conversation to be created, got %d", len(list))
	}
}

func TestSendMessage_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	mockDB := &testutil.MockDatabase{
		GetConversationFunc: func(ctx context.Context, id string) (*db.Conversation, error) {
			return &db.Conversation{ID: id, Title: "Test Conversation"}, nil
		},
		AddMessageFunc: func(ctx context.Context, conversationID, content string, isUser bool, timestamp time.Time) (*db.Message, error) {
			return nil, storeErr
		},
	}
	mockLLM := &testutil.MockCompletionClient{}
	service := newTestService(mockDB, mockLLM)

	_, err := service.SendMessage(context.Background(), SendMessageRequest{ConversationID: "conv-123", Content: "hello"})
	if !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
	if len(mockLLM.Calls) != 0 {
		t.Error("Completion must not be called when the user message could not be saved")
	}
}

func TestSendMessage_AssistantSaveFailure(t *testing.T) {
	storeErr := errors.New("disk full")
	calls := 0
	mockDB := &testutil.MockDatabase{
		GetConversationFunc: func(ctx context.Context, id string) (*db.Conversation, error) {
			return &db.Conversation{ID: id}, nil
		},
		AddMessageFunc: func(ctx context.Context, conversationID, content string, isUser bool, timestamp time.Time) (*db.Message, error) {
			calls++
			if !isUser {
				return nil, storeErr
			}
			return &db.Message{ID: "msg-1", ConversationID: conversationID, Content: content, IsUser: true, Timestamp: timestamp}, nil
		},
		ListRecentMessagesFunc: func(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
			return nil, nil
		},
	}
	service := newTestService(mockDB, nil)

	if _, err := service.SendMessage(context.Background(), SendMessageRequest{ConversationID: "conv-1", Content: "hello"}); !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 AddMessage calls, got %d", calls)
	}
}
