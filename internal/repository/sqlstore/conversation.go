package sqlstore

import (
	"club-backend/internal/logger"
	"club-backend/internal/repository/db"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// validID reports whether id could name a stored row; anything else is NotFound
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanConversation(row interface{ Scan(...any) error }) (*db.Conversation, error) {
	var conv db.Conversation
	var userID sql.NullString
	if err := row.Scan(&conv.ID, &userID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		conv.UserID = &userID.String
	}
	conv.CreatedAt = conv.CreatedAt.UTC()
	conv.UpdatedAt = conv.UpdatedAt.UTC()
	return &conv, nil
}

// CreateConversation creates a new conversation, anonymous when userID is nil
func (s *Store) CreateConversation(ctx context.Context, userID *string, title string, createdAt time.Time) (*db.Conversation, error) {
	if title == "" {
		title = db.DefaultConversationTitle
	}
	createdAt = createdAt.UTC()

	conv := &db.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	query := `
	INSERT INTO conversations (id, user_id, title, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.conn.ExecContext(ctx, query, conv.ID, userID, conv.Title, createdAt, createdAt); err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": conv.ID, "anonymous": userID == nil}).Info("Created new conversation")

	return conv, nil
}

// GetConversation retrieves a specific conversation
func (s *Store) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	if !validID(id) {
		return nil, db.ErrNotFound
	}

	query := `
	SELECT id, user_id, title, created_at, updated_at
	FROM conversations
	WHERE id = $1
	`

	conv, err := scanConversation(s.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	return conv, nil
}

// ListConversations retrieves all conversations, most recently updated first
func (s *Store) ListConversations(ctx context.Context) ([]db.Conversation, error) {
	query := `
	SELECT id, user_id, title, created_at, updated_at
	FROM conversations
	ORDER BY updated_at DESC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := []db.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

// DeleteConversation deletes a conversation and all its messages
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if !validID(id) {
		return db.ErrNotFound
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE conversation_id = $1`, id); err != nil {
		return fmt.Errorf("error deleting messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing delete: %w", err)
	}

	logger.Log.WithField("conversation_id", id).Info("Deleted conversation")
	return nil
}

// AddMessage appends a message to a conversation and moves its updated_at to the message timestamp
func (s *Store) AddMessage(ctx context.Context, conversationID, content string, isUser bool, timestamp time.Time) (*db.Message, error) {
	if !validID(conversationID) {
		return nil, db.ErrNotFound
	}
	timestamp = timestamp.UTC()

	msg := &db.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Content:        content,
		IsUser:         isUser,
		Timestamp:      timestamp,
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, timestamp, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error updating conversation timestamp: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error updating conversation timestamp: %w", err)
	}
	if affected == 0 {
		return nil, db.ErrNotFound
	}

	query := `
	INSERT INTO chat_messages (id, conversation_id, content, is_user, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query, msg.ID, conversationID, content, isUser, timestamp); err != nil {
		return nil, fmt.Errorf("error adding message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing message: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"is_user":         isUser,
		"content_chars":   len(content),
	}).Debug("Added message to conversation")

	return msg, nil
}

// ListMessages retrieves all messages of a conversation in chronological order
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]db.Message, error) {
	query := `
	SELECT id, conversation_id, content, is_user, created_at
	FROM chat_messages
	WHERE conversation_id = $1
	ORDER BY created_at ASC
	`
	return s.queryMessages(ctx, query, conversationID)
}

// ListRecentMessages retrieves the newest limit messages of a conversation, newest first
func (s *Store) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
	if limit <= 0 {
		return []db.Message{}, nil
	}

	query := `
	SELECT id, conversation_id, content, is_user, created_at
	FROM chat_messages
	WHERE conversation_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`
	return s.queryMessages(ctx, query, conversationID, limit)
}

func (s *Store) queryMessages(ctx context.Context, query string, conversationID string, args ...any) ([]db.Message, error) {
	if !validID(conversationID) {
		return []db.Message{}, nil
	}

	rows, err := s.conn.QueryContext(ctx, query, append([]any{conversationID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	messages := []db.Message{}
	for rows.Next() {
		var msg db.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.IsUser, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		msg.Timestamp = msg.Timestamp.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
