// Package storage persists conversations and their transcripts.
//
// Conversations live in a single SQLite database under the data
// directory, one row per conversation plus one row per message. The
// database file is created with user-only permissions since transcripts
// are sensitive.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chathub/chat"
)

// ErrNotFound is returned when a conversation ID has no row.
var ErrNotFound = errors.New("conversation not found")

// ConversationMetadata is the lightweight listing form of a conversation.
type ConversationMetadata struct {
	ID           string
	Title        string
	Provider     string
	Model        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MessageMatch is one search hit within a conversation transcript.
type MessageMatch struct {
	ConversationID string
	Title          string
	Role           string
	Preview        string
	Timestamp      time.Time
}

// ConversationStore handles conversation persistence.
type ConversationStore struct {
	db *sql.DB
}

// NewConversationStore opens (creating if needed) the conversation
// database under dataDir.
func NewConversationStore(dataDir string) (*ConversationStore, error) {
	// 0700 - conversation data is user-only
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "conversations.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &ConversationStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *ConversationStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		system_prompt TEXT,
		tool_calling_enabled INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		ordinal INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		thinking TEXT,
		tool_calls TEXT,
		tool_call_id TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, ordinal);
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}

// Save writes the conversation and its full transcript. The message set
// is replaced wholesale inside one transaction, so a crash mid-save never
// leaves a half-written transcript.
func (s *ConversationStore) Save(conv *chat.Conversation) error {
	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, provider, model, system_prompt, tool_calling_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			provider = excluded.provider,
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			tool_calling_enabled = excluded.tool_calling_enabled,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Title, conv.Provider, conv.Model, conv.SystemPrompt,
		boolToInt(conv.ToolCallingEnabled), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	for i, msg := range conv.Messages {
		var toolCalls any
		if len(msg.ToolCalls) > 0 {
			raw, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to marshal tool calls: %w", err)
			}
			toolCalls = string(raw)
		}

		_, err := tx.Exec(`
			INSERT INTO messages (id, conversation_id, ordinal, role, content, thinking, tool_calls, tool_call_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, conv.ID, i, msg.Role, msg.Content, msg.Thinking, toolCalls, msg.ToolCallID, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load reads one conversation with its full transcript.
func (s *ConversationStore) Load(id string) (*chat.Conversation, error) {
	conv := &chat.Conversation{}
	var toolCallingEnabled int

	err := s.db.QueryRow(`
		SELECT id, title, provider, model, system_prompt, tool_calling_enabled, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.ID, &conv.Title, &conv.Provider, &conv.Model, &conv.SystemPrompt,
			&toolCallingEnabled, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	conv.ToolCallingEnabled = toolCallingEnabled != 0

	rows, err := s.db.Query(`
		SELECT id, role, content, thinking, tool_calls, tool_call_id, created_at
		FROM messages WHERE conversation_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg chat.Message
		var thinking, toolCalls, toolCallID sql.NullString

		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &thinking, &toolCalls, &toolCallID, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Thinking = thinking.String
		msg.ToolCallID = toolCallID.String
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}

		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return conv, nil
}

// List returns metadata for all conversations, newest first.
func (s *ConversationStore) List() ([]ConversationMetadata, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.provider, c.model, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var result []ConversationMetadata
	for rows.Next() {
		var meta ConversationMetadata
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.Provider, &meta.Model,
			&meta.CreatedAt, &meta.UpdatedAt, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		result = append(result, meta)
	}
	return result, rows.Err()
}

// Delete removes a conversation and its messages.
func (s *ConversationStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return tx.Commit()
}

// Rename updates a conversation title.
func (s *ConversationStore) Rename(id, title string) error {
	result, err := s.db.Exec(`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Search finds messages across all conversations matching the query,
// case-insensitively. System messages are excluded.
func (s *ConversationStore) Search(query string) ([]MessageMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT m.conversation_id, c.title, m.role, m.content, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.role != 'system' AND m.content LIKE ? COLLATE NOCASE
		ORDER BY m.created_at DESC`,
		"%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var matches []MessageMatch
	for rows.Next() {
		var match MessageMatch
		var content string
		if err := rows.Scan(&match.ConversationID, &match.Title, &match.Role, &content, &match.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		match.Preview = preview(content, 100)
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// SetLastOpen records which conversation was open, so the next start can
// resume it.
func (s *ConversationStore) SetLastOpen(id string) error {
	_, err := s.db.Exec(`
		INSERT INTO app_state (key, value) VALUES ('last_open', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, id)
	if err != nil {
		return fmt.Errorf("failed to save last-open conversation: %w", err)
	}
	return nil
}

// LastOpen returns the ID recorded by SetLastOpen, or "" when none exists.
func (s *ConversationStore) LastOpen() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = 'last_open'`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load last-open conversation: %w", err)
	}
	return id, nil
}

func preview(content string, limit int) string {
	if len(content) > limit {
		return content[:limit] + "..."
	}
	return content
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
