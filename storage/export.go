package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chathub/chat"
)

// SanitizeFilename makes a conversation title safe to use as a filename.
func SanitizeFilename(name string) string {
	for _, c := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " ", "\n", "\r"} {
		name = strings.ReplaceAll(name, c, "-")
	}

	name = strings.Trim(name, "-.")

	if len(name) > 50 {
		name = name[:50]
	}

	if name == "" {
		name = "conversation"
	}

	return name
}

// GenerateExportPath builds a default export path under the user's
// Downloads directory, timestamped to avoid collisions.
func GenerateExportPath(title string) string {
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = os.Getenv("USERPROFILE") // Windows fallback
	}

	downloadsDir := filepath.Join(homeDir, "Downloads")
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("chathub-%s-%s.json", SanitizeFilename(title), timestamp)

	return filepath.Join(downloadsDir, filename)
}

// ExportToJSON writes a conversation transcript to a JSON file at
// exportPath, creating the directory if needed.
func (s *ConversationStore) ExportToJSON(id string, exportPath string) error {
	conv, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	return WriteConversationJSON(conv, exportPath)
}

// WriteConversationJSON serializes a conversation to an indented JSON
// file. Exports contain full transcripts, so the file is user-only.
func WriteConversationJSON(conv *chat.Conversation, exportPath string) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
