package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message type discriminators. A text message never carries a file path;
// image and file messages always do.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// ChatMessage is one append-only history record. Records are written once
// and never mutated; only bulk session deletion removes them.
type ChatMessage struct {
	ID          uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string            `json:"session_id" gorm:"type:varchar(36);index:idx_session_id_created_at"`
	Role        string            `gorm:"type:varchar(16)" json:"role"`
	Content     *string           `gorm:"type:text" json:"content"`
	MessageType string            `gorm:"type:varchar(16)" json:"message_type"`
	FilePath    *string           `gorm:"type:text" json:"file_path"`
	FileName    *string           `gorm:"type:text" json:"file_name"`
	FileType    *string           `gorm:"type:varchar(128)" json:"file_type"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index:idx_session_id_created_at"`
}

// AppendMessage writes one history record and bumps the session's
// last-message timestamp so the session list keeps its ordering.
func (s *Store) AppendMessage(msg *ChatMessage) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
		now := time.Now()
		if err := tx.Model(&ChatSession{}).Where("id = ?", msg.SessionID).
			Update("last_message_at", now).Error; err != nil {
			return fmt.Errorf("failed to touch session: %w", err)
		}
		return nil
	})
}

func (s *Store) FetchHistory(sessionID string) ([]ChatMessage, error) {
	var messages []ChatMessage
	if err := s.DB.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return messages, nil
}

// ListFilePaths returns every storage path referenced by a session's
// messages, for cleanup on session deletion.
func (s *Store) ListFilePaths(sessionID string) ([]string, error) {
	var paths []string
	if err := s.DB.Model(&ChatMessage{}).
		Where("session_id = ? AND file_path IS NOT NULL", sessionID).
		Pluck("file_path", &paths).Error; err != nil {
		return nil, fmt.Errorf("failed to list file paths: %w", err)
	}
	return paths, nil
}
