package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ChatSession struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        uint       `gorm:"index" json:"user_id"`
	Title         string     `gorm:"type:varchar(255)" json:"title"`
	Model         string     `gorm:"type:varchar(128)" json:"model"`
	IsPinned      bool       `gorm:"default:false" json:"is_pinned"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SessionSummary is the session-list row: session fields plus a message
// count, ordered pinned-first then most recently active.
type SessionSummary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Model         string     `json:"model"`
	IsPinned      bool       `json:"is_pinned"`
	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (s *Store) CreateSession(session *ChatSession) error {
	if err := s.DB.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FetchSession returns nil without an error when the session does not
// exist or is not owned by the given user.
func (s *Store) FetchSession(sessionID string, userID uint) (*ChatSession, error) {
	var session ChatSession
	err := s.DB.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &session, nil
}

func (s *Store) ListSessionSummaries(userID uint) ([]SessionSummary, error) {
	var summaries []SessionSummary
	err := s.DB.Table("chat_sessions").
		Select("chat_sessions.id, chat_sessions.title, chat_sessions.model, chat_sessions.is_pinned, chat_sessions.last_message_at, chat_sessions.created_at, COUNT(chat_messages.id) AS message_count").
		Joins("LEFT JOIN chat_messages ON chat_messages.session_id = chat_sessions.id").
		Where("chat_sessions.user_id = ?", userID).
		Group("chat_sessions.id").
		Order("chat_sessions.is_pinned DESC, chat_sessions.last_message_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return summaries, nil
}

func (s *Store) UpdateSessionTitle(sessionID, title string) error {
	if err := s.DB.Model(&ChatSession{}).Where("id = ?", sessionID).
		Update("title", title).Error; err != nil {
		return fmt.Errorf("failed to update session title: %w", err)
	}
	return nil
}

// DeleteSession removes the session and all of its messages. Storage
// artifacts are the caller's responsibility; record deletion never waits
// on them.
func (s *Store) DeleteSession(sessionID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&ChatMessage{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Where("id = ?", sessionID).Delete(&ChatSession{}).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}
