package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrphanArtifact is a storage path whose deletion failed when its session
// was removed. The sweep job retries these until they go away.
type OrphanArtifact struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Path      string    `gorm:"type:text" json:"path"`
	Attempts  int       `gorm:"default:0" json:"attempts"`
	LastError string    `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *Store) QueueOrphanArtifacts(paths []string, cause string) error {
	if len(paths) == 0 {
		return nil
	}
	artifacts := make([]OrphanArtifact, 0, len(paths))
	for _, p := range paths {
		artifacts = append(artifacts, OrphanArtifact{Path: p, LastError: cause})
	}
	if err := s.DB.Create(&artifacts).Error; err != nil {
		return fmt.Errorf("failed to queue orphan artifacts: %w", err)
	}
	return nil
}

func (s *Store) ListOrphanArtifacts(limit int) ([]OrphanArtifact, error) {
	var artifacts []OrphanArtifact
	if err := s.DB.Order("id ASC").Limit(limit).Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("failed to list orphan artifacts: %w", err)
	}
	return artifacts, nil
}

func (s *Store) MarkOrphanFailure(ids []uint, cause string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.DB.Model(&OrphanArtifact{}).Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark orphan failure: %w", err)
	}
	return nil
}

func (s *Store) DeleteOrphanArtifacts(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.DB.Where("id IN ?", ids).Delete(&OrphanArtifact{}).Error; err != nil {
		return fmt.Errorf("failed to delete orphan artifacts: %w", err)
	}
	return nil
}
