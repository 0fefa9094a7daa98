package service

import (
	"fmt"
	"strings"
	"time"

	"gemchat/model"
)

const (
	sweepBatchSize = 100
	// sweepNotifyAfter is how many failed removal attempts a path gets
	// before the operators hear about it.
	sweepNotifyAfter = 3
)

// OperatorNotifier surfaces persistent cleanup failures to a human.
type OperatorNotifier interface {
	Notify(subject, body string) error
}

// OrphanStore is the slice of the record store the sweep needs.
type OrphanStore interface {
	ListOrphanArtifacts(limit int) ([]model.OrphanArtifact, error)
	MarkOrphanFailure(ids []uint, cause string) error
	DeleteOrphanArtifacts(ids []uint) error
}

// CleanupService retries storage deletions that failed during session
// deletion. It runs on a schedule; nothing in the request path waits on it.
type CleanupService struct {
	Blobs    BlobStore
	Store    OrphanStore
	Notifier OperatorNotifier
}

func NewCleanupService(blobs BlobStore, store OrphanStore, notifier OperatorNotifier) *CleanupService {
	return &CleanupService{Blobs: blobs, Store: store, Notifier: notifier}
}

// SweepOrphanArtifacts retries every queued path once. Paths that keep
// failing past the attempt threshold are reported to the operators.
func (s *CleanupService) SweepOrphanArtifacts() {
	start := time.Now()
	artifacts, err := s.Store.ListOrphanArtifacts(sweepBatchSize)
	if err != nil {
		logger.Errorf("orphan sweep: failed to list artifacts: %s", err)
		return
	}
	if len(artifacts) == 0 {
		return
	}
	logger.Infof("orphan sweep: retrying %d storage deletions", len(artifacts))

	paths := make([]string, 0, len(artifacts))
	ids := make([]uint, 0, len(artifacts))
	for _, a := range artifacts {
		paths = append(paths, a.Path)
		ids = append(ids, a.ID)
	}

	if err := s.Blobs.Remove(paths); err != nil {
		logger.Errorf("orphan sweep: storage removal failed: %s", err)
		if mErr := s.Store.MarkOrphanFailure(ids, err.Error()); mErr != nil {
			logger.Errorf("orphan sweep: failed to record failure: %s", mErr)
		}
		s.notifyStuck(artifacts, err)
		return
	}

	if err := s.Store.DeleteOrphanArtifacts(ids); err != nil {
		logger.Errorf("orphan sweep: failed to clear queue: %s", err)
		return
	}
	logger.Infof("orphan sweep: removed %d artifacts in %v", len(paths), time.Since(start))
}

func (s *CleanupService) notifyStuck(artifacts []model.OrphanArtifact, cause error) {
	if s.Notifier == nil {
		return
	}
	var stuck []string
	for _, a := range artifacts {
		if a.Attempts+1 >= sweepNotifyAfter {
			stuck = append(stuck, fmt.Sprintf("%s (attempts: %d)", a.Path, a.Attempts+1))
		}
	}
	if len(stuck) == 0 {
		return
	}
	body := fmt.Sprintf("Storage deletion keeps failing for the following paths:\n\n%s\n\nLast error: %s\n",
		strings.Join(stuck, "\n"), cause)
	if err := s.Notifier.Notify("gemchat: storage cleanup failing", body); err != nil {
		logger.Errorf("orphan sweep: failed to notify operators: %s", err)
	}
}
