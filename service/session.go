package service

import (
	"github.com/google/uuid"

	"gemchat/model"
)

// SessionStore is the slice of the record store the session CRUD needs.
type SessionStore interface {
	FetchUser(userID uint) (*model.User, error)
	FetchSession(sessionID string, userID uint) (*model.ChatSession, error)
	CreateSession(session *model.ChatSession) error
	ListSessionSummaries(userID uint) ([]model.SessionSummary, error)
	UpdateSessionTitle(sessionID, title string) error
	DeleteSession(sessionID string) error
	FetchHistory(sessionID string) ([]model.ChatMessage, error)
	ListFilePaths(sessionID string) ([]string, error)
	QueueOrphanArtifacts(paths []string, cause string) error
}

type SessionService struct {
	Store SessionStore
	Blobs BlobStore
}

func NewSessionService(store SessionStore, blobs BlobStore) *SessionService {
	return &SessionService{Store: store, Blobs: blobs}
}

func (s *SessionService) List(userID uint) ([]model.SessionSummary, error) {
	user, err := s.Store.FetchUser(userID)
	if err != nil {
		return nil, upstream(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	summaries, err := s.Store.ListSessionSummaries(userID)
	if err != nil {
		return nil, upstream(err)
	}
	return summaries, nil
}

func (s *SessionService) Create(userID uint, title, modelID string) (string, error) {
	user, err := s.Store.FetchUser(userID)
	if err != nil {
		return "", upstream(err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	if title == "" {
		title = "New conversation"
	}
	if modelID == "" {
		modelID = DefaultModel
	}

	session := &model.ChatSession{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  title,
		Model:  modelID,
	}
	if err := s.Store.CreateSession(session); err != nil {
		return "", upstream(err)
	}
	return session.ID, nil
}

func (s *SessionService) History(userID uint, sessionID string) ([]model.ChatMessage, error) {
	if _, err := s.owned(userID, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.Store.FetchHistory(sessionID)
	if err != nil {
		return nil, upstream(err)
	}
	return messages, nil
}

func (s *SessionService) Rename(userID uint, sessionID, title string) error {
	if _, err := s.owned(userID, sessionID); err != nil {
		return err
	}
	if err := s.Store.UpdateSessionTitle(sessionID, title); err != nil {
		return upstream(err)
	}
	return nil
}

// Delete removes the session's storage artifacts best-effort, then its
// records. A failed storage removal never blocks record deletion: the
// paths are queued for the sweep job, which keeps retrying and tells the
// operators if they will not go away.
func (s *SessionService) Delete(userID uint, sessionID string) error {
	if _, err := s.owned(userID, sessionID); err != nil {
		return err
	}

	paths, err := s.Store.ListFilePaths(sessionID)
	if err != nil {
		return upstream(err)
	}
	if len(paths) > 0 {
		logger.Infof("deleting %d storage artifacts for session %s", len(paths), sessionID)
		if err := s.Blobs.Remove(paths); err != nil {
			logger.Errorf("failed to delete storage artifacts for session %s: %s", sessionID, err)
			if qErr := s.Store.QueueOrphanArtifacts(paths, err.Error()); qErr != nil {
				logger.Errorf("failed to queue orphan artifacts for session %s: %s", sessionID, qErr)
			}
		}
	}

	if err := s.Store.DeleteSession(sessionID); err != nil {
		return upstream(err)
	}
	return nil
}

func (s *SessionService) owned(userID uint, sessionID string) (*model.ChatSession, error) {
	user, err := s.Store.FetchUser(userID)
	if err != nil {
		return nil, upstream(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	session, err := s.Store.FetchSession(sessionID, userID)
	if err != nil {
		return nil, upstream(err)
	}
	if session == nil {
		return nil, ErrSessionAccess
	}
	return session, nil
}
