package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"gemchat/model"
)

var logger = logrus.StandardLogger()

// DefaultModel is used when the request names no model. A request that
// names exactly this model defers to the model stored on the session.
const DefaultModel = "gemini-1.5-flash"

// ModelClient is the generative-model capability the dispatcher invokes.
type ModelClient interface {
	GenerateContent(ctx context.Context, modelID string, turns []Turn) (*ModelOutput, error)
	GenerateImage(ctx context.Context, modelID, prompt string) ([]byte, error)
}

// BlobStore is the durable binary storage capability.
type BlobStore interface {
	Put(path string, data []byte, contentType string) error
	SignedURL(path string, ttlSeconds int) (string, error)
	PublicURL(path string) string
	Get(path string) ([]byte, error)
	Remove(paths []string) error
}

// RecordStore is the slice of the record store the chat pipeline needs.
type RecordStore interface {
	FetchUser(userID uint) (*model.User, error)
	FetchSession(sessionID string, userID uint) (*model.ChatSession, error)
	FetchHistory(sessionID string) ([]model.ChatMessage, error)
	AppendMessage(msg *model.ChatMessage) error
}

// ChatRequest is one inbound chat submission, already authenticated and
// with its files read into memory.
type ChatRequest struct {
	UserID      uint
	SessionID   string
	Message     string
	Model       string
	Attachments []Attachment
}

// ChatService runs one submission through validation, user-turn
// persistence, model invocation and materialization. It holds no state of
// its own across requests; concurrent submissions only meet in the
// external store.
type ChatService struct {
	Model   ModelClient
	Blobs   BlobStore
	Records RecordStore
}

func NewChatService(modelClient ModelClient, blobs BlobStore, records RecordStore) *ChatService {
	return &ChatService{Model: modelClient, Blobs: blobs, Records: records}
}

// HandleTurn processes one chat submission to completion. No failed
// external call is retried here; a retry is the caller resubmitting, since
// generation is not idempotent.
func (s *ChatService) HandleTurn(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	session, err := s.authorize(req)
	if err != nil {
		return nil, err
	}

	modelID := req.Model
	if modelID == "" {
		modelID = DefaultModel
	}
	if modelID == DefaultModel && session.Model != "" {
		modelID = session.Model
	}

	s.persistUserTurn(req)

	materializer := &Materializer{Blobs: s.Blobs, Records: s.Records}

	switch Classify(modelID) {
	case ImageGeneration:
		if req.Message == "" {
			return nil, ErrPromptRequired
		}
		// Image generation is stateless per turn: only the prompt goes out.
		data, err := s.Model.GenerateImage(ctx, modelID, req.Message)
		if err != nil {
			return nil, upstream(err)
		}
		return materializer.MaterializeGeneratedImage(req.SessionID, data), nil

	case ImageCapableChat:
		out, err := s.invokeChat(ctx, modelID, req)
		if err != nil {
			return nil, err
		}
		return materializer.Materialize(req.SessionID, out, false), nil

	default:
		out, err := s.invokeChat(ctx, modelID, req)
		if err != nil {
			return nil, err
		}
		return materializer.Materialize(req.SessionID, out, true), nil
	}
}

func validate(req *ChatRequest) error {
	if req.Message == "" && len(req.Attachments) == 0 {
		return ErrEmptySubmission
	}
	if req.SessionID == "" {
		return ErrMissingSession
	}
	if len(req.Attachments) > MaxAttachments {
		return ErrTooManyFiles
	}
	for _, att := range req.Attachments {
		if att.Size > MaxAttachmentSize || int64(len(att.Data)) > MaxAttachmentSize {
			return ErrFileTooLarge
		}
	}
	return nil
}

func (s *ChatService) authorize(req *ChatRequest) (*model.ChatSession, error) {
	user, err := s.Records.FetchUser(req.UserID)
	if err != nil {
		return nil, upstream(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	session, err := s.Records.FetchSession(req.SessionID, req.UserID)
	if err != nil {
		return nil, upstream(err)
	}
	if session == nil {
		return nil, ErrSessionAccess
	}
	return session, nil
}

// persistUserTurn writes the user's side of the exchange before the model
// is invoked: one record per uploaded attachment (tagged with its position
// in the submission), or a single text record when there are no files. An
// attachment whose upload fails is logged and skipped; the submission
// still proceeds with whatever could be stored.
func (s *ChatService) persistUserTurn(req *ChatRequest) {
	var content *string
	if req.Message != "" {
		content = &req.Message
	}

	stored := 0
	for i, att := range req.Attachments {
		filePath := userUploadPath(req.SessionID, att.OriginalName)
		if err := s.Blobs.Put(filePath, att.Data, att.MIMEType); err != nil {
			logger.Errorf("failed to upload user file %s: %s", att.OriginalName, err)
			continue
		}

		messageType := model.MessageTypeFile
		if strings.HasPrefix(att.MIMEType, "image/") {
			messageType = model.MessageTypeImage
		}

		name := att.OriginalName
		mimeType := att.MIMEType
		rec := &model.ChatMessage{
			SessionID:   req.SessionID,
			Role:        string(RoleUser),
			Content:     content,
			MessageType: messageType,
			FilePath:    &filePath,
			FileName:    &name,
			FileType:    &mimeType,
			Metadata:    datatypes.JSONMap{"fileIndex": i},
		}
		if err := s.Records.AppendMessage(rec); err != nil {
			logger.Warnf("failed to persist user file record for session %s: %s", req.SessionID, err)
			continue
		}
		stored++
	}

	if stored == 0 && req.Message != "" {
		rec := &model.ChatMessage{
			SessionID:   req.SessionID,
			Role:        string(RoleUser),
			Content:     content,
			MessageType: model.MessageTypeText,
			Metadata:    datatypes.JSONMap{},
		}
		if err := s.Records.AppendMessage(rec); err != nil {
			logger.Warnf("failed to persist user message for session %s: %s", req.SessionID, err)
		}
	}
}

// invokeChat sends the full context window: the normalized persisted
// history followed by the turn built from the current submission.
func (s *ChatService) invokeChat(ctx context.Context, modelID string, req *ChatRequest) (*ModelOutput, error) {
	records, err := s.Records.FetchHistory(req.SessionID)
	if err != nil {
		return nil, upstream(err)
	}

	normalizer := &Normalizer{Blobs: s.Blobs}
	turns := normalizer.Normalize(records)
	turns = append(turns, BuildUserTurn(req.Message, req.Attachments))

	out, err := s.Model.GenerateContent(ctx, modelID, turns)
	if err != nil {
		return nil, upstream(err)
	}
	return out, nil
}
