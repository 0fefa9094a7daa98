package service

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gemchat/model"
)

// signedURLTTL is how long a generated-image link stays valid.
const signedURLTTL = 3600

// TokenUsage mirrors the model API's usage metadata.
type TokenUsage struct {
	PromptTokenCount     int32 `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int32 `json:"totalTokenCount,omitempty"`
}

// ModelOutput is the raw result of one conversational model call.
type ModelOutput struct {
	Parts []Part
	Usage *TokenUsage
}

// ChatResponse is the wire shape every chat submission resolves to.
// Text/Images are the multimodal fields; Response is the legacy
// single-text field consumers fall back to when the others are absent.
type ChatResponse struct {
	Text          string      `json:"text,omitempty"`
	Images        []string    `json:"images,omitempty"`
	Image         string      `json:"image,omitempty"`
	IsStoredImage *bool       `json:"isStoredImage,omitempty"`
	Usage         *TokenUsage `json:"usage,omitempty"`
	Response      string      `json:"response,omitempty"`
}

// Materializer turns raw model output into durable storage writes, history
// records, and the normalized API response.
type Materializer struct {
	Blobs   BlobStore
	Records RecordStore
}

// Materialize splits the output into text and binary segments. Text
// segments are joined in emission order and persisted as one record.
// Every binary segment is written to storage before any URL for it is
// derived; if the write fails the image is delivered inline as a data URI
// instead and no history record is made for it, since there is nothing
// durable to reference.
func (m *Materializer) Materialize(sessionID string, out *ModelOutput, legacyText bool) *ChatResponse {
	resp := &ChatResponse{Usage: out.Usage}

	var texts []string
	var images []string
	for _, part := range out.Parts {
		if part.Inline != nil {
			images = append(images, m.materializeImage(sessionID, part.Inline, out.Usage))
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	combined := strings.Join(texts, "\n")
	if combined != "" {
		rec := &model.ChatMessage{
			SessionID:   sessionID,
			Role:        string(RoleModel),
			Content:     &combined,
			MessageType: model.MessageTypeText,
			Metadata:    usageMetadata(out.Usage),
		}
		if err := m.Records.AppendMessage(rec); err != nil {
			logger.Warnf("failed to persist model text for session %s: %s", sessionID, err)
		}
	}

	if legacyText && len(images) == 0 {
		resp.Response = combined
		return resp
	}

	resp.Text = combined
	resp.Images = images
	return resp
}

// MaterializeGeneratedImage handles the image-generation pipeline's single
// binary: persist, record, then derive a retrieval URL. A failed storage
// write degrades to an inline data URI with no history record.
func (m *Materializer) MaterializeGeneratedImage(sessionID string, data []byte) *ChatResponse {
	imagePath := generatedImagePath(sessionID)
	if err := m.Blobs.Put(imagePath, data, "image/png"); err != nil {
		logger.Errorf("failed to store generated image for session %s: %s", sessionID, err)
		stored := false
		return &ChatResponse{
			Image:         dataURI("image/png", data),
			IsStoredImage: &stored,
		}
	}

	fileName := path.Base(imagePath)
	fileType := "image/png"
	rec := &model.ChatMessage{
		SessionID:   sessionID,
		Role:        string(RoleModel),
		MessageType: model.MessageTypeImage,
		FilePath:    &imagePath,
		FileName:    &fileName,
		FileType:    &fileType,
		Metadata:    datatypes.JSONMap{},
	}
	if err := m.Records.AppendMessage(rec); err != nil {
		logger.Warnf("failed to persist generated image record for session %s: %s", sessionID, err)
	}

	stored := true
	return &ChatResponse{
		Image:         m.retrievalURL(imagePath),
		IsStoredImage: &stored,
	}
}

func (m *Materializer) materializeImage(sessionID string, blob *InlineBlob, usage *TokenUsage) string {
	imagePath := responseImagePath(sessionID)
	if err := m.Blobs.Put(imagePath, blob.Data, blob.MIMEType); err != nil {
		logger.Errorf("failed to store response image for session %s: %s", sessionID, err)
		return dataURI(blob.MIMEType, blob.Data)
	}

	fileName := path.Base(imagePath)
	rec := &model.ChatMessage{
		SessionID:   sessionID,
		Role:        string(RoleModel),
		MessageType: model.MessageTypeImage,
		FilePath:    &imagePath,
		FileName:    &fileName,
		FileType:    &blob.MIMEType,
		Metadata:    usageMetadata(usage),
	}
	if err := m.Records.AppendMessage(rec); err != nil {
		logger.Warnf("failed to persist response image record for session %s: %s", sessionID, err)
	}

	return m.retrievalURL(imagePath)
}

// retrievalURL prefers a time-limited signed URL and falls back to the
// public URL; the fallback never blocks response delivery.
func (m *Materializer) retrievalURL(imagePath string) string {
	url, err := m.Blobs.SignedURL(imagePath, signedURLTTL)
	if err == nil && url != "" {
		return url
	}
	if err != nil {
		logger.Warnf("failed to sign URL for %s, falling back to public URL: %s", imagePath, err)
	}
	return m.Blobs.PublicURL(imagePath)
}

func usageMetadata(usage *TokenUsage) datatypes.JSONMap {
	if usage == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap{"usage": usage}
}

func dataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func userUploadPath(sessionID, originalName string) string {
	ext := strings.TrimPrefix(path.Ext(originalName), ".")
	if ext == "" {
		ext = "bin"
	}
	token := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("chat/%s/user_%d_%s.%s", sessionID, time.Now().UnixMilli(), token, ext)
}

func generatedImagePath(sessionID string) string {
	return fmt.Sprintf("chat/%s/generated_%d.png", sessionID, time.Now().UnixMilli())
}

func responseImagePath(sessionID string) string {
	token := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("chat/%s/response_%d_%s.png", sessionID, time.Now().UnixMilli(), token)
}
