package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemchat/model"
)

func fileRecord(sessionID, role, messageType, filePath, fileType string, content *string) model.ChatMessage {
	return model.ChatMessage{
		SessionID:   sessionID,
		Role:        role,
		Content:     content,
		MessageType: messageType,
		FilePath:    &filePath,
		FileType:    &fileType,
	}
}

func TestNormalizePreservesOrder(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["chat/s/one.png"] = []byte("one")
	n := &Normalizer{Blobs: blobs}

	question := "what is this?"
	records := []model.ChatMessage{
		userTextRecord("s", "hello"),
		modelTextRecord("s", "hi, how can I help?"),
		fileRecord("s", "user", model.MessageTypeImage, "chat/s/one.png", "image/png", &question),
		modelTextRecord("s", "that is a cat"),
	}

	turns := n.Normalize(records)
	require.Len(t, turns, 4)

	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Parts[0].Text)
	assert.Equal(t, RoleModel, turns[1].Role)

	// Text precedes the inlined attachment within the reconstructed turn.
	require.Len(t, turns[2].Parts, 2)
	assert.Equal(t, "what is this?", turns[2].Parts[0].Text)
	require.NotNil(t, turns[2].Parts[1].Inline)
	assert.Equal(t, "image/png", turns[2].Parts[1].Inline.MIMEType)
	assert.Equal(t, []byte("one"), turns[2].Parts[1].Inline.Data)

	assert.Equal(t, "that is a cat", turns[3].Parts[0].Text)
}

func TestNormalizeSkipsModelBinaries(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["chat/s/generated_1.png"] = []byte("gen")
	n := &Normalizer{Blobs: blobs}

	records := []model.ChatMessage{
		userTextRecord("s", "draw something"),
		fileRecord("s", "model", model.MessageTypeImage, "chat/s/generated_1.png", "image/png", nil),
	}

	turns := n.Normalize(records)
	// The generated image yields no turn: model records contribute text only.
	require.Len(t, turns, 1)
	assert.Equal(t, RoleUser, turns[0].Role)
}

func TestNormalizeSkipsUnfetchableAttachment(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.getErr = errors.New("object gone")
	n := &Normalizer{Blobs: blobs}

	caption := "see attachment"
	records := []model.ChatMessage{
		fileRecord("s", "user", model.MessageTypeFile, "chat/s/lost.pdf", "application/pdf", &caption),
	}

	turns := n.Normalize(records)
	// The text part survives even though the binary could not be fetched.
	require.Len(t, turns, 1)
	require.Len(t, turns[0].Parts, 1)
	assert.Equal(t, "see attachment", turns[0].Parts[0].Text)
}

func TestNormalizeDropsEmptyTurns(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.getErr = errors.New("object gone")
	n := &Normalizer{Blobs: blobs}

	records := []model.ChatMessage{
		fileRecord("s", "user", model.MessageTypeImage, "chat/s/lost.png", "image/png", nil),
		modelTextRecord("s", "reply"),
	}

	turns := n.Normalize(records)
	require.Len(t, turns, 1)
	assert.Equal(t, RoleModel, turns[0].Role)
}

func TestNormalizeDefaultsMissingFileType(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["chat/s/old.png"] = []byte("x")
	n := &Normalizer{Blobs: blobs}

	rec := fileRecord("s", "user", model.MessageTypeImage, "chat/s/old.png", "", nil)
	turns := n.Normalize([]model.ChatMessage{rec})

	require.Len(t, turns, 1)
	require.NotNil(t, turns[0].Parts[0].Inline)
	assert.Equal(t, "image/png", turns[0].Parts[0].Inline.MIMEType)
}
