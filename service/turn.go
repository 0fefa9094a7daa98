package service

import (
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is a single fragment of model input or output: either a text
// fragment or an inline-encoded binary.
type Part struct {
	Text   string
	Inline *InlineBlob
}

// InlineBlob carries raw binary content together with its mime type.
type InlineBlob struct {
	MIMEType string
	Data     []byte
}

// Turn is one role-tagged ordered sequence of parts sent to or received
// from the model.
type Turn struct {
	Role  Role
	Parts []Part
}

// Attachment is a user-submitted file accompanying one chat request,
// held in memory until it is persisted.
type Attachment struct {
	OriginalName string
	MIMEType     string
	Data         []byte
	Size         int64
}

const (
	// MaxAttachmentSize is the per-file upload limit.
	MaxAttachmentSize = 5 * 1024 * 1024
	// MaxAttachments is the per-submission file count limit.
	MaxAttachments = 5
)

var supportedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/csv":        true,
	"text/html":       true,
	"text/markdown":   true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"audio/wav":  true,
	"audio/mp3":  true,
	"audio/aiff": true,
	"audio/aac":  true,
	"audio/ogg":  true,
	"audio/flac": true,
}

// AttachmentSupported reports whether the model can consume a file of the
// given mime type inline.
func AttachmentSupported(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || supportedDocumentTypes[mimeType]
}

// BuildUserTurn converts the current submission into one user turn. The
// text part comes first, then one inline part per consumable attachment.
// Attachments of unsupported types are left out of the model-facing turn;
// they are still persisted to history by the dispatcher.
func BuildUserTurn(message string, attachments []Attachment) Turn {
	turn := Turn{Role: RoleUser}
	if message != "" {
		turn.Parts = append(turn.Parts, Part{Text: message})
	}
	for _, att := range attachments {
		if !AttachmentSupported(att.MIMEType) {
			continue
		}
		turn.Parts = append(turn.Parts, Part{Inline: &InlineBlob{
			MIMEType: att.MIMEType,
			Data:     att.Data,
		}})
	}
	return turn
}
