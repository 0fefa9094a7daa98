package service

import (
	"gemchat/model"
)

// Normalizer reconstructs model-ready turns from persisted history records.
// The persisted history is authoritative; whatever history the client sends
// along with a request is never consulted.
type Normalizer struct {
	Blobs BlobStore
}

// Normalize converts records into turns, preserving record order. User
// records contribute their text and, for image/file records, the stored
// binary inlined from the blob store. Model records contribute text only;
// model-authored binaries are never fed back into the context window, so a
// generated image cannot amplify every later request. Records that end up
// with no parts are dropped rather than emitted as empty turns.
func (n *Normalizer) Normalize(records []model.ChatMessage) []Turn {
	turns := make([]Turn, 0, len(records))
	for _, rec := range records {
		switch rec.Role {
		case string(RoleUser):
			var parts []Part
			if rec.Content != nil && *rec.Content != "" {
				parts = append(parts, Part{Text: *rec.Content})
			}
			if rec.FilePath != nil &&
				(rec.MessageType == model.MessageTypeImage || rec.MessageType == model.MessageTypeFile) {
				data, err := n.Blobs.Get(*rec.FilePath)
				if err != nil {
					// A single unreadable attachment should not abort the
					// whole reconstruction.
					logger.Warnf("failed to load attachment %s from storage: %s", *rec.FilePath, err)
				} else {
					mimeType := "image/png"
					if rec.FileType != nil && *rec.FileType != "" {
						mimeType = *rec.FileType
					}
					parts = append(parts, Part{Inline: &InlineBlob{MIMEType: mimeType, Data: data}})
				}
			}
			if len(parts) > 0 {
				turns = append(turns, Turn{Role: RoleUser, Parts: parts})
			}
		case string(RoleModel):
			if rec.Content != nil && *rec.Content != "" {
				turns = append(turns, Turn{Role: RoleModel, Parts: []Part{{Text: *rec.Content}}})
			}
		}
	}
	return turns
}
