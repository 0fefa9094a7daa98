package service

import "strings"

// CapabilityClass selects which response pipeline a model identifier maps to.
type CapabilityClass int

const (
	// TextChat is conversational text in, text out.
	TextChat CapabilityClass = iota
	// ImageCapableChat is conversational, but the model may emit inline
	// images alongside text.
	ImageCapableChat
	// ImageGeneration is stateless prompt-to-image synthesis.
	ImageGeneration
)

func (c CapabilityClass) String() string {
	switch c {
	case ImageGeneration:
		return "image-generation"
	case ImageCapableChat:
		return "image-capable-chat"
	default:
		return "text-chat"
	}
}

// imagePreviewModel is the one chat model that returns inline images.
const imagePreviewModel = "gemini-2.5-flash-image-preview"

// Classify maps a model identifier to its capability class. It is the only
// place model-identifier strings are matched. Unknown or empty identifiers
// fall back to plain text chat.
func Classify(modelID string) CapabilityClass {
	if strings.HasPrefix(strings.ToLower(modelID), "imagen") {
		return ImageGeneration
	}
	if modelID == imagePreviewModel {
		return ImageCapableChat
	}
	return TextChat
}
