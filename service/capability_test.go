package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		want    CapabilityClass
	}{
		{"imagen model", "imagen-2.0", ImageGeneration},
		{"imagen model uppercase", "IMAGEN-3.0-generate", ImageGeneration},
		{"image preview model", "gemini-2.5-flash-image-preview", ImageCapableChat},
		{"plain chat model", "gemini-1.5-flash", TextChat},
		{"pro chat model", "gemini-2.0-pro", TextChat},
		{"empty identifier", "", TextChat},
		{"unknown identifier", "some-other-model", TextChat},
		{"preview name with different case is not preview", "Gemini-2.5-Flash-Image-Preview", TextChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.modelID))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	ids := []string{"imagen-2.0", "gemini-2.5-flash-image-preview", "gemini-1.5-flash", ""}
	for _, id := range ids {
		first := Classify(id)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Classify(id), "classification of %q changed between calls", id)
		}
	}
}
