package platform

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"gemchat/service"
)

// modelCallTimeout bounds every model invocation; nothing is retried, so a
// hung call must time out on its own.
const modelCallTimeout = 120 * time.Second

// GeminiClient wraps the Gemini SDK behind the service-facing model
// capabilities.
type GeminiClient struct {
	client  *genai.Client
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client, timeout: modelCallTimeout}, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, modelID string, turns []service.Turn) (*service.ModelOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.Inline != nil {
				parts = append(parts, genai.NewPartFromBytes(p.Inline.Data, p.Inline.MIMEType))
			} else {
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		}
		contents = append(contents, &genai.Content{Role: string(turn.Role), Parts: parts})
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelID, contents, nil)
	if err != nil {
		return nil, err
	}

	out := &service.ModelOutput{}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.InlineData != nil {
				out.Parts = append(out.Parts, service.Part{Inline: &service.InlineBlob{
					MIMEType: p.InlineData.MIMEType,
					Data:     p.InlineData.Data,
				}})
			} else if p.Text != "" {
				out.Parts = append(out.Parts, service.Part{Text: p.Text})
			}
		}
	}
	if resp.UsageMetadata != nil {
		out.Usage = &service.TokenUsage{
			PromptTokenCount:     resp.UsageMetadata.PromptTokenCount,
			CandidatesTokenCount: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokenCount:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, modelID, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateImages(ctx, modelID, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, errors.New("the model did not return an image")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// ListModels returns the chat- and image-generation models the API offers,
// sorted by display name.
func (g *GeminiClient) ListModels(ctx context.Context) ([]service.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var models []service.ModelInfo
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		name := m.Name
		norm := name
		if i := strings.LastIndex(norm, "/"); i >= 0 {
			norm = norm[i+1:]
		}
		lower := strings.ToLower(norm)
		if !strings.HasPrefix(lower, "gemini") && !strings.HasPrefix(lower, "imagen") {
			continue
		}
		display := m.DisplayName
		if display == "" {
			display = norm
		}
		models = append(models, service.ModelInfo{
			Name:             name,
			DisplayName:      display,
			SupportedActions: m.SupportedActions,
		})
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].DisplayName < models[j].DisplayName
	})
	return models, nil
}
