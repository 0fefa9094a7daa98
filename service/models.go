package service

import "context"

// ModelInfo is one entry of the model catalog shown to clients.
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName"`
	SupportedActions []string `json:"supportedActions"`
}

// ModelCatalog lists the models the backing API offers.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
