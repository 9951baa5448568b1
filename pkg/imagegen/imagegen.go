package imagegen

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Generator produces ad creatives through the OpenAI image API.
type Generator struct {
	client *openai.Client
	model  string
	size   string
}

// New creates a generator with the default model and size.
func New(client *openai.Client) *Generator {
	return &Generator{
		client: client,
		model:  openai.CreateImageModelDallE3,
		size:   openai.CreateImageSize1024x1024,
	}
}

// Generate renders one image for the prompt and returns its hosted URL.
// The URL is short-lived; callers are expected to persist the image via
// the storage uploader before publishing it anywhere.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		N:              1,
		Size:           g.size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("image generation returned no image")
	}
	return resp.Data[0].URL, nil
}
