package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

// ExtractText extracts text from the given prompt using Gemini
func (g *Gemini) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	if config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(config.MaxTokens))
	}

	parts := requestParts(config)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			texts = append(texts, string(txt))
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	return strings.Join(texts, "\n"), nil
}

// requestParts puts the image ahead of the instruction, as the other providers do
func requestParts(config providers.Config) []genai.Part {
	var parts []genai.Part
	if config.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: config.Image.MediaType, Data: config.Image.Data})
	}
	return append(parts, genai.Text(config.Prompt))
}
