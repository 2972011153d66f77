package providers

import (
	"context"
	"encoding/base64"
)

// Image is an inline image sent alongside the prompt
type Image struct {
	Data      []byte
	MediaType string
}

// Base64 returns the standard base64 encoding of the image bytes
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL
func (i *Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + i.Base64()
}

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Prompt      string

	// Image is nil for text-only requests
	Image *Image
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
