package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/providers"
)

const defaultURL = "https://api.openai.com/v1/chat/completions"

// OpenAI is a provider for OpenAI
type OpenAI struct {
	url    string
	apiKey string
	client *http.Client
}

// New returns a new OpenAI provider
func New() *OpenAI {
	return NewWithEndpoint(defaultURL, os.Getenv("OPENAI_API_KEY"))
}

// NewWithEndpoint returns a provider posting to a custom chat completions URL
func NewWithEndpoint(url, apiKey string) *OpenAI {
	return &OpenAI{url: url, apiKey: apiKey, client: &http.Client{}}
}

// ExtractText extracts text from the given prompt using OpenAI
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var content interface{} = config.Prompt
	if config.Image != nil {
		content = []map[string]interface{}{
			{
				"type": "image_url",
				"image_url": map[string]string{
					"url": config.Image.DataURL(),
				},
			},
			{
				"type": "text",
				"text": config.Prompt,
			},
		}
	}

	body := map[string]interface{}{
		"model": config.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": content,
			},
		},
		"temperature": config.Temperature,
	}
	if config.MaxTokens > 0 {
		body["max_tokens"] = config.MaxTokens
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}
