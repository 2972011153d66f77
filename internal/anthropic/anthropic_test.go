package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "content": [
    {"type": "text", "text": "Here is what I found:"},
    {"type": "text", "text": "{\"Chemical Name\": \"Ethanol\"}"}
  ],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 10, "output_tokens": 20}
}`

func TestExtractTextJoinsTextBlocks(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content []struct {
				Type   string `json:"type"`
				Text   string `json:"text"`
				Source struct {
					Type      string `json:"type"`
					MediaType string `json:"media_type"`
					Data      string `json:"data"`
				} `json:"source"`
			} `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	}))
	defer server.Close()

	a := NewWithOptions("test-key", option.WithBaseURL(server.URL))
	text, err := a.ExtractText(context.Background(), providers.Config{
		Model:  "claude-sonnet-4-20250514",
		Prompt: "read the label",
		Image:  &providers.Image{Data: []byte("img"), MediaType: "image/jpeg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Here is what I found:\n{\"Chemical Name\": \"Ethanol\"}", text)

	assert.Equal(t, "claude-sonnet-4-20250514", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "image", got.Messages[0].Content[0].Type)
	assert.Equal(t, "base64", got.Messages[0].Content[0].Source.Type)
	assert.Equal(t, "image/jpeg", got.Messages[0].Content[0].Source.MediaType)
	assert.Equal(t, "aW1n", got.Messages[0].Content[0].Source.Data)
	assert.Equal(t, "text", got.Messages[0].Content[1].Type)
	assert.Equal(t, "read the label", got.Messages[0].Content[1].Text)
}

func TestExtractTextDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "api_error", "message": "boom"}}`))
	}))
	defer server.Close()

	a := NewWithOptions("test-key", option.WithBaseURL(server.URL))
	_, err := a.ExtractText(context.Background(), providers.Config{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExtractTextWithoutKey(t *testing.T) {
	_, err := NewWithOptions("").ExtractText(context.Background(), providers.Config{Prompt: "p"})
	require.Error(t, err)
}
