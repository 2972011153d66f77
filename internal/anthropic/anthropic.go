package anthropic

import (
	"context"
	"os"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/providers"
	"github.com/rotisserie/eris"
)

// defaultMaxTokens matches the budget the labels were tuned against
const defaultMaxTokens = 1000

// Anthropic is a provider for the Anthropic Messages API
type Anthropic struct {
	client sdk.Client
	hasKey bool
}

// New returns a new Anthropic provider using ANTHROPIC_API_KEY
func New() *Anthropic {
	return NewWithOptions(os.Getenv("ANTHROPIC_API_KEY"))
}

// NewWithOptions returns a provider with an explicit key and extra request options.
// Retries are disabled: a failed call is reported once and never replayed.
func NewWithOptions(apiKey string, opts ...option.RequestOption) *Anthropic {
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &Anthropic{
		client: sdk.NewClient(all...),
		hasKey: apiKey != "",
	}
}

// ExtractText sends the prompt (and image, when present) as a single user turn
// and returns every text block of the reply joined by newlines.
func (a *Anthropic) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if !a.hasKey {
		return "", eris.New("ANTHROPIC_API_KEY environment variable not set")
	}

	maxTokens := int64(config.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(config.Model),
		MaxTokens:   maxTokens,
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(contentBlocks(config)...)},
		Temperature: sdk.Float(config.Temperature),
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", eris.Errorf("anthropic: no text content in response (stop_reason: %s)", msg.StopReason)
	}

	return strings.Join(texts, "\n"), nil
}

func contentBlocks(config providers.Config) []sdk.ContentBlockParamUnion {
	var blocks []sdk.ContentBlockParamUnion
	if config.Image != nil {
		blocks = append(blocks, sdk.NewImageBlockBase64(config.Image.MediaType, config.Image.Base64()))
	}
	return append(blocks, sdk.NewTextBlock(config.Prompt))
}
