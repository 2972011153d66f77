// Package extraction is the boundary to the vision/text model. It picks a
// provider, applies the instruction defaults, bounds every call with a
// timeout and reports each failure as a TransportError.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/anthropic"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/gemini"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/ollama"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/openai"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/providers"
	"golang.org/x/time/rate"
)

// ErrTransport is matched by every TransportError
var ErrTransport = errors.New("extraction request failed")

// TransportError reports that the model could not be reached or answered with nothing usable
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s via %s: %v", ErrTransport, e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Options configures a Service
type Options struct {
	Provider          string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
}

// Service sends label images and lookup queries to the configured model
type Service struct {
	provider providers.Provider
	opts     Options
	limiter  *rate.Limiter
}

// NewService builds a Service for the named provider
func NewService(opts Options) (*Service, error) {
	if opts.Provider == "" {
		opts.Provider = "anthropic"
	}
	p, err := NewProvider(opts.Provider)
	if err != nil {
		return nil, err
	}
	return NewServiceWithProvider(p, opts), nil
}

// NewServiceWithProvider wraps an already constructed provider
func NewServiceWithProvider(p providers.Provider, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}
	s := &Service{provider: p, opts: opts}
	if opts.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return s
}

// NewProvider returns the transport for a provider name
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "anthropic":
		return anthropic.New(), nil
	case "openai":
		return openai.New(), nil
	case "ollama":
		return ollama.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// Provider returns the configured provider name
func (s *Service) Provider() string {
	return s.opts.Provider
}

// Model returns the model requests are sent to
func (s *Service) Model() string {
	return s.opts.Model
}

// ExtractFromImage asks the model to read one label. A blank instruction
// falls back to DefaultInstruction.
func (s *Service) ExtractFromImage(ctx context.Context, image models.Image, instruction string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	return s.call(ctx, providers.Config{
		Prompt: instruction,
		Image:  &providers.Image{Data: image.Data, MediaType: image.MediaType},
	})
}

// Query sends a text-only instruction
func (s *Service) Query(ctx context.Context, instruction string) (string, error) {
	return s.call(ctx, providers.Config{Prompt: instruction})
}

func (s *Service) call(ctx context.Context, cfg providers.Config) (string, error) {
	cfg.Model = s.opts.Model
	cfg.Temperature = s.opts.Temperature
	cfg.MaxTokens = s.opts.MaxTokens

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", &TransportError{Provider: s.opts.Provider, Err: err}
		}
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.provider.ExtractText(ctx, cfg)
	if err != nil {
		return "", &TransportError{Provider: s.opts.Provider, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &TransportError{Provider: s.opts.Provider, Err: errors.New("empty response")}
	}

	slog.Debug("Model responded",
		"provider", s.opts.Provider,
		"model", s.opts.Model,
		"image", cfg.Image != nil,
		"length", len(text),
		"elapsed", time.Since(start))
	return text, nil
}
