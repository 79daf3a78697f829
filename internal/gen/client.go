package gen

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/playroomlabs/partyroom/internal/dependencies/clock"
)

// ClientConfig holds gateway client settings
type ClientConfig struct {
	// QuotaPause is how long a model is paused after a quota error
	QuotaPause time.Duration
	// TextModels lists text models in preference order
	TextModels []ModelKind
	// ImageModels lists image models in preference order
	ImageModels []ModelKind
}

// DefaultClientConfig returns sensible defaults for the gateway client
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		QuotaPause:  30 * time.Second,
		TextModels:  []ModelKind{ModelTextPrimary, ModelTextFallback},
		ImageModels: []ModelKind{ModelImagePrimary, ModelImageFallback},
	}
}

// Client implements Gateway over an injected backend, applying the rate
// limiter and retrying quota failures on the next model in preference order
type Client struct {
	backend Backend
	limiter *Limiter
	clock   clock.Clock
	cfg     ClientConfig
	logger  *slog.Logger
}

// Ensure Client implements Gateway
var _ Gateway = (*Client)(nil)

// NewClient creates a gateway client
func NewClient(backend Backend, limiter *Limiter, clk clock.Clock, cfg ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		backend: backend,
		limiter: limiter,
		clock:   clk,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "gen-gateway")),
	}
}

// GenerateText requests free text, falling back across text models
func (c *Client) GenerateText(ctx context.Context, prompt, image string) (*TextResult, error) {
	var result *TextResult
	err := c.withFallback(ctx, c.cfg.TextModels, func(model ModelKind) error {
		res, err := c.backend.GenerateText(ctx, model, Request{Prompt: prompt, Image: image})
		if err != nil {
			return err
		}
		if res == nil || res.Text == "" {
			return ErrEmptyResult
		}
		result = res
		return nil
	})
	return result, err
}

// GenerateImage requests image bytes, falling back across image models
func (c *Client) GenerateImage(ctx context.Context, prompt, image string) (*ImageResult, error) {
	var result *ImageResult
	err := c.withFallback(ctx, c.cfg.ImageModels, func(model ModelKind) error {
		res, err := c.backend.GenerateImage(ctx, model, Request{Prompt: prompt, Image: image})
		if err != nil {
			return err
		}
		if res == nil || len(res.ImageData) == 0 {
			return ErrEmptyResult
		}
		result = res
		return nil
	})
	return result, err
}

// GenerateStructured requests structured text, falling back across text models
func (c *Client) GenerateStructured(ctx context.Context, prompt string) (*StructuredResult, error) {
	var result *StructuredResult
	err := c.withFallback(ctx, c.cfg.TextModels, func(model ModelKind) error {
		res, err := c.backend.GenerateStructured(ctx, model, Request{Prompt: prompt})
		if err != nil {
			return err
		}
		if res == nil || res.Text == "" {
			return ErrEmptyResult
		}
		result = res
		return nil
	})
	return result, err
}

// withFallback runs the attempt against each model in order. Quota errors
// pause the model and move on to the next; other errors return immediately.
func (c *Client) withFallback(ctx context.Context, models []ModelKind, attempt func(ModelKind) error) error {
	var lastErr error = ErrRateLimited
	for _, model := range models {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !c.limiter.TryAcquire(model) {
			lastErr = ErrRateLimited
			continue
		}

		err := attempt(model)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrQuotaExhausted) {
			until := c.clock.Now().Add(c.cfg.QuotaPause)
			c.limiter.MarkPaused(model, until)
			c.logger.Warn("model quota exhausted, trying alternate",
				slog.String("model", string(model)),
				slog.Time("paused_until", until),
			)
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}
