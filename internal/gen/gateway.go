// Package gen defines the generation gateway: the engines' boundary to the
// opaque text/image generation service, with per-model rate limiting and
// transparent fallback to an alternate model on quota errors.
package gen

import (
	"context"
	"encoding/json"
	"errors"
)

// ModelKind identifies a backend model for rate limiting purposes
type ModelKind string

const (
	ModelTextPrimary    ModelKind = "text-primary"
	ModelTextFallback   ModelKind = "text-fallback"
	ModelImagePrimary   ModelKind = "image-primary"
	ModelImageFallback  ModelKind = "image-fallback"
)

// Gateway errors
var (
	ErrQuotaExhausted = errors.New("model quota exhausted")
	ErrRateLimited    = errors.New("request rate limited")
	ErrEmptyResult    = errors.New("generation returned no usable payload")
)

// Request is a single generation request
type Request struct {
	Prompt string
	// Image is an optional opaque encoded reference image
	Image string
}

// TextResult is the payload of a successful text generation
type TextResult struct {
	Text string
}

// ImageResult is the payload of a successful image generation
type ImageResult struct {
	ImageData []byte
	Text      string // optional accompanying text
}

// StructuredResult is the payload of a structured text generation
type StructuredResult struct {
	Text string
	Data json.RawMessage
}

// Backend is the opaque generation service. Implementations may return
// ErrQuotaExhausted to signal per-model quota back-off.
type Backend interface {
	GenerateText(ctx context.Context, model ModelKind, req Request) (*TextResult, error)
	GenerateImage(ctx context.Context, model ModelKind, req Request) (*ImageResult, error)
	GenerateStructured(ctx context.Context, model ModelKind, req Request) (*StructuredResult, error)
}

// Gateway is the contract the game engines consume. All methods may fail;
// callers convert failures to per-item markers rather than aborting phases.
type Gateway interface {
	GenerateText(ctx context.Context, prompt, image string) (*TextResult, error)
	GenerateImage(ctx context.Context, prompt, image string) (*ImageResult, error)
	GenerateStructured(ctx context.Context, prompt string) (*StructuredResult, error)
}
