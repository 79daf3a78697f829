package gen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPBackendConfig holds settings for the HTTP generation backend
type HTTPBackendConfig struct {
	// BaseURL is the generation service endpoint
	BaseURL string
	// APIKey is sent as a bearer token when set
	APIKey string
	// Timeout bounds a single generation request
	Timeout time.Duration
}

// DefaultHTTPBackendConfig returns standard backend settings
func DefaultHTTPBackendConfig() HTTPBackendConfig {
	return HTTPBackendConfig{
		BaseURL: "http://localhost:9090",
		Timeout: 60 * time.Second,
	}
}

// HTTPBackend talks to a generation service over JSON HTTP. The service
// is opaque; this backend only maps transport and quota signals.
type HTTPBackend struct {
	cfg        HTTPBackendConfig
	httpClient *http.Client
}

// Ensure HTTPBackend implements the backend contract
var _ Backend = (*HTTPBackend)(nil)

// NewHTTPBackend creates a backend for the given service
func NewHTTPBackend(cfg HTTPBackendConfig) *HTTPBackend {
	return &HTTPBackend{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Image  string `json:"image,omitempty"`
	Mode   string `json:"mode"`
}

type generateResponse struct {
	Text  string          `json:"text"`
	Image string          `json:"image,omitempty"` // base64
	Data  json.RawMessage `json:"data,omitempty"`
}

// GenerateText requests a text completion
func (b *HTTPBackend) GenerateText(ctx context.Context, model ModelKind, req Request) (*TextResult, error) {
	resp, err := b.generate(ctx, model, req, "text")
	if err != nil {
		return nil, err
	}
	if resp.Text == "" {
		return nil, ErrEmptyResult
	}
	return &TextResult{Text: resp.Text}, nil
}

// GenerateImage requests an image
func (b *HTTPBackend) GenerateImage(ctx context.Context, model ModelKind, req Request) (*ImageResult, error) {
	resp, err := b.generate(ctx, model, req, "image")
	if err != nil {
		return nil, err
	}
	if resp.Image == "" {
		return nil, ErrEmptyResult
	}
	data, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return &ImageResult{ImageData: data, Text: resp.Text}, nil
}

// GenerateStructured requests a completion with a machine-parseable part
func (b *HTTPBackend) GenerateStructured(ctx context.Context, model ModelKind, req Request) (*StructuredResult, error) {
	resp, err := b.generate(ctx, model, req, "structured")
	if err != nil {
		return nil, err
	}
	if resp.Text == "" && len(resp.Data) == 0 {
		return nil, ErrEmptyResult
	}
	return &StructuredResult{Text: resp.Text, Data: resp.Data}, nil
}

func (b *HTTPBackend) generate(ctx context.Context, model ModelKind, req Request, mode string) (*generateResponse, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  string(model),
		Prompt: req.Prompt,
		Image:  req.Image,
		Mode:   mode,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusPaymentRequired, http.StatusForbidden:
		return nil, ErrQuotaExhausted
	default:
		return nil, fmt.Errorf("generation service returned %d", httpResp.StatusCode)
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding generation response: %w", err)
	}
	return &resp, nil
}
