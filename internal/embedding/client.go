package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"image-search-service/internal/models"
)

// Client talks to the CLIP inference sidecar over HTTP. Model inference is
// slow relative to everything else in a request, so every call runs under
// the configured timeout; a timeout counts as the model being unavailable.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an embedding client for the given inference endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type imageRequest struct {
	ImageB64 string `json:"image_b64"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// ExtractImage converts image bytes into a fixed-length embedding vector.
//
// Error mapping: transport failures, timeouts and 5xx responses mean the
// extractor cannot serve any image and return ErrModelUnavailable; a 4xx
// means this particular image was rejected and returns ErrInvalidImage,
// which must not trip fallback mode.
func (c *Client) ExtractImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, models.ErrInvalidImage
	}

	body, err := json.Marshal(imageRequest{ImageB64: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings/image", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %v: %w", err, models.ErrModelUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("embedding service http %d: %s: %w", resp.StatusCode, raw, models.ErrModelUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("embedding service rejected image (http %d): %w", resp.StatusCode, models.ErrInvalidImage)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %v: %w", err, models.ErrModelUnavailable)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response empty: %w", models.ErrModelUnavailable)
	}

	return parsed.Embedding, nil
}

// Probe checks whether the inference sidecar has its model loaded.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding probe failed: %v: %w", err, models.ErrModelUnavailable)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding probe http %d: %w", resp.StatusCode, models.ErrModelUnavailable)
	}
	return nil
}
