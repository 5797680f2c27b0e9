package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"image-search-service/internal/models"
)

// Match is one nearest-neighbor hit: the external product id stored with the
// vector and its similarity. Similarity follows "higher is better" in [0,1]:
// Pinecone reports cosine similarity for this index, clamped into [0,1].
// Clamping is monotonic, so relative ordering is preserved.
type Match struct {
	ProductID  string
	Similarity float64
}

// Vector is an embedding keyed by external product id.
type Vector struct {
	ID     string    `json:"id"`
	Values []float32 `json:"values"`
}

// Config holds Pinecone connection settings. IndexHost may be left empty;
// the client resolves it through the control plane on first use.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	IndexName  string
	IndexHost  string
	Namespace  string
	Timeout    time.Duration
}

// Client is a minimal Pinecone REST client covering the query, upsert and
// delete operations this service needs.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu   sync.Mutex
	host string
}

// NewClient creates a Pinecone client.
func NewClient(cfg Config) (*Client, error) {
	// A missing API key is not a construction error: the backend is a
	// degradable collaborator, so auth failures surface per call as
	// ErrIndexUnavailable and keep the service in fallback mode.
	if strings.TrimSpace(cfg.IndexName) == "" {
		return nil, fmt.Errorf("missing Pinecone index name")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2025-01"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		host:       strings.TrimSpace(cfg.IndexHost),
	}, nil
}

type queryRequest struct {
	Namespace       string    `json:"namespace,omitempty"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeValues   bool      `json:"includeValues"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryMatch struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

// Query returns up to topK nearest neighbors of the given vector, highest
// similarity first. The caller always supplies topK.
func (c *Client) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	host, err := c.indexHost(ctx)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	err = c.doJSON(ctx, http.MethodPost, "https://"+host+"/query", queryRequest{
		Namespace: c.cfg.Namespace,
		Vector:    vector,
		TopK:      topK,
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, Match{ProductID: m.ID, Similarity: clamp01(m.Score)})
	}
	return out, nil
}

type upsertRequest struct {
	Namespace string   `json:"namespace,omitempty"`
	Vectors   []Vector `json:"vectors"`
}

// Upsert writes embedding vectors into the index.
func (c *Client) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	host, err := c.indexHost(ctx)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "https://"+host+"/vectors/upsert", upsertRequest{
		Namespace: c.cfg.Namespace,
		Vectors:   vectors,
	}, nil)
}

type deleteRequest struct {
	Namespace string   `json:"namespace,omitempty"`
	IDs       []string `json:"ids"`
}

// DeleteIDs removes vectors for the given external product ids.
func (c *Client) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	host, err := c.indexHost(ctx)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "https://"+host+"/vectors/delete", deleteRequest{
		Namespace: c.cfg.Namespace,
		IDs:       ids,
	}, nil)
}

// Probe checks connectivity via the control plane and caches the data-plane
// host it reports.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.describeIndex(ctx)
	return err
}

type indexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool `json:"ready"`
	} `json:"status"`
}

func (c *Client) describeIndex(ctx context.Context) (string, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/indexes/" + c.cfg.IndexName

	var desc indexDescription
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &desc); err != nil {
		return "", err
	}
	if strings.TrimSpace(desc.Host) == "" {
		return "", fmt.Errorf("describe index returned empty host: %w", models.ErrIndexUnavailable)
	}

	c.mu.Lock()
	c.host = desc.Host
	c.mu.Unlock()
	return desc.Host, nil
}

func (c *Client) indexHost(ctx context.Context) (string, error) {
	c.mu.Lock()
	host := c.host
	c.mu.Unlock()
	if host != "" {
		return host, nil
	}
	return c.describeIndex(ctx)
}

func (c *Client) doJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal pinecone request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build pinecone request: %w", err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Pinecone-Api-Version", c.cfg.APIVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %v: %w", err, models.ErrIndexUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone http %d: %s: %w", resp.StatusCode, raw, models.ErrIndexUnavailable)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode pinecone response: %v: %w", err, models.ErrIndexUnavailable)
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
