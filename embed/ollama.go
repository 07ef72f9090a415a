package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
)

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// OllamaOption configures the Ollama embedder.
type OllamaOption func(*ollama)

// WithHTTPClient sets the HTTP client used for embedding requests.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(o *ollama) {
		if client != nil {
			o.client = client
		}
	}
}

type ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama returns a Func calling the /api/embeddings endpoint of an
// Ollama server. Returned vectors are normalised to unit length.
func NewOllama(baseURL, model string, opts ...OllamaOption) Func {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	o := &ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o.embed
}

func (o *ollama) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: ollama request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: ollama status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var decoded ollamaResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("embed: ollama response: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("embed: ollama returned an empty embedding for model %s", o.model)
	}
	vec := make([]float32, len(decoded.Embedding))
	for i, v := range decoded.Embedding {
		vec[i] = float32(v)
	}
	return Normalize(vec), nil
}
