package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// Ollama defaults.
const (
	DefaultOllamaBaseURL = "http://127.0.0.1:11434"
	DefaultOllamaModel   = "llama3.1"
	DefaultTemperature   = 0.2
)

// OllamaClient talks to a local Ollama server over its generate API.
type OllamaClient struct {
	http        *http.Client
	baseURL     string
	model       string
	temperature float64
}

var _ Client = (*OllamaClient)(nil)

// NewOllama builds the Ollama-backed summarisation processor.
// Options: ollama_svc_base_url, model_name, temperature, plus the
// shared overwrite / save_intermediate / fetch_timeout keys.
func NewOllama(p config.Plugin) (pipeline.Processor, error) {
	client := &OllamaClient{
		http:        &http.Client{},
		baseURL:     strings.TrimRight(p.Options.GetString("ollama_svc_base_url", DefaultOllamaBaseURL), "/"),
		model:       p.Options.GetString("model_name", DefaultOllamaModel),
		temperature: p.Options.GetFloat("temperature", DefaultTemperature),
	}
	return newProcessor(p, client), nil
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate performs one non-streaming completion call.
func (c *OllamaClient) Generate(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:   c.model,
		System:  system,
		Prompt:  user,
		Stream:  false,
		Options: map[string]any{"temperature": c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: status %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Response, nil
}
