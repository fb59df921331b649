package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// OpenAI-compatible defaults.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIClient talks to any chat-completions endpoint compatible with
// the OpenAI API, including self-hosted gateways.
type OpenAIClient struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAI builds the ChatGPT-compatible summarisation processor.
// Options: svc_url, api_key (falls back to OPENAI_API_KEY), model_name,
// temperature, plus the shared scaffold keys.
func NewOpenAI(p config.Plugin) (pipeline.Processor, error) {
	client := &OpenAIClient{
		http:        &http.Client{},
		baseURL:     strings.TrimRight(p.Options.GetString("svc_url", DefaultOpenAIBaseURL), "/"),
		apiKey:      p.Options.GetString("api_key", os.Getenv("OPENAI_API_KEY")),
		model:       p.Options.GetString("model_name", DefaultOpenAIModel),
		temperature: p.Options.GetFloat("temperature", DefaultTemperature),
	}
	return newProcessor(p, client), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate performs one chat-completion call.
func (c *OpenAIClient) Generate(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat completions: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions: status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completions: no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}
