package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// DefaultGeminiModel is used when the plugin table names no model.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient talks to the Gemini API. The underlying connection is
// established lazily on the first call so that building the pipeline
// never touches the network.
type GeminiClient struct {
	apiKey      string
	model       string
	temperature float32

	mu     sync.Mutex
	client *genai.Client
}

var _ Client = (*GeminiClient)(nil)

// NewGemini builds the Gemini-backed summarisation processor.
// Options: api_key (falls back to GEMINI_API_KEY), model_name,
// temperature, plus the shared scaffold keys.
func NewGemini(p config.Plugin) (pipeline.Processor, error) {
	apiKey := p.Options.GetString("api_key", os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("plugin %s: api_key is required", p.Name)
	}
	client := &GeminiClient{
		apiKey:      apiKey,
		model:       p.Options.GetString("model_name", DefaultGeminiModel),
		temperature: float32(p.Options.GetFloat("temperature", DefaultTemperature)),
	}
	return newProcessor(p, client), nil
}

// Generate performs one content-generation call.
func (c *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (c *GeminiClient) connect(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("connecting to gemini: %w", err)
	}
	c.client = client
	return client, nil
}
