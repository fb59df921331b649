package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslookout/newslookout/internal/config"
)

func TestOllamaClient(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		var got ollamaRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/generate", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			fmt.Fprint(w, `{"response": "model answer"}`)
		}))
		t.Cleanup(srv.Close)

		client := &OllamaClient{
			http:        srv.Client(),
			baseURL:     srv.URL,
			model:       "llama3.1",
			temperature: 0.3,
		}

		answer, err := client.Generate(context.Background(), "system ctx", "user prompt")
		require.NoError(t, err)

		assert.Equal(t, "model answer", answer)
		assert.Equal(t, "llama3.1", got.Model)
		assert.Equal(t, "system ctx", got.System)
		assert.Equal(t, "user prompt", got.Prompt)
		assert.False(t, got.Stream)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"error": "model not found"}`)
		}))
		t.Cleanup(srv.Close)

		client := &OllamaClient{http: srv.Client(), baseURL: srv.URL, model: "missing"}

		_, err := client.Generate(context.Background(), "s", "u")
		assert.ErrorContains(t, err, "model not found")
	})
}

func TestOpenAIClient(t *testing.T) {
	t.Run("round trip with auth header", func(t *testing.T) {
		var got chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "model answer"}}]}`)
		}))
		t.Cleanup(srv.Close)

		client := &OpenAIClient{
			http:    srv.Client(),
			baseURL: srv.URL,
			apiKey:  "sk-test",
			model:   "gpt-4o-mini",
		}

		answer, err := client.Generate(context.Background(), "system ctx", "user prompt")
		require.NoError(t, err)

		assert.Equal(t, "model answer", answer)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, chatMessage{Role: "system", Content: "system ctx"}, got.Messages[0])
		assert.Equal(t, chatMessage{Role: "user", Content: "user prompt"}, got.Messages[1])
	})

	t.Run("api error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": {"message": "invalid key"}}`)
		}))
		t.Cleanup(srv.Close)

		client := &OpenAIClient{http: srv.Client(), baseURL: srv.URL, model: "gpt-4o-mini"}

		_, err := client.Generate(context.Background(), "s", "u")
		assert.ErrorContains(t, err, "invalid key")
	})
}

func TestFactories(t *testing.T) {
	t.Run("ollama factory reads its options", func(t *testing.T) {
		p, err := NewOllama(config.Plugin{Name: "mod_summarize_ollama", Type: config.TypeProcessor, Options: config.Options{
			"ollama_svc_base_url": "http://host.example:11434/",
			"model_name":          "mistral",
		}})
		require.NoError(t, err)
		assert.Equal(t, "mod_summarize_ollama", p.Name())
	})

	t.Run("gemini factory requires an api key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		_, err := NewGemini(config.Plugin{Name: "mod_summarize_gemini", Type: config.TypeProcessor, Options: config.Options{}})
		assert.Error(t, err)
	})

	t.Run("gemini factory accepts a configured key", func(t *testing.T) {
		p, err := NewGemini(config.Plugin{Name: "mod_summarize_gemini", Type: config.TypeProcessor, Options: config.Options{
			"api_key": "test-key",
		}})
		require.NoError(t, err)
		assert.Equal(t, "mod_summarize_gemini", p.Name())
	})
}
