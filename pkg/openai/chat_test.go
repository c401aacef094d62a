package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ProjectAssistant/pkg/nlp"
	jsoniter "github.com/json-iterator/go"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatGPTGenerateUsesJSONSchema(t *testing.T) {
	var body map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models/gpt-test", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"gpt-test","object":"model"}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, jsoniter.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"action\":\"recall\"}"},"finish_reason":"stop"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	c := NewChatGPTWithClient(openai.NewClientWithConfig(cfg), "gpt-test")
	ctx := context.Background()

	_, err := c.Generate(ctx, nlp.GenerateRequest{})
	assert.ErrorIs(t, err, nlp.ErrEngineNotLoaded)

	require.NoError(t, c.Load(ctx))
	out, err := c.Generate(ctx, nlp.GenerateRequest{
		System:      "rules",
		User:        "Parse this command: what did I note about taxes",
		Grammar:     nlp.IntentGrammar(),
		MaxTokens:   nlp.DefaultMaxTokens,
		Temperature: nlp.DefaultTemperature,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"recall"}`, out)

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "intent", schema["name"])
	assert.Contains(t, schema["schema"].(map[string]any)["properties"], "action")

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "rules", messages[0].(map[string]any)["content"])
}
