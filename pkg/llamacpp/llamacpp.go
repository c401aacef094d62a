package llamacpp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"ProjectAssistant/pkg/nlp"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "http://127.0.0.1:8080"

var (
	ErrServerNotReady = errors.New("llama.cpp server not ready")
	ErrEmptyResponse  = errors.New("llama.cpp returned empty content")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ILlama drives a local llama.cpp server. Sampling is constrained with the
// request grammar so output is always a single intent object.
type ILlama interface {
	nlp.Generator
}

type completionRequest struct {
	Prompt      string   `json:"prompt"`
	Grammar     string   `json:"grammar,omitempty"`
	NPredict    int      `json:"n_predict"`
	Temperature float32  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
	CachePrompt bool     `json:"cache_prompt"`
}

type completionResponse struct {
	Content         string `json:"content"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
	Timings         struct {
		PredictedMS float64 `json:"predicted_ms"`
	} `json:"timings"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type llamaClient struct {
	log     *logrus.Logger
	baseURL string
	apiKey  string
	client  *http.Client

	mu     sync.Mutex
	loaded bool
}

func New(log *logrus.Logger) ILlama {
	baseURL := os.Getenv("LLAMA_SERVER_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return NewWithClient(log, baseURL, os.Getenv("LLAMA_API_KEY"), &http.Client{Timeout: 30 * time.Second})
}

func NewWithClient(log *logrus.Logger, baseURL, apiKey string, client *http.Client) ILlama {
	return &llamaClient{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (l *llamaClient) Name() string {
	return "llama.cpp"
}

// Load waits for the server to report a loaded model.
func (l *llamaClient) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return nil
	}

	body, status, err := l.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrServerNotReady, status)
	}

	var health healthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to unmarshal health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("%w: %s", ErrServerNotReady, health.Status)
	}

	l.loaded = true
	return nil
}

// Unload only forgets readiness. The server process owns the model memory.
func (l *llamaClient) Unload(context.Context) error {
	l.mu.Lock()
	l.loaded = false
	l.mu.Unlock()
	return nil
}

func (l *llamaClient) Generate(ctx context.Context, req nlp.GenerateRequest) (string, error) {
	l.mu.Lock()
	loaded := l.loaded
	l.mu.Unlock()
	if !loaded {
		return "", nlp.ErrEngineNotLoaded
	}

	reqBody, err := json.Marshal(completionRequest{
		Prompt:      req.Prompt,
		Grammar:     req.Grammar.GBNF,
		NPredict:    req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        []string{"<|im_end|>"},
		CachePrompt: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, status, err := l.do(ctx, http.MethodPost, "/completion", reqBody)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("llama.cpp completion error: status %d: %s", status, strings.TrimSpace(string(body)))
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal completion: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"tokens_predicted": resp.TokensPredicted,
		"tokens_evaluated": resp.TokensEvaluated,
		"predicted_ms":     resp.Timings.PredictedMS,
	}).Debug("llama.cpp completion")

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (l *llamaClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
