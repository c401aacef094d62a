package gemini

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"ProjectAssistant/pkg/nlp"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	ErrMissingAPIKey    = errors.New("gemini API key is required")
	ErrNoResponse       = errors.New("no response from Gemini API")
	ErrUnexpectedFormat = errors.New("unexpected response format from Gemini API")
)

// IGemini generates intents with a Gemini model constrained to JSON output.
type IGemini interface {
	nlp.Generator
	Close()
}

type geminiClient struct {
	apiKey    string
	modelName string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiClient() (IGemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &geminiClient{
		apiKey:    apiKey,
		modelName: modelName,
	}, nil
}

func (g *geminiClient) Name() string {
	return "gemini:" + g.modelName
}

func (g *geminiClient) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return err
	}
	g.client = client
	return nil
}

func (g *geminiClient) Unload(context.Context) error {
	g.Close()
	return nil
}

func (g *geminiClient) Generate(ctx context.Context, req nlp.GenerateRequest) (string, error) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		return "", nlp.ErrEngineNotLoaded
	}

	model := client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = IntentSchema()
	model.SetTemperature(req.Temperature)
	model.SetMaxOutputTokens(int32(req.MaxTokens))

	res, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoResponse
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		text, ok := part.(genai.Text)
		if !ok {
			return "", ErrUnexpectedFormat
		}
		sb.WriteString(string(text))
	}

	return strings.TrimSpace(sb.String()), nil
}

func (g *geminiClient) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		g.client.Close()
		g.client = nil
	}
}
