package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"ProjectAssistant/pkg/nlp"
	jsoniter "github.com/json-iterator/go"
	"github.com/sashabaranov/go-openai"
)

var ErrNoChoices = errors.New("no response from ChatGPT")

// IChatGPT is a hosted intent generator. The grammar's JSON schema is sent
// as the response format so the reply is a single intent object.
type IChatGPT interface {
	nlp.Generator
}

type chatGPTService struct {
	client *openai.Client
	model  string

	mu     sync.Mutex
	loaded bool
}

func NewChatGPT() IChatGPT {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_CHAT_MODEL")

	if model == "" {
		model = openai.GPT4oMini
	}

	return NewChatGPTWithClient(openai.NewClient(apiKey), model)
}

func NewChatGPTWithClient(client *openai.Client, model string) IChatGPT {
	return &chatGPTService{
		client: client,
		model:  model,
	}
}

func (c *chatGPTService) Name() string {
	return "openai:" + c.model
}

// Load checks that the configured model is reachable with the current key.
func (c *chatGPTService) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}
	if _, err := c.client.GetModel(ctx, c.model); err != nil {
		return fmt.Errorf("ChatGPT model %s unavailable: %w", c.model, err)
	}
	c.loaded = true
	return nil
}

func (c *chatGPTService) Unload(context.Context) error {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
	return nil
}

func (c *chatGPTService) Generate(ctx context.Context, req nlp.GenerateRequest) (string, error) {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		return "", nlp.ErrEngineNotLoaded
	}

	schema, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(req.Grammar.Schema)
	if err != nil {
		return "", fmt.Errorf("encode response schema: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.User,
		},
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   req.Grammar.Name,
					Schema: rawSchema(schema),
					Strict: false,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("ChatGPT API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type rawSchema []byte

func (r rawSchema) MarshalJSON() ([]byte, error) {
	return r, nil
}
