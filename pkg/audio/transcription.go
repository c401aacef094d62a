package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrEmptyAudio = errors.New("audio payload is empty")
	ErrNotLoaded  = errors.New("transcriber not loaded")
)

// ITranscriber turns a voice note into text. Load and Unload bracket the
// period the pipeline is running.
type ITranscriber interface {
	Load(ctx context.Context) error
	Loaded() bool
	Unload()
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type TranscriptionService struct {
	client   *openai.Client
	model    string
	language string

	mu     sync.Mutex
	loaded bool
}

func NewTranscriptionService(apiKey, language string) *TranscriptionService {
	return NewTranscriptionServiceWithClient(openai.NewClient(apiKey), language)
}

func NewTranscriptionServiceWithClient(client *openai.Client, language string) *TranscriptionService {
	return &TranscriptionService{
		client:   client,
		model:    openai.Whisper1,
		language: language,
	}
}

func (t *TranscriptionService) Load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded {
		return nil
	}
	if _, err := t.client.GetModel(ctx, t.model); err != nil {
		return fmt.Errorf("whisper model unavailable: %w", err)
	}
	t.loaded = true
	return nil
}

func (t *TranscriptionService) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

func (t *TranscriptionService) Unload() {
	t.mu.Lock()
	t.loaded = false
	t.mu.Unlock()
}

// Transcribe returns the trimmed transcript. An empty string with a nil error
// means nothing intelligible was said.
func (t *TranscriptionService) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if !t.Loaded() {
		return "", ErrNotLoaded
	}

	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: "voice-note" + Extension(audio, mimeType),
		Reader:   bytes.NewReader(audio),
		Language: t.language,
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Text), nil
}

// Extension picks a file extension Whisper accepts. The declared MIME type
// wins when it is known, otherwise the payload is sniffed.
func Extension(audio []byte, mimeType string) string {
	if mimeType != "" {
		base, _, _ := strings.Cut(mimeType, ";")
		if m := mimetype.Lookup(strings.TrimSpace(base)); m != nil && m.Extension() != "" {
			return m.Extension()
		}
	}
	if ext := mimetype.Detect(audio).Extension(); ext != "" {
		return ext
	}
	return ".ogg"
}
