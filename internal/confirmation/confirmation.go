package confirmation

import (
	"sync"
	"time"

	"ProjectAssistant/internal/entity"
	"ProjectAssistant/internal/reply"
	"github.com/google/uuid"
)

const DefaultTTL = 120 * time.Second

// Engine holds at most one pending confirmation. Expiry is evaluated lazily
// on every access.
type Engine struct {
	mu      sync.Mutex
	pending *entity.PendingConfirmation
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Engine)

func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check returns nil when the intent may run immediately. Otherwise it
// replaces any pending confirmation and returns the gating result.
func (e *Engine) Check(intent entity.Intent) *entity.ExecutionResult {
	if !intent.RequiresConfirmation {
		return nil
	}

	prompt := reply.ConfirmationPrompt(intent)
	now := e.now()

	e.mu.Lock()
	e.pending = &entity.PendingConfirmation{
		ID:        uuid.NewString(),
		Intent:    intent,
		Prompt:    prompt,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}
	e.mu.Unlock()

	result := entity.ConfirmationRequired(prompt, intent)
	return &result
}

// HandleConfirmation consumes the pending slot. The stored intent is
// returned only when confirmed and not expired.
func (e *Engine) HandleConfirmation(confirmed bool) (entity.Intent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := e.livePendingLocked()
	e.pending = nil
	if pending == nil || !confirmed {
		return entity.Intent{}, false
	}
	return pending.Intent, true
}

func (e *Engine) CurrentPending() (entity.PendingConfirmation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := e.livePendingLocked()
	if pending == nil {
		return entity.PendingConfirmation{}, false
	}
	return *pending, true
}

func (e *Engine) Clear() {
	e.mu.Lock()
	e.pending = nil
	e.mu.Unlock()
}

func (e *Engine) livePendingLocked() *entity.PendingConfirmation {
	if e.pending == nil {
		return nil
	}
	if e.pending.ExpiredAt(e.now()) {
		e.pending = nil
		return nil
	}
	return e.pending
}
