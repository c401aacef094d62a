package entity

import (
	"time"
)

type CommandLog struct {
	ID               string    `json:"id"`
	RawText          string    `json:"raw_text"`
	Source           string    `json:"source"`
	IntentAction     *string   `json:"intent_action,omitempty"`
	IntentTarget     *string   `json:"intent_target,omitempty"`
	IntentParameters *string   `json:"intent_parameters,omitempty"`
	IntentConfidence *float64  `json:"intent_confidence,omitempty"`
	ResultType       *string   `json:"result_type,omitempty"`
	ResultMessage    *string   `json:"result_message,omitempty"`
	AudioURL         *string   `json:"audio_url,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContextMemory struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ShortcutRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
