package executor

import (
	"context"
	"fmt"
	"strings"

	"ProjectAssistant/internal/entity"
)

type NoteStore interface {
	StoreNote(ctx context.Context, content string, tags []string) error
}

type NoteActuator struct {
	store NoteStore
}

func NewNoteActuator(store NoteStore) *NoteActuator {
	return &NoteActuator{store: store}
}

func (n *NoteActuator) Execute(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	if intent.Action != entity.ActionCreateNote && intent.Action != entity.ActionRemember {
		return entity.Failure("notes do not handle " + intent.Action.String()), nil
	}

	content := orDefault(intent.Parameters.Lookup("content"), intent.TargetOr(""))
	if content == "" {
		return entity.Failure("No content to save"), nil
	}

	if err := n.store.StoreNote(ctx, content, splitTags(intent.Parameters.Lookup("tags"))); err != nil {
		return entity.ExecutionResult{}, fmt.Errorf("store note: %w", err)
	}
	return entity.Success("Noted: " + content), nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
