package executor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ProjectAssistant/internal/entity"
)

type TaskStore interface {
	CreateTask(ctx context.Context, task entity.Task) error
}

// ReminderActuator stores reminders and tasks in the task table.
type ReminderActuator struct {
	store TaskStore
	newID func() string
	now   func() time.Time
}

func NewReminderActuator(store TaskStore, newID func() string, now func() time.Time) *ReminderActuator {
	if now == nil {
		now = time.Now
	}
	return &ReminderActuator{store: store, newID: newID, now: now}
}

func (r *ReminderActuator) Execute(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	fallback := "Reminder"
	if intent.Action == entity.ActionCreateTask {
		fallback = "Task"
	}
	title := orDefault(intent.Parameters.Lookup("title"), intent.TargetOr(fallback))

	now := r.now()
	task := entity.Task{
		ID:        r.newID(),
		Title:     title,
		Notes:     intent.Parameters.Lookup("notes"),
		CreatedAt: now,
	}
	if raw := intent.Parameters.Lookup("dueDate"); raw != "" {
		if due, ok := ParseDueDate(raw, now); ok {
			task.DueDate = &due
		}
	}

	if err := r.store.CreateTask(ctx, task); err != nil {
		return entity.ExecutionResult{}, fmt.Errorf("create task: %w", err)
	}

	msg := "Reminder created: " + title
	if intent.Action == entity.ActionCreateTask {
		msg = "Task created: " + title
	}
	if task.DueDate != nil {
		msg += " (due " + task.DueDate.Format("Mon 2 Jan 15:04") + ")"
	}
	return entity.Success(msg), nil
}

var digits = regexp.MustCompile(`\d+`)

// ParseDueDate understands "tomorrow", "in N hours", "in N minutes" and
// RFC 3339 timestamps.
func ParseDueDate(raw string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))

	if lower == "tomorrow" {
		return now.AddDate(0, 0, 1), true
	}

	if strings.Contains(lower, "hour") || strings.Contains(lower, "minute") {
		n, err := strconv.Atoi(digits.FindString(lower))
		if err == nil {
			if strings.Contains(lower, "hour") {
				return now.Add(time.Duration(n) * time.Hour), true
			}
			return now.Add(time.Duration(n) * time.Minute), true
		}
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
		return t, true
	}
	return time.Time{}, false
}
