package assistantService

import (
	"context"
	"strings"

	"ProjectAssistant/internal/api/assistant"
	"ProjectAssistant/internal/entity"
	"ProjectAssistant/internal/reply"
	contextPkg "ProjectAssistant/pkg/context"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// StoreCommandLog writes the log row and the matching context entries in
// one transaction.
func (s *memoryService) StoreCommandLog(ctx context.Context, cmd entity.Command, intent *entity.Intent, result *entity.ExecutionResult, audioURL string) error {
	commandID := contextPkg.GetCommandID(ctx)

	repo, err := s.assistantRepository.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return err
	}
	defer func() {
		if err != nil {
			_ = repo.Rollback()
		}
	}()

	logEntry, err := makeCommandLog(cmd, intent, result, audioURL)
	if err != nil {
		return err
	}

	if err = repo.CommandLogs.CreateCommandLog(ctx, logEntry); err != nil {
		return assistant.ErrStoreCommandLog
	}

	now := s.now()
	if err = repo.Memory.CreateContextMemory(ctx, entity.ContextMemory{
		ID:        s.newID(),
		Role:      "user",
		Content:   cmd.RawText,
		Timestamp: now,
	}); err != nil {
		return assistant.ErrStoreCommandLog
	}

	if result != nil {
		if err = repo.Memory.CreateContextMemory(ctx, entity.ContextMemory{
			ID:        s.newID(),
			Role:      "assistant",
			Content:   reply.Format(*result),
			Timestamp: now.Add(1),
		}); err != nil {
			return assistant.ErrStoreCommandLog
		}
	}

	if err = repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("Failed to commit command log")
		return err
	}

	return nil
}

func makeCommandLog(cmd entity.Command, intent *entity.Intent, result *entity.ExecutionResult, audioURL string) (entity.CommandLog, error) {
	entry := entity.CommandLog{
		ID:        cmd.ID,
		RawText:   cmd.RawText,
		Source:    cmd.Source.String(),
		Timestamp: cmd.Timestamp,
	}
	if audioURL != "" {
		entry.AudioURL = &audioURL
	}

	if intent != nil {
		params, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(intent.Parameters)
		if err != nil {
			return entity.CommandLog{}, err
		}
		action := intent.Action.String()
		confidence := intent.Confidence
		entry.IntentAction = &action
		entry.IntentTarget = intent.Target
		entry.IntentParameters = &params
		entry.IntentConfidence = &confidence
	}

	if result != nil {
		kind := result.Kind.String()
		message := reply.Format(*result)
		entry.ResultType = &kind
		entry.ResultMessage = &message
	}

	return entry, nil
}

// QueryContext returns recent exchanges, oldest first, as "role: content".
func (s *memoryService) QueryContext(ctx context.Context, limit int) ([]string, error) {
	repo, err := s.assistantRepository.NewClient(false)
	if err != nil {
		return nil, err
	}

	entries, err := repo.Memory.GetRecentContext(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Role+": "+e.Content)
	}
	return out, nil
}

// Search returns matching notes first, then matching context entries.
func (s *memoryService) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	repo, err := s.assistantRepository.NewClient(false)
	if err != nil {
		return nil, err
	}

	notes, err := repo.Memory.SearchNotes(ctx, query, SearchLimit)
	if err != nil {
		return nil, err
	}
	contexts, err := repo.Memory.SearchContext(ctx, query, SearchLimit)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(notes)+len(contexts))
	for _, n := range notes {
		out = append(out, n.Content)
	}
	for _, c := range contexts {
		out = append(out, c.Content)
	}
	return out, nil
}

func (s *memoryService) StoreNote(ctx context.Context, content string, tags []string) error {
	repo, err := s.assistantRepository.NewClient(false)
	if err != nil {
		return err
	}

	if tags == nil {
		tags = []string{}
	}
	now := s.now()
	return repo.Memory.CreateNote(ctx, entity.Note{
		ID:        s.newID(),
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *memoryService) FetchShortcuts(ctx context.Context) ([]entity.CatalogShortcut, error) {
	repo, err := s.assistantRepository.NewClient(false)
	if err != nil {
		return nil, err
	}

	records, err := repo.Shortcuts.GetShortcuts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]entity.CatalogShortcut, 0, len(records))
	for _, r := range records {
		out = append(out, entity.CatalogShortcut{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	return out, nil
}

func (s *memoryService) StoreShortcut(ctx context.Context, shortcut entity.CatalogShortcut) error {
	repo, err := s.assistantRepository.NewClient(false)
	if err != nil {
		return err
	}

	id := shortcut.ID
	if id == "" {
		id = s.newID()
	}
	return repo.Shortcuts.CreateShortcut(ctx, entity.ShortcutRecord{
		ID:          id,
		Name:        shortcut.Name,
		Description: shortcut.Description,
		CreatedAt:   s.now(),
	})
}

func (s *memoryService) CreateTask(ctx context.Context, task entity.Task) error {
	repo, err := s.assistantRepository.NewClient(false)
	if err != nil {
		return err
	}

	if task.ID == "" {
		task.ID = s.newID()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	return repo.Tasks.CreateTask(ctx, task)
}

func (s *memoryService) FetchRecentCommands(ctx context.Context, limit int) ([]entity.CommandLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLen
	}

	repo, err := s.assistantRepository.NewClient(false)
	if err != nil {
		return nil, err
	}
	return repo.CommandLogs.GetRecentCommandLogs(ctx, limit)
}
