package assistantService

import (
	"context"
	"time"

	assistantRepository "ProjectAssistant/internal/api/assistant/repository"
	"ProjectAssistant/internal/entity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	SearchLimit       = 10
	RecallMatches     = 3
	DefaultHistoryLen = 50
)

// IMemoryService is the persistent memory behind the pipeline: command log,
// short-term context, notes, registered shortcuts and tasks.
type IMemoryService interface {
	StoreCommandLog(ctx context.Context, cmd entity.Command, intent *entity.Intent, result *entity.ExecutionResult, audioURL string) error
	QueryContext(ctx context.Context, limit int) ([]string, error)
	Search(ctx context.Context, query string) ([]string, error)
	StoreNote(ctx context.Context, content string, tags []string) error
	FetchShortcuts(ctx context.Context) ([]entity.CatalogShortcut, error)
	StoreShortcut(ctx context.Context, shortcut entity.CatalogShortcut) error
	CreateTask(ctx context.Context, task entity.Task) error
	FetchRecentCommands(ctx context.Context, limit int) ([]entity.CommandLog, error)
}

type memoryService struct {
	log                 *logrus.Logger
	assistantRepository assistantRepository.Repository
	newID               func() string
	now                 func() time.Time
}

func NewMemoryService(log *logrus.Logger, ar assistantRepository.Repository) IMemoryService {
	return &memoryService{
		log:                 log,
		assistantRepository: ar,
		newID:               uuid.NewString,
		now:                 time.Now,
	}
}
