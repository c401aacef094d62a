package assistantRepository

import (
	"context"

	"ProjectAssistant/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		CommandLogs: &commandLogRepository{q: sqlExecutor, log: r.log},
		Memory:      &memoryRepository{q: sqlExecutor, log: r.log},
		Shortcuts:   &shortcutRepository{q: sqlExecutor, log: r.log},
		Tasks:       &taskRepository{q: sqlExecutor, log: r.log},
		Commit:      commitFunc,
		Rollback:    rollbackFunc,
	}, nil
}

type Client struct {
	CommandLogs interface {
		CreateCommandLog(ctx context.Context, log entity.CommandLog) error
		GetRecentCommandLogs(ctx context.Context, limit int) ([]entity.CommandLog, error)
	}

	Memory interface {
		CreateContextMemory(ctx context.Context, entry entity.ContextMemory) error
		GetRecentContext(ctx context.Context, limit int) ([]entity.ContextMemory, error)
		SearchContext(ctx context.Context, query string, limit int) ([]entity.ContextMemory, error)
		CreateNote(ctx context.Context, note entity.Note) error
		SearchNotes(ctx context.Context, query string, limit int) ([]entity.Note, error)
	}

	Shortcuts interface {
		CreateShortcut(ctx context.Context, shortcut entity.ShortcutRecord) error
		GetShortcuts(ctx context.Context) ([]entity.ShortcutRecord, error)
	}

	Tasks interface {
		CreateTask(ctx context.Context, task entity.Task) error
	}

	Commit   func() error
	Rollback func() error
}
