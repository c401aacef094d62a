package assistantRepository

import (
	"context"
	"time"

	"ProjectAssistant/internal/entity"
	contextPkg "ProjectAssistant/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type ContextMemoryDB struct {
	ID        string    `db:"id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
}

type NoteDB struct {
	ID        string         `db:"id"`
	Content   string         `db:"content"`
	Tags      pq.StringArray `db:"tags"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type memoryRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

func (r *memoryRepository) CreateContextMemory(c context.Context, entry entity.ContextMemory) error {
	commandID := contextPkg.GetCommandID(c)

	query, args, err := sqlx.Named(queryCreateContextMemory, map[string]interface{}{
		"id":        entry.ID,
		"role":      entry.Role,
		"content":   entry.Content,
		"timestamp": entry.Timestamp,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateContextMemory named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateContextMemory execution err")
		return err
	}

	return nil
}

// GetRecentContext returns the newest limit entries, oldest first.
func (r *memoryRepository) GetRecentContext(c context.Context, limit int) ([]entity.ContextMemory, error) {
	return r.selectContext(c, queryGetRecentContext, map[string]interface{}{
		"limit": limit,
	}, "GetRecentContext")
}

func (r *memoryRepository) SearchContext(c context.Context, search string, limit int) ([]entity.ContextMemory, error) {
	return r.selectContext(c, querySearchContext, map[string]interface{}{
		"query": search,
		"limit": limit,
	}, "SearchContext")
}

func (r *memoryRepository) selectContext(c context.Context, named string, argsKV map[string]interface{}, op string) ([]entity.ContextMemory, error) {
	commandID := contextPkg.GetCommandID(c)
	var rows []ContextMemoryDB

	query, args, err := sqlx.Named(named, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error(op + " execution err")
		return nil, err
	}

	result := make([]entity.ContextMemory, 0, len(rows))
	for _, row := range rows {
		result = append(result, entity.ContextMemory{
			ID:        row.ID,
			Role:      row.Role,
			Content:   row.Content,
			Timestamp: row.Timestamp,
		})
	}
	return result, nil
}

func (r *memoryRepository) CreateNote(c context.Context, note entity.Note) error {
	commandID := contextPkg.GetCommandID(c)

	query, args, err := sqlx.Named(queryCreateNote, map[string]interface{}{
		"id":         note.ID,
		"content":    note.Content,
		"tags":       pq.Array(note.Tags),
		"created_at": note.CreatedAt,
		"updated_at": note.UpdatedAt,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateNote named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateNote execution err")
		return err
	}

	return nil
}

func (r *memoryRepository) SearchNotes(c context.Context, search string, limit int) ([]entity.Note, error) {
	commandID := contextPkg.GetCommandID(c)
	var rows []NoteDB

	query, args, err := sqlx.Named(querySearchNotes, map[string]interface{}{
		"query": search,
		"limit": limit,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("SearchNotes named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("SearchNotes execution err")
		return nil, err
	}

	result := make([]entity.Note, 0, len(rows))
	for _, row := range rows {
		result = append(result, entity.Note{
			ID:        row.ID,
			Content:   row.Content,
			Tags:      []string(row.Tags),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return result, nil
}
