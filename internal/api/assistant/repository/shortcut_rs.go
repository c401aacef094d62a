package assistantRepository

import (
	"context"
	"errors"
	"time"

	"ProjectAssistant/internal/api/assistant"
	"ProjectAssistant/internal/entity"
	contextPkg "ProjectAssistant/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

type ShortcutDB struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

type shortcutRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

func (r *shortcutRepository) CreateShortcut(c context.Context, shortcut entity.ShortcutRecord) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryCreateShortcut, map[string]interface{}{
		"id":          shortcut.ID,
		"name":        shortcut.Name,
		"description": shortcut.Description,
		"created_at":  shortcut.CreatedAt,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateShortcut named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"name":       shortcut.Name,
			}).Warn("CreateShortcut duplicate name")
			return assistant.ErrShortcutExists
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateShortcut execution err")
		return err
	}

	return nil
}

func (r *shortcutRepository) GetShortcuts(c context.Context) ([]entity.ShortcutRecord, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []ShortcutDB

	if err := r.q.SelectContext(c, &rows, queryGetShortcuts); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetShortcuts execution err")
		return nil, err
	}

	result := make([]entity.ShortcutRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, entity.ShortcutRecord{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
		})
	}
	return result, nil
}
