package assistantRepository

import (
	"context"

	"ProjectAssistant/internal/entity"
	contextPkg "ProjectAssistant/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type taskRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

func (r *taskRepository) CreateTask(c context.Context, task entity.Task) error {
	commandID := contextPkg.GetCommandID(c)

	query, args, err := sqlx.Named(queryCreateTask, map[string]interface{}{
		"id":           task.ID,
		"title":        task.Title,
		"notes":        task.Notes,
		"is_completed": task.IsCompleted,
		"due_date":     task.DueDate,
		"created_at":   task.CreatedAt,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateTask named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateTask execution err")
		return err
	}

	return nil
}
