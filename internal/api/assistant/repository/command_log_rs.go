package assistantRepository

import (
	"context"
	"database/sql"
	"time"

	"ProjectAssistant/internal/entity"
	contextPkg "ProjectAssistant/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type CommandLogDB struct {
	ID               string          `db:"id"`
	RawText          string          `db:"raw_text"`
	Source           string          `db:"source"`
	IntentAction     sql.NullString  `db:"intent_action"`
	IntentTarget     sql.NullString  `db:"intent_target"`
	IntentParameters sql.NullString  `db:"intent_parameters"`
	IntentConfidence sql.NullFloat64 `db:"intent_confidence"`
	ResultType       sql.NullString  `db:"result_type"`
	ResultMessage    sql.NullString  `db:"result_message"`
	AudioURL         sql.NullString  `db:"audio_url"`
	Timestamp        time.Time       `db:"timestamp"`
}

type commandLogRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

func (r *commandLogRepository) CreateCommandLog(c context.Context, entry entity.CommandLog) error {
	commandID := contextPkg.GetCommandID(c)
	argsKV := map[string]interface{}{
		"id":                entry.ID,
		"raw_text":          entry.RawText,
		"source":            entry.Source,
		"intent_action":     entry.IntentAction,
		"intent_target":     entry.IntentTarget,
		"intent_parameters": entry.IntentParameters,
		"intent_confidence": entry.IntentConfidence,
		"result_type":       entry.ResultType,
		"result_message":    entry.ResultMessage,
		"audio_url":         entry.AudioURL,
		"timestamp":         entry.Timestamp,
	}

	query, args, err := sqlx.Named(queryCreateCommandLog, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateCommandLog named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Error("CreateCommandLog execution err")
		return err
	}

	return nil
}

func (r *commandLogRepository) GetRecentCommandLogs(c context.Context, limit int) ([]entity.CommandLog, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []CommandLogDB

	query, args, err := sqlx.Named(queryGetRecentCommandLogs, map[string]interface{}{
		"limit": limit,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecentCommandLogs named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecentCommandLogs execution err")
		return nil, err
	}

	result := make([]entity.CommandLog, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.makeCommandLog(row))
	}

	return result, nil
}

func (r *commandLogRepository) makeCommandLog(row CommandLogDB) entity.CommandLog {
	return entity.CommandLog{
		ID:               row.ID,
		RawText:          row.RawText,
		Source:           row.Source,
		IntentAction:     nullString(row.IntentAction),
		IntentTarget:     nullString(row.IntentTarget),
		IntentParameters: nullString(row.IntentParameters),
		IntentConfidence: nullFloat(row.IntentConfidence),
		ResultType:       nullString(row.ResultType),
		ResultMessage:    nullString(row.ResultMessage),
		AudioURL:         nullString(row.AudioURL),
		Timestamp:        row.Timestamp,
	}
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}
