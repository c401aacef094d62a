package assistantService

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"ProjectAssistant/internal/api/assistant"
	assistantRepository "ProjectAssistant/internal/api/assistant/repository"
	"ProjectAssistant/internal/entity"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMockMemory(t *testing.T) (*memoryService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger, _ := test.NewNullLogger()
	ids := 0
	return &memoryService{
		log:                 logger,
		assistantRepository: assistantRepository.New(sqlx.NewDb(mockDB, "postgres"), logger),
		newID: func() string {
			ids++
			return "ctx-" + string(rune('0'+ids))
		},
		now: func() time.Time { return fixedNow },
	}, mock
}

func TestStoreCommandLogWritesContextPair(t *testing.T) {
	s, mock := newMockMemory(t)

	cmd := entity.Command{
		ID:        "01HX",
		RawText:   "turn on the living room lights",
		Source:    entity.SourceTypedText,
		Timestamp: fixedNow,
	}
	intent := entity.Intent{Action: entity.ActionTurnOn, Target: entity.StringPtr("Living Room Lights"), Confidence: 0.95}
	result := entity.Success("Living Room Lights turned on")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO command_logs")).
		WithArgs("01HX", "turn on the living room lights", "typedText",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO context_memories")).
		WithArgs("ctx-1", "user", "turn on the living room lights", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO context_memories")).
		WithArgs("ctx-2", "assistant", "Living Room Lights turned on", fixedNow.Add(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.StoreCommandLog(context.Background(), cmd, &intent, &result, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCommandLogRollsBackOnFailure(t *testing.T) {
	s, mock := newMockMemory(t)
	result := entity.Failure("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO command_logs")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.StoreCommandLog(context.Background(), entity.Command{ID: "01HY", RawText: "hello"}, nil, &result, "")
	assert.ErrorIs(t, err, assistant.ErrStoreCommandLog)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMakeCommandLog(t *testing.T) {
	cmd := entity.Command{ID: "01HX", RawText: "dim the lamp", Source: entity.SourceVoiceNote, Timestamp: fixedNow}
	intent := entity.Intent{
		Action:     entity.ActionSetBrightness,
		Target:     entity.StringPtr("Lamp"),
		Parameters: entity.NewParameters("brightness", "30"),
		Confidence: 0.8,
	}
	result := entity.Failure("offline")

	entry, err := makeCommandLog(cmd, &intent, &result, "s3://bucket/2026/03/01/01HX.oga")
	require.NoError(t, err)

	assert.Equal(t, "voiceNote", entry.Source)
	assert.Equal(t, "setBrightness", *entry.IntentAction)
	assert.Equal(t, "Lamp", *entry.IntentTarget)
	assert.JSONEq(t, `{"brightness":"30"}`, *entry.IntentParameters)
	assert.Equal(t, 0.8, *entry.IntentConfidence)
	assert.Equal(t, "failure", *entry.ResultType)
	assert.Equal(t, "Sorry, that didn't work: offline", *entry.ResultMessage)
	assert.Equal(t, "s3://bucket/2026/03/01/01HX.oga", *entry.AudioURL)

	bare, err := makeCommandLog(cmd, nil, nil, "")
	require.NoError(t, err)
	assert.Nil(t, bare.IntentAction)
	assert.Nil(t, bare.ResultType)
	assert.Nil(t, bare.AudioURL)
}

func TestQueryContextFormatsRoles(t *testing.T) {
	s, mock := newMockMemory(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY timestamp ASC")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "content", "timestamp"}).
			AddRow("a", "user", "hello", fixedNow).
			AddRow("b", "assistant", "hi", fixedNow.Add(time.Second)))

	got, err := s.QueryContext(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"user: hello", "assistant: hi"}, got)
}

func TestSearchReturnsNotesBeforeContext(t *testing.T) {
	s, mock := newMockMemory(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notes")).
		WithArgs("garage", "garage", SearchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "tags", "created_at", "updated_at"}).
			AddRow("n1", "garage code is 1234", "{home}", fixedNow, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM context_memories")).
		WithArgs("garage", "garage", SearchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "content", "timestamp"}).
			AddRow("c1", "user", "the garage light is flaky", fixedNow))

	got, err := s.Search(context.Background(), "  garage ")
	require.NoError(t, err)
	assert.Equal(t, []string{"garage code is 1234", "the garage light is flaky"}, got)

	empty, err := s.Search(context.Background(), " ")
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRecentCommandsDefaultsLimit(t *testing.T) {
	s, mock := newMockMemory(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM command_logs")).
		WithArgs(DefaultHistoryLen).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raw_text", "source", "timestamp"}).
			AddRow("01HX", "hello", "typedText", fixedNow))

	got, err := s.FetchRecentCommands(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].RawText)
}
