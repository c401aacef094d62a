package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDSN(t *testing.T) {
	dsn := FormatDSN(Config{Host: "db", Port: "5433", User: "assistant", Password: "s3cret", Name: "memory", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=assistant password=s3cret dbname=memory sslmode=require", dsn)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("DB_MAX_CONNS", "4")

	cfg := ConfigFromEnv()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 4, cfg.MaxConns)
}

func TestMigrateAppliesSchema(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS command_logs").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), sqlx.NewDb(mockDB, "postgres")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
