package postgres

import (
	"context"
	"errors"
	"io"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_init.sql":  {Data: []byte("CREATE TABLE accounts (id UUID)")},
		"migrations/002_extra.sql": {Data: []byte("CREATE TABLE extras (id UUID)")},
		"migrations/README.md":     {Data: []byte("ignored")},
	}
}

func TestMigrate_AppliesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("migrations/001_init.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("migrations/002_extra.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE extras").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("migrations/002_extra.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := migrate(context.Background(), mock, testMigrations(), zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("migrations/001_init.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE accounts").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := migrate(context.Background(), mock, testMigrations(), zerolog.New(io.Discard))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "001_init.sql")
	assert.Equal(t, 0, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationFiles_Embedded(t *testing.T) {
	body, err := migrationFiles.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS accounts")
	assert.Contains(t, string(body), "ledger_entries")
	assert.Contains(t, string(body), "idempotency_logs")
}
