package databaseutils

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func scanName(rows *sql.Rows) (string, error) {
	var name string
	err := rows.Scan(&name)
	return name, err
}

func TestDoTransactionally_CommitsAndJoinsNestedCalls(t *testing.T) {
	db, mock := newMock(t)
	session := NewSession(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tmpl := NewSQLTemplate(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tags")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM tags")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("go"))
	mock.ExpectCommit()

	name, err := DoTransactionally(context.Background(), session, func(txCtx context.Context) (string, error) {
		if _, err := Exec(tmpl, txCtx, "INSERT INTO tags (name) VALUES ($1)", "go"); err != nil {
			return "", err
		}
		// a nested call reuses the outer transaction instead of opening a new one
		return DoTransactionally(txCtx, session, func(innerCtx context.Context) (string, error) {
			return ExecuteSingleQuery(tmpl, innerCtx, "SELECT name FROM tags", scanName)
		})
	})

	require.NoError(t, err)
	assert.Equal(t, "go", name)
}

func TestDoTransactionally_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	session := NewSession(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := session.DoTransactionally(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestExecuteSingleQuery_NoRows(t *testing.T) {
	db, mock := newMock(t)
	tmpl := NewSQLTemplate(db, time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM tags")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := ExecuteSingleQuery(tmpl, context.Background(), "SELECT name FROM tags", scanName)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetSQLExecutor_FallsBackToPool(t *testing.T) {
	db, _ := newMock(t)
	assert.Same(t, db, GetSQLExecutor(context.Background(), db))
}
