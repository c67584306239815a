package core

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/conduit/internal/auth"
	"github.com/siahsang/conduit/internal/utils/databaseutils"
)

const uniqueViolation pq.ErrorCode = "23505"

type Core struct {
	log         *slog.Logger
	db          *sql.DB
	sqlTemplate *databaseutils.SQLTemplate
	session     databaseutils.Session
	hasher      auth.PasswordHasher
	slugSuffix  func() string
}

func NewCore(dbConn *sql.DB, log *slog.Logger, hasher auth.PasswordHasher, queryTimeout time.Duration) *Core {
	return &Core{
		log:         log,
		db:          dbConn,
		sqlTemplate: databaseutils.NewSQLTemplate(dbConn, queryTimeout),
		session:     databaseutils.NewSession(dbConn, log),
		hasher:      hasher,
		slugSuffix:  randomSlugSuffix,
	}
}

// Ping reports whether the database is reachable.
func (c *Core) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.sqlTemplate.Timeout)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return xerrors.New(err)
	}
	return nil
}

// violatedConstraint returns the constraint name of a unique violation.
func violatedConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
