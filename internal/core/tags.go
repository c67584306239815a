package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/conduit/internal/utils/databaseutils"
	"github.com/siahsang/conduit/internal/utils/functional"
	"github.com/siahsang/conduit/models"
)

// registerTags records tag names in the tags catalog. It joins the transaction
// carried by ctx, if any.
func (c *Core) registerTags(ctx context.Context, tags []string) error {
	names := functional.Distinct(tags)
	if len(names) == 0 {
		return nil
	}

	// INSERT INTO tags (name) VALUES ($1), ($2), ...
	valueStrings := make([]string, 0, len(names))
	valueArgs := make([]any, 0, len(names))
	for i, name := range names {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d)", i+1))
		valueArgs = append(valueArgs, name)
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO tags (name)
		VALUES %s
		ON CONFLICT (name) DO NOTHING
	`, strings.Join(valueStrings, ", "))

	if _, err := databaseutils.Exec(c.sqlTemplate, ctx, insertSQL, valueArgs...); err != nil {
		return xerrors.Newf("failed to register tags: %w", err)
	}
	return nil
}

// ListTags returns every known tag name in alphabetical order.
func (c *Core) ListTags(ctx context.Context) ([]string, error) {
	tags, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, `SELECT id, name FROM tags ORDER BY name`, func(rows *sql.Rows) (*models.Tag, error) {
		tag := &models.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, xerrors.New(err)
		}
		return tag, nil
	})
	if err != nil {
		return nil, xerrors.New(err)
	}

	return functional.Map(tags, func(t *models.Tag) string { return t.Name }), nil
}

func scanTime(rows *sql.Rows) (time.Time, error) {
	var t time.Time
	if err := rows.Scan(&t); err != nil {
		return time.Time{}, xerrors.New(err)
	}
	return t, nil
}
