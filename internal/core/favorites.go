package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/conduit/internal/utils/collectionutils"
	"github.com/siahsang/conduit/internal/utils/databaseutils"
	"github.com/siahsang/conduit/internal/utils/stringutils"
	"github.com/siahsang/conduit/models"
)

// IsFavoriteArticleByUser reports whether userID favorites the article. Anonymous
// viewers (userID 0) never do.
func (c *Core) IsFavoriteArticleByUser(ctx context.Context, articleID int64, userID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}

	const selectSQL = `
		SELECT EXISTS(
			SELECT 1 FROM favorites WHERE user_id = $1 AND article_id = $2
		)
	`
	isFavorite, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, selectSQL, scanBool, userID, articleID)
	if err != nil {
		return false, xerrors.New(err)
	}
	return isFavorite, nil
}

// FavoritedArticleIDs returns the subset of articleIDs favorited by userID.
func (c *Core) FavoritedArticleIDs(ctx context.Context, userID int64, articleIDs []int64) (map[int64]bool, error) {
	if userID == 0 || len(articleIDs) == 0 {
		return map[int64]bool{}, nil
	}

	placeholders, args := stringutils.INClause(articleIDs, 2)
	query := fmt.Sprintf(`
		SELECT article_id
		FROM favorites
		WHERE user_id = $1 AND article_id IN (%s)
	`, strings.Join(placeholders, ","))

	ids, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, scanInt64, append([]any{userID}, args...)...)
	if err != nil {
		return nil, xerrors.New(err)
	}

	return collectionutils.Associate(ids, func(id int64) (int64, bool) { return id, true }), nil
}

// AddFavorite marks the article as favorited by userID. Favoriting twice is a no-op.
func (c *Core) AddFavorite(ctx context.Context, slug string, userID int64) (*models.Article, error) {
	const insertSQL = `
		INSERT INTO favorites (user_id, article_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, article_id) DO NOTHING
	`
	const incrementSQL = `
		UPDATE articles SET favorites_count = favorites_count + 1
		WHERE id = $1
		RETURNING favorites_count
	`

	article, err := databaseutils.DoTransactionally(ctx, c.session, func(txCtx context.Context) (*models.Article, error) {
		article, err := c.getArticleBySlug(txCtx, slug)
		if err != nil {
			return nil, err
		}

		inserted, err := databaseutils.Exec(c.sqlTemplate, txCtx, insertSQL, userID, article.ID)
		if err != nil {
			return nil, xerrors.New(err)
		}
		if inserted == 1 {
			article.FavoritesCount, err = databaseutils.ExecuteSingleQuery(c.sqlTemplate, txCtx, incrementSQL, scanInt64, article.ID)
			if err != nil {
				return nil, xerrors.New(err)
			}
		}
		return article, nil
	})
	if err != nil {
		return nil, err
	}

	article.Favorited = true
	c.log.Info("Article favorited", "article_id", article.ID, "user_id", userID, "favorites_count", article.FavoritesCount)
	return article, nil
}

// RemoveFavorite drops userID's favorite of the article. Removing a missing favorite
// is a no-op.
func (c *Core) RemoveFavorite(ctx context.Context, slug string, userID int64) (*models.Article, error) {
	const deleteSQL = `
		DELETE FROM favorites WHERE user_id = $1 AND article_id = $2
	`
	const decrementSQL = `
		UPDATE articles SET favorites_count = GREATEST(favorites_count - 1, 0)
		WHERE id = $1
		RETURNING favorites_count
	`

	article, err := databaseutils.DoTransactionally(ctx, c.session, func(txCtx context.Context) (*models.Article, error) {
		article, err := c.getArticleBySlug(txCtx, slug)
		if err != nil {
			return nil, err
		}

		deleted, err := databaseutils.Exec(c.sqlTemplate, txCtx, deleteSQL, userID, article.ID)
		if err != nil {
			return nil, xerrors.New(err)
		}
		if deleted == 1 {
			article.FavoritesCount, err = databaseutils.ExecuteSingleQuery(c.sqlTemplate, txCtx, decrementSQL, scanInt64, article.ID)
			if err != nil {
				return nil, xerrors.New(err)
			}
		}
		return article, nil
	})
	if err != nil {
		return nil, err
	}

	article.Favorited = false
	c.log.Info("Article unfavorited", "article_id", article.ID, "user_id", userID, "favorites_count", article.FavoritesCount)
	return article, nil
}

// ReconcileFavoritesCount rewrites every favorites_count that drifted from the
// favorites relation and returns how many articles were corrected. The favorites
// table is held in SHARE mode for the recount, so in-flight favorite toggles
// commit before it starts and new ones wait until it ends.
func (c *Core) ReconcileFavoritesCount(ctx context.Context) (int64, error) {
	const lockSQL = `LOCK TABLE favorites IN SHARE MODE`
	const reconcileSQL = `
		UPDATE articles a
		SET favorites_count = COALESCE(f.cnt, 0)
		FROM articles src
		LEFT JOIN (
			SELECT article_id, count(*) AS cnt FROM favorites GROUP BY article_id
		) f ON f.article_id = src.id
		WHERE a.id = src.id AND a.favorites_count <> COALESCE(f.cnt, 0)
	`

	fixed, err := databaseutils.DoTransactionally(ctx, c.session, func(txCtx context.Context) (int64, error) {
		if _, err := databaseutils.Exec(c.sqlTemplate, txCtx, lockSQL); err != nil {
			return 0, xerrors.New(err)
		}
		fixed, err := databaseutils.Exec(c.sqlTemplate, txCtx, reconcileSQL)
		if err != nil {
			return 0, xerrors.New(err)
		}
		return fixed, nil
	})
	if err != nil {
		return 0, err
	}
	if fixed > 0 {
		c.log.Warn("Favorites count drift corrected", "articles", fixed)
	}
	return fixed, nil
}

func scanBool(rows *sql.Rows) (bool, error) {
	var v bool
	if err := rows.Scan(&v); err != nil {
		return false, xerrors.New(err)
	}
	return v, nil
}
