package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/lib/pq"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/conduit/internal/auth"
	"github.com/siahsang/conduit/internal/filter"
	"github.com/siahsang/conduit/internal/utils/collectionutils"
	"github.com/siahsang/conduit/internal/utils/databaseutils"
	"github.com/siahsang/conduit/internal/utils/functional"
	"github.com/siahsang/conduit/internal/utils/stringutils"
	"github.com/siahsang/conduit/models"
)

var (
	ErrDuplicatedSlug   = xerrors.Message("Duplicate slug")
	ErrNotArticleAuthor = xerrors.Message("The user is not author")
)

const (
	maxSlugAttempts = 3
	slugSuffixLen   = 6
	base36Alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
)

type NewArticle struct {
	Title       string
	Description string
	Body        string
	TagList     []string
}

// ArticlePatch carries the article fields to change; nil fields are left untouched.
type ArticlePatch struct {
	Title       *string
	Description *string
	Body        *string
	TagList     *[]string
}

type ArticleList struct {
	Articles      []*models.Article
	ArticlesCount int64
}

const articleSelect = `
		SELECT a.id, a.slug, a.title, a.description, a.body, a.tag_list, a.favorites_count,
		       a.created_at, a.updated_at, u.id, u.username, u.bio, u.image
		FROM articles a
		JOIN users u ON u.id = a.author_id
`

func scanArticle(rows *sql.Rows) (*models.Article, error) {
	article := &models.Article{}
	if err := rows.Scan(
		&article.ID,
		&article.Slug,
		&article.Title,
		&article.Description,
		&article.Body,
		pq.Array(&article.TagList),
		&article.FavoritesCount,
		&article.CreatedAt,
		&article.UpdatedAt,
		&article.Author.ID,
		&article.Author.Username,
		&article.Author.Bio,
		&article.Author.Image,
	); err != nil {
		return nil, xerrors.New(err)
	}

	article.AuthorID = article.Author.ID
	if article.TagList == nil {
		article.TagList = []string{}
	}
	return article, nil
}

func articleWriteError(err error) error {
	if constraint, ok := violatedConstraint(err); ok && constraint == "articles_slug_key" {
		return xerrors.New(ErrDuplicatedSlug)
	}
	return xerrors.New(err)
}

// CreateSlug derives "<slugified title>-<6 base36 chars>" from title.
func (c *Core) CreateSlug(title string) string {
	slug := stringutils.Slugify(title)
	if slug == "" {
		return c.slugSuffix()
	}
	return slug + "-" + c.slugSuffix()
}

func randomSlugSuffix() string {
	var b strings.Builder
	b.Grow(slugSuffixLen)
	for range slugSuffixLen {
		b.WriteByte(base36Alphabet[rand.IntN(len(base36Alphabet))])
	}
	return b.String()
}

func normalizeTags(tags []string) []string {
	return functional.Map(tags, strings.TrimSpace)
}

// CreateArticle stores a new article authored by author. A slug collision is
// retried with a fresh suffix.
func (c *Core) CreateArticle(ctx context.Context, author *auth.User, newArticle NewArticle) (*models.Article, error) {
	tagList := normalizeTags(newArticle.TagList)

	const insertSQL = `
		INSERT INTO articles (slug, title, description, body, tag_list, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, slug, title, description, body, favorites_count, created_at, updated_at
	`

	for attempt := 1; ; attempt++ {
		slug := c.CreateSlug(newArticle.Title)

		article, err := databaseutils.DoTransactionally(ctx, c.session, func(txCtx context.Context) (*models.Article, error) {
			if err := c.registerTags(txCtx, tagList); err != nil {
				return nil, err
			}

			args := []any{slug, newArticle.Title, newArticle.Description, newArticle.Body, pq.Array(tagList), author.ID}
			article, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, txCtx, insertSQL, func(rows *sql.Rows) (*models.Article, error) {
				article := &models.Article{}
				if err := rows.Scan(&article.ID, &article.Slug, &article.Title, &article.Description, &article.Body,
					&article.FavoritesCount, &article.CreatedAt, &article.UpdatedAt); err != nil {
					return nil, xerrors.New(err)
				}
				return article, nil
			}, args...)
			if err != nil {
				return nil, articleWriteError(err)
			}
			return article, nil
		})

		if err != nil {
			if errors.Is(err, ErrDuplicatedSlug) && attempt < maxSlugAttempts {
				c.log.Warn("Slug collision, retrying", "slug", slug, "attempt", attempt)
				continue
			}
			return nil, err
		}

		article.TagList = tagList
		article.AuthorID = author.ID
		article.Author = models.Profile{
			ID:       author.ID,
			Username: author.Username,
			Bio:      author.Bio,
			Image:    author.Image,
		}
		c.log.Info("Article created", "article_id", article.ID, "slug", article.Slug, "author_id", author.ID)
		return article, nil
	}
}

func (c *Core) getArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	article, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, articleSelect+` WHERE a.slug = $1`, scanArticle, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(ErrRecordNotFound)
		}
		return nil, xerrors.New(err)
	}
	return article, nil
}

// GetArticle returns the article with the given slug. viewerID 0 means anonymous.
func (c *Core) GetArticle(ctx context.Context, slug string, viewerID int64) (*models.Article, error) {
	article, err := c.getArticleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	article.Favorited, err = c.IsFavoriteArticleByUser(ctx, article.ID, viewerID)
	if err != nil {
		return nil, err
	}
	return article, nil
}

// UpdateArticle applies patch to the article if requesterID is its author. A new
// title regenerates the slug.
func (c *Core) UpdateArticle(ctx context.Context, slug string, requesterID int64, patch ArticlePatch) (*models.Article, error) {
	const updateSQL = `
		UPDATE articles
		SET slug = $1, title = $2, description = $3, body = $4, tag_list = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	for attempt := 1; ; attempt++ {
		article, err := databaseutils.DoTransactionally(ctx, c.session, func(txCtx context.Context) (*models.Article, error) {
			article, err := c.getArticleBySlug(txCtx, slug)
			if err != nil {
				return nil, err
			}
			if article.AuthorID != requesterID {
				return nil, xerrors.New(ErrNotArticleAuthor)
			}

			if patch.Title != nil {
				article.Title = *patch.Title
				article.Slug = c.CreateSlug(*patch.Title)
			}
			if patch.Description != nil {
				article.Description = *patch.Description
			}
			if patch.Body != nil {
				article.Body = *patch.Body
			}
			if patch.TagList != nil {
				article.TagList = normalizeTags(*patch.TagList)
				if err := c.registerTags(txCtx, article.TagList); err != nil {
					return nil, err
				}
			}

			args := []any{article.Slug, article.Title, article.Description, article.Body, pq.Array(article.TagList), article.ID}
			article.UpdatedAt, err = databaseutils.ExecuteSingleQuery(c.sqlTemplate, txCtx, updateSQL, scanTime, args...)
			if err != nil {
				return nil, articleWriteError(err)
			}
			return article, nil
		})

		if err != nil {
			if errors.Is(err, ErrDuplicatedSlug) && patch.Title != nil && attempt < maxSlugAttempts {
				c.log.Warn("Slug collision, retrying", "slug", slug, "attempt", attempt)
				continue
			}
			return nil, err
		}

		article.Favorited, err = c.IsFavoriteArticleByUser(ctx, article.ID, requesterID)
		if err != nil {
			return nil, err
		}
		c.log.Info("Article updated", "article_id", article.ID, "slug", article.Slug)
		return article, nil
	}
}

// DeleteArticle removes the article if requesterID is its author. Favorites of the
// article are removed by the foreign key cascade.
func (c *Core) DeleteArticle(ctx context.Context, slug string, requesterID int64) error {
	return c.session.DoTransactionally(ctx, func(txCtx context.Context) error {
		article, err := c.getArticleBySlug(txCtx, slug)
		if err != nil {
			return err
		}
		if article.AuthorID != requesterID {
			return xerrors.New(ErrNotArticleAuthor)
		}

		if _, err := databaseutils.Exec(c.sqlTemplate, txCtx, `DELETE FROM articles WHERE id = $1`, article.ID); err != nil {
			return xerrors.New(err)
		}
		c.log.Info("Article deleted", "article_id", article.ID, "slug", article.Slug)
		return nil
	})
}

// ListArticles returns one page of articles, newest first. ArticlesCount is the
// size of the whole unfiltered collection.
func (c *Core) ListArticles(ctx context.Context, viewerID int64, articleFilter filter.ArticleFilter) (*ArticleList, error) {
	total, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, `SELECT count(*) FROM articles`, scanInt64)
	if err != nil {
		return nil, xerrors.New(err)
	}

	result := &ArticleList{
		Articles:      []*models.Article{},
		ArticlesCount: total,
	}

	var conditions []string
	var args []any

	if articleFilter.Tag != "" {
		args = append(args, articleFilter.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(a.tag_list)", len(args)))
	}

	if articleFilter.Author != "" {
		author, err := c.GetUserByUsername(ctx, articleFilter.Author)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				c.log.Debug("Unknown author in article filter", "author", articleFilter.Author)
				return result, nil
			}
			return nil, err
		}
		args = append(args, author.ID)
		conditions = append(conditions, fmt.Sprintf("a.author_id = $%d", len(args)))
	}

	if articleFilter.Favorited != "" {
		fan, err := c.GetUserByUsername(ctx, articleFilter.Favorited)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				c.log.Debug("Unknown user in favorited filter", "favorited", articleFilter.Favorited)
				return result, nil
			}
			return nil, err
		}
		args = append(args, fan.ID)
		conditions = append(conditions, fmt.Sprintf("a.id IN (SELECT article_id FROM favorites WHERE user_id = $%d)", len(args)))
	}

	query := articleSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, articleFilter.Limit, articleFilter.Offset)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	articles, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, scanArticle, args...)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if len(articles) == 0 {
		return result, nil
	}

	articleIDs := functional.Map(articles, func(a *models.Article) int64 { return a.ID })
	favorited, err := c.FavoritedArticleIDs(ctx, viewerID, articleIDs)
	if err != nil {
		return nil, err
	}
	for _, article := range articles {
		article.Favorited = collectionutils.GetOrDefault(favorited, article.ID, false)
	}

	result.Articles = articles
	return result, nil
}

func scanInt64(rows *sql.Rows) (int64, error) {
	var v int64
	if err := rows.Scan(&v); err != nil {
		return 0, xerrors.New(err)
	}
	return v, nil
}
