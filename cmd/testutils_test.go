package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/siahsang/conduit/internal/auth"
	"github.com/siahsang/conduit/internal/config"
	"github.com/siahsang/conduit/internal/core"
	"github.com/siahsang/conduit/internal/filter"
	"github.com/siahsang/conduit/internal/metrics"
	"github.com/siahsang/conduit/internal/utils/stringutils"
	"github.com/siahsang/conduit/models"
	"github.com/stretchr/testify/require"
)

// fakeCore is an in-memory coreService with the same error contract as *core.Core.
type fakeCore struct {
	mu            sync.Mutex
	users         map[int64]*auth.User
	passwords     map[int64]string
	articles      []*models.Article
	favorites     map[int64]map[int64]bool // article id -> user ids
	tags          []string
	nextUserID    int64
	nextArticleID int64
	pingErr       error
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		users:     map[int64]*auth.User{},
		passwords: map[int64]string{},
		favorites: map[int64]map[int64]bool{},
	}
}

func (f *fakeCore) RegisterUser(_ context.Context, newUser core.NewUser) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == newUser.Email {
			return nil, core.ErrDuplicateEmail
		}
		if u.Username == newUser.Username {
			return nil, core.ErrDuplicateUsername
		}
	}

	f.nextUserID++
	user := &auth.User{ID: f.nextUserID, Email: newUser.Email, Username: newUser.Username, Bio: newUser.Bio, Image: newUser.Image}
	f.users[user.ID] = user
	f.passwords[user.ID] = newUser.Password
	copied := *user
	return &copied, nil
}

func (f *fakeCore) AuthenticateUser(_ context.Context, email, password string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			if f.passwords[u.ID] != password {
				return nil, core.ErrInvalidCredentials
			}
			copied := *u
			return &copied, nil
		}
	}
	return nil, core.ErrUnknownEmail
}

func (f *fakeCore) GetUserByID(_ context.Context, id int64) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeCore) UpdateUser(_ context.Context, userID int64, patch core.UserPatch) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	if patch.Email != nil {
		for _, other := range f.users {
			if other.ID != userID && other.Email == *patch.Email {
				return nil, core.ErrDuplicateEmail
			}
		}
		u.Email = *patch.Email
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.Image != nil {
		u.Image = *patch.Image
	}
	copied := *u
	return &copied, nil
}

func (f *fakeCore) CreateArticle(_ context.Context, author *auth.User, newArticle core.NewArticle) (*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextArticleID++
	now := time.Now()
	article := &models.Article{
		ID:          f.nextArticleID,
		Slug:        fmt.Sprintf("%s-%06d", stringutils.Slugify(newArticle.Title), f.nextArticleID),
		Title:       newArticle.Title,
		Description: newArticle.Description,
		Body:        newArticle.Body,
		TagList:     slices.Clone(newArticle.TagList),
		CreatedAt:   now,
		UpdatedAt:   now,
		AuthorID:    author.ID,
		Author:      models.Profile{ID: author.ID, Username: author.Username, Bio: author.Bio, Image: author.Image},
	}
	f.articles = append(f.articles, article)
	for _, tag := range article.TagList {
		if !slices.Contains(f.tags, tag) {
			f.tags = append(f.tags, tag)
		}
	}
	return f.view(article, author.ID), nil
}

func (f *fakeCore) find(slug string) (*models.Article, error) {
	for _, a := range f.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return nil, core.ErrRecordNotFound
}

// view returns a copy of article as seen by viewerID.
func (f *fakeCore) view(article *models.Article, viewerID int64) *models.Article {
	copied := *article
	copied.FavoritesCount = int64(len(f.favorites[article.ID]))
	copied.Favorited = f.favorites[article.ID][viewerID]
	return &copied
}

func (f *fakeCore) GetArticle(_ context.Context, slug string, viewerID int64) (*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, err := f.find(slug)
	if err != nil {
		return nil, err
	}
	return f.view(article, viewerID), nil
}

func (f *fakeCore) UpdateArticle(_ context.Context, slug string, requesterID int64, patch core.ArticlePatch) (*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, err := f.find(slug)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != requesterID {
		return nil, core.ErrNotArticleAuthor
	}
	if patch.Title != nil {
		article.Title = *patch.Title
		article.Slug = stringutils.Slugify(*patch.Title) + "-zzz999"
	}
	if patch.Description != nil {
		article.Description = *patch.Description
	}
	if patch.Body != nil {
		article.Body = *patch.Body
	}
	if patch.TagList != nil {
		article.TagList = slices.Clone(*patch.TagList)
	}
	article.UpdatedAt = time.Now()
	return f.view(article, requesterID), nil
}

func (f *fakeCore) DeleteArticle(_ context.Context, slug string, requesterID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, err := f.find(slug)
	if err != nil {
		return err
	}
	if article.AuthorID != requesterID {
		return core.ErrNotArticleAuthor
	}
	f.articles = slices.DeleteFunc(f.articles, func(a *models.Article) bool { return a.ID == article.ID })
	delete(f.favorites, article.ID)
	return nil
}

func (f *fakeCore) ListArticles(_ context.Context, viewerID int64, articleFilter filter.ArticleFilter) (*core.ArticleList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := &core.ArticleList{Articles: []*models.Article{}, ArticlesCount: int64(len(f.articles))}

	var matched []*models.Article
	for i := len(f.articles) - 1; i >= 0; i-- {
		a := f.articles[i]
		if articleFilter.Tag != "" && !slices.Contains(a.TagList, articleFilter.Tag) {
			continue
		}
		if articleFilter.Author != "" && a.Author.Username != articleFilter.Author {
			continue
		}
		if articleFilter.Favorited != "" && !f.favoritedBy(a.ID, articleFilter.Favorited) {
			continue
		}
		matched = append(matched, f.view(a, viewerID))
	}

	start := min(int(articleFilter.Offset), len(matched))
	end := min(start+int(articleFilter.Limit), len(matched))
	result.Articles = append(result.Articles, matched[start:end]...)
	return result, nil
}

func (f *fakeCore) favoritedBy(articleID int64, username string) bool {
	for userID := range f.favorites[articleID] {
		if f.users[userID].Username == username {
			return true
		}
	}
	return false
}

func (f *fakeCore) AddFavorite(_ context.Context, slug string, userID int64) (*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, err := f.find(slug)
	if err != nil {
		return nil, err
	}
	if f.favorites[article.ID] == nil {
		f.favorites[article.ID] = map[int64]bool{}
	}
	f.favorites[article.ID][userID] = true
	return f.view(article, userID), nil
}

func (f *fakeCore) RemoveFavorite(_ context.Context, slug string, userID int64) (*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, err := f.find(slug)
	if err != nil {
		return nil, err
	}
	delete(f.favorites[article.ID], userID)
	return f.view(article, userID), nil
}

func (f *fakeCore) ReconcileFavoritesCount(context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeCore) ListTags(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tags := slices.Clone(f.tags)
	slices.Sort(tags)
	return tags, nil
}

func (f *fakeCore) Ping(context.Context) error {
	return f.pingErr
}

func newTestApplication(t *testing.T) (*application, *fakeCore) {
	t.Helper()

	fake := newFakeCore()
	app := &application{
		config:  &config.Config{Env: "test"},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		core:    fake,
		auth:    auth.New("test-secret", 0),
		metrics: metrics.New(),
	}
	return app, fake
}

type testResponse struct {
	status int
	header http.Header
	body   map[string]any
}

func (app *application) do(t *testing.T, method, path, body, token string) testResponse {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	rr := httptest.NewRecorder()
	app.routes().ServeHTTP(rr, req)

	res := testResponse{status: rr.Code, header: rr.Header()}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res.body), rr.Body.String())
	}
	return res
}

// registerUser creates a user through the API and returns its token.
func (app *application) registerUser(t *testing.T, username string) string {
	t.Helper()

	res := app.do(t, http.MethodPost, "/users",
		`{"user":{"email":"`+username+`@example.com","username":"`+username+`","password":"password123"}}`, "")
	require.Equal(t, http.StatusOK, res.status, res.body)
	return res.body["user"].(map[string]any)["token"].(string)
}

func (app *application) createArticle(t *testing.T, token, title string, tags ...string) map[string]any {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"article": map[string]any{
		"title": title, "description": "about " + title, "body": "text", "tagList": tags,
	}})
	require.NoError(t, err)

	res := app.do(t, http.MethodPost, "/articles", string(payload), token)
	require.Equal(t, http.StatusOK, res.status, res.body)
	return res.body["article"].(map[string]any)
}
