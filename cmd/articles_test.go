package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleFavoriteFlow(t *testing.T) {
	app, _ := newTestApplication(t)
	authorToken := app.registerUser(t, "author")
	readerToken := app.registerUser(t, "reader")

	created := app.createArticle(t, authorToken, "Hello World", "go")
	slug := created["slug"].(string)

	assert.Regexp(t, `^hello-world-[0-9a-z]{6}$`, slug)
	assert.Equal(t, []any{"go"}, created["tagList"])
	assert.Equal(t, "author", created["author"].(map[string]any)["username"])

	anonymous := app.do(t, http.MethodGet, "/articles/"+slug, "", "")
	require.Equal(t, http.StatusOK, anonymous.status)
	assert.Equal(t, 0.0, anonymous.body["article"].(map[string]any)["favoritesCount"])
	assert.Equal(t, false, anonymous.body["article"].(map[string]any)["favorited"])

	favorited := app.do(t, http.MethodPost, "/articles/"+slug+"/favorites", "", readerToken)
	require.Equal(t, http.StatusOK, favorited.status)
	assert.Equal(t, 1.0, favorited.body["article"].(map[string]any)["favoritesCount"])
	assert.Equal(t, true, favorited.body["article"].(map[string]any)["favorited"])

	again := app.do(t, http.MethodPost, "/articles/"+slug+"/favorites", "", readerToken)
	require.Equal(t, http.StatusOK, again.status)
	assert.Equal(t, 1.0, again.body["article"].(map[string]any)["favoritesCount"])

	asReader := app.do(t, http.MethodGet, "/articles/"+slug, "", readerToken)
	assert.Equal(t, true, asReader.body["article"].(map[string]any)["favorited"])
	asAnonymous := app.do(t, http.MethodGet, "/articles/"+slug, "", "")
	assert.Equal(t, false, asAnonymous.body["article"].(map[string]any)["favorited"])

	removed := app.do(t, http.MethodDelete, "/articles/"+slug+"/favorites", "", readerToken)
	require.Equal(t, http.StatusOK, removed.status)
	assert.Equal(t, 0.0, removed.body["article"].(map[string]any)["favoritesCount"])
	assert.Equal(t, false, removed.body["article"].(map[string]any)["favorited"])
}

func TestFavoriteHandlers_Errors(t *testing.T) {
	app, _ := newTestApplication(t)
	token := app.registerUser(t, "reader")

	res := app.do(t, http.MethodPost, "/articles/missing/favorites", "", token)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = app.do(t, http.MethodPost, "/articles/missing/favorites", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestCreateArticleHandler_Validation(t *testing.T) {
	app, _ := newTestApplication(t)
	token := app.registerUser(t, "author")

	res := app.do(t, http.MethodPost, "/articles", `{"article":{"title":"","description":"d","body":"b","tagList":[" "]}}`, token)

	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	details := res.body["errorDetails"].(map[string]any)
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "tagList")

	res = app.do(t, http.MethodPost, "/articles", `{"article":{"title":"t","description":"d","body":"b"}}`, "")
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestCreateArticleHandler_DefaultsTagList(t *testing.T) {
	app, _ := newTestApplication(t)
	token := app.registerUser(t, "author")

	res := app.do(t, http.MethodPost, "/articles", `{"article":{"title":"No Tags","description":"d","body":"b"}}`, token)

	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, []any{}, res.body["article"].(map[string]any)["tagList"])
}

func TestUpdateAndDeleteArticleHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	authorToken := app.registerUser(t, "author")
	strangerToken := app.registerUser(t, "stranger")
	slug := app.createArticle(t, authorToken, "Original Title")["slug"].(string)

	res := app.do(t, http.MethodPut, "/articles/"+slug, `{"article":{"body":"stolen"}}`, strangerToken)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = app.do(t, http.MethodPut, "/articles/missing", `{"article":{"body":"x"}}`, authorToken)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = app.do(t, http.MethodPut, "/articles/"+slug, `{"article":{"title":"Brand New"}}`, authorToken)
	require.Equal(t, http.StatusOK, res.status)
	updated := res.body["article"].(map[string]any)
	assert.Equal(t, "Brand New", updated["title"])
	assert.Equal(t, "about Original Title", updated["description"])
	newSlug := updated["slug"].(string)
	assert.Regexp(t, `^brand-new-`, newSlug)

	res = app.do(t, http.MethodDelete, "/articles/"+newSlug, "", strangerToken)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = app.do(t, http.MethodDelete, "/articles/"+newSlug, "", authorToken)
	assert.Equal(t, http.StatusOK, res.status)

	res = app.do(t, http.MethodGet, "/articles/"+newSlug, "", "")
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestListArticlesHandler(t *testing.T) {
	app, _ := newTestApplication(t)
	janeToken := app.registerUser(t, "jane")
	jakeToken := app.registerUser(t, "jake")

	app.createArticle(t, janeToken, "First", "go")
	second := app.createArticle(t, janeToken, "Second", "sql")
	app.createArticle(t, jakeToken, "Third", "go")
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/articles/"+second["slug"].(string)+"/favorites", "", jakeToken).status)

	titles := func(res testResponse) []string {
		var out []string
		for _, a := range res.body["articles"].([]any) {
			out = append(out, a.(map[string]any)["title"].(string))
		}
		return out
	}

	t.Run("newest first", func(t *testing.T) {
		res := app.do(t, http.MethodGet, "/articles", "", "")
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, []string{"Third", "Second", "First"}, titles(res))
		assert.Equal(t, 3.0, res.body["articlesCount"])
	})

	t.Run("tag filter keeps the total count", func(t *testing.T) {
		res := app.do(t, http.MethodGet, "/articles?tag=go", "", "")
		assert.Equal(t, []string{"Third", "First"}, titles(res))
		assert.Equal(t, 3.0, res.body["articlesCount"])
	})

	t.Run("author filter", func(t *testing.T) {
		res := app.do(t, http.MethodGet, "/articles?author=jane", "", "")
		assert.Equal(t, []string{"Second", "First"}, titles(res))
	})

	t.Run("unknown author", func(t *testing.T) {
		res := app.do(t, http.MethodGet, "/articles?author=nobody", "", "")
		require.Equal(t, http.StatusOK, res.status)
		assert.Empty(t, res.body["articles"])
	})

	t.Run("favorited filter and flag", func(t *testing.T) {
		res := app.do(t, http.MethodGet, "/articles?favorited=jake", "", jakeToken)
		require.Equal(t, []string{"Second"}, titles(res))
		assert.Equal(t, true, res.body["articles"].([]any)[0].(map[string]any)["favorited"])
	})

	t.Run("pagination", func(t *testing.T) {
		res := app.do(t, http.MethodGet, "/articles?limit=1&offset=1", "", "")
		assert.Equal(t, []string{"Second"}, titles(res))
	})

	t.Run("invalid pagination", func(t *testing.T) {
		for _, query := range []string{"limit=0", "limit=101", "offset=-1", "limit=abc"} {
			res := app.do(t, http.MethodGet, "/articles?"+query, "", "")
			assert.Equal(t, http.StatusUnprocessableEntity, res.status, query)
		}
	})

	t.Run("invalid token on an optional route", func(t *testing.T) {
		res := app.do(t, http.MethodGet, "/articles", "", "garbage")
		assert.Equal(t, http.StatusUnauthorized, res.status)
	})
}

func TestListTagsHandler(t *testing.T) {
	app, _ := newTestApplication(t)
	token := app.registerUser(t, "author")
	app.createArticle(t, token, "One", "sql", "go")
	app.createArticle(t, token, "Two", "go")

	res := app.do(t, http.MethodGet, "/tags", "", "")

	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, []any{"go", "sql"}, res.body["tags"])
}

func TestCreateArticleHandler_RejectsDuplicateTags(t *testing.T) {
	tests := []struct {
		name    string
		tagList string
	}{
		{name: "exact duplicate", tagList: `["go","go"]`},
		{name: "duplicate after trimming", tagList: `["go"," go"]`},
		{name: "blank after trimming", tagList: `["go","   "]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApplication(t)
			token := app.registerUser(t, "author")

			res := app.do(t, http.MethodPost, "/articles", `{"article":{"title":"t","description":"d","body":"b","tagList":`+tt.tagList+`}}`, token)

			require.Equal(t, http.StatusUnprocessableEntity, res.status)
			assert.Contains(t, res.body["errorDetails"], "tagList")
		})
	}
}

func TestArticleHandlers_TrimTags(t *testing.T) {
	app, _ := newTestApplication(t)
	token := app.registerUser(t, "author")

	res := app.do(t, http.MethodPost, "/articles", `{"article":{"title":"t","description":"d","body":"b","tagList":[" go ","sql"]}}`, token)
	require.Equal(t, http.StatusOK, res.status)
	article := res.body["article"].(map[string]any)
	assert.Equal(t, []any{"go", "sql"}, article["tagList"])
	slug := article["slug"].(string)

	res = app.do(t, http.MethodPut, "/articles/"+slug, `{"article":{"tagList":["sql"," sql"]}}`, token)
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body["errorDetails"], "tagList")

	res = app.do(t, http.MethodPut, "/articles/"+slug, `{"article":{"tagList":["  rust"]}}`, token)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, []any{"rust"}, res.body["article"].(map[string]any)["tagList"])
}
