package main

import (
	"errors"
	"net/http"

	"github.com/siahsang/conduit/internal/core"
	"github.com/siahsang/conduit/internal/filter"
	"github.com/siahsang/conduit/internal/validator"
	"github.com/siahsang/conduit/models"
)

func (app *application) createArticleHandler(w http.ResponseWriter, r *http.Request) {
	type input struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Body        string   `json:"body"`
		TagList     []string `json:"tagList"`
	}

	type CreateArticleRequest struct {
		input `json:"article"`
	}

	var requestPayload CreateArticleRequest

	if err := app.readJSON(w, r, &requestPayload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.CheckNotBlank(requestPayload.Title, "title", "must be provided")
	v.CheckNotBlank(requestPayload.Description, "description", "must be provided")
	v.CheckNotBlank(requestPayload.Body, "body", "must be provided")
	requestPayload.TagList = trimTags(requestPayload.TagList)
	checkTags(v, requestPayload.TagList)

	if !v.IsValid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r, err)
		return
	}

	tagList := requestPayload.TagList
	if tagList == nil {
		tagList = []string{}
	}

	article, err := app.core.CreateArticle(r.Context(), user, core.NewArticle{
		Title:       requestPayload.Title,
		Description: requestPayload.Description,
		Body:        requestPayload.Body,
		TagList:     tagList,
	})
	if err != nil {
		app.articleErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, articleResponse(article), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) getArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, err := app.core.GetArticle(r.Context(), slugParam(r), app.viewerID(r))
	if err != nil {
		app.articleErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, articleResponse(article), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) listArticlesHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	query := r.URL.Query()

	articleFilter := filter.ArticleFilter{
		Filter: filter.NewFilter(
			app.readInt(query, "limit", filter.DefaultLimit, v),
			app.readInt(query, "offset", 0, v),
		),
		Tag:       app.readString(query, "tag", ""),
		Author:    app.readString(query, "author", ""),
		Favorited: app.readString(query, "favorited", ""),
	}

	filter.ValidateFilters(v, articleFilter.Filter)
	if !v.IsValid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	articles, err := app.core.ListArticles(r.Context(), app.viewerID(r), articleFilter)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, multiArticleResponse(articles), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) updateArticleHandler(w http.ResponseWriter, r *http.Request) {
	type input struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Body        *string   `json:"body"`
		TagList     *[]string `json:"tagList"`
	}

	type UpdateArticleRequest struct {
		input `json:"article"`
	}

	var requestPayload UpdateArticleRequest

	if err := app.readJSON(w, r, &requestPayload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	checkOptionalNotBlank(v, requestPayload.Title, "title")
	checkOptionalNotBlank(v, requestPayload.Description, "description")
	checkOptionalNotBlank(v, requestPayload.Body, "body")
	if requestPayload.TagList != nil {
		tagList := trimTags(*requestPayload.TagList)
		requestPayload.TagList = &tagList
		checkTags(v, tagList)
	}

	if !v.IsValid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	article, err := app.core.UpdateArticle(r.Context(), slugParam(r), app.viewerID(r), core.ArticlePatch{
		Title:       requestPayload.Title,
		Description: requestPayload.Description,
		Body:        requestPayload.Body,
		TagList:     requestPayload.TagList,
	})
	if err != nil {
		app.articleErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, articleResponse(article), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deleteArticleHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.core.DeleteArticle(r.Context(), slugParam(r), app.viewerID(r)); err != nil {
		app.articleErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

// articleErrorResponse maps article service errors to responses.
func (app *application) articleErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, core.ErrNotArticleAuthor):
		app.forbiddenResponse(w, r, err)
	case errors.Is(err, core.ErrDuplicatedSlug):
		app.failedValidationResponse(w, r, map[string]string{"slug": "could not generate a unique slug, try again"})
	default:
		app.internalErrorResponse(w, r, err)
	}
}

// viewerID is the id of the authenticated user, or 0 for anonymous requests.
func (app *application) viewerID(r *http.Request) int64 {
	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		return 0
	}
	return user.ID
}

func articleResponse(article *models.Article) envelope {
	return envelope{"article": article}
}

func multiArticleResponse(list *core.ArticleList) envelope {
	return envelope{
		"articles":      list.Articles,
		"articlesCount": list.ArticlesCount,
	}
}

