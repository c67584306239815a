package main

import (
	"net/http"
)

func (app *application) favoriteArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, err := app.core.AddFavorite(r.Context(), slugParam(r), app.viewerID(r))
	if err != nil {
		app.articleErrorResponse(w, r, err)
		return
	}
	app.metrics.FavoritesChanges.WithLabelValues("add").Inc()

	if err := app.writeJSON(w, http.StatusOK, articleResponse(article), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) unfavoriteArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, err := app.core.RemoveFavorite(r.Context(), slugParam(r), app.viewerID(r))
	if err != nil {
		app.articleErrorResponse(w, r, err)
		return
	}
	app.metrics.FavoritesChanges.WithLabelValues("remove").Inc()

	if err := app.writeJSON(w, http.StatusOK, articleResponse(article), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
