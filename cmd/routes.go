package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	handle := func(method, pattern string, handler http.HandlerFunc) {
		router.Handler(method, pattern, app.instrument(pattern, handler))
	}

	// Not require authentication for these routes
	handle(http.MethodPost, "/users", app.rateLimit(app.registerUserHandler))
	handle(http.MethodPost, "/users/login", app.rateLimit(app.loginUserHandler))
	handle(http.MethodGet, "/articles", app.listArticlesHandler)
	handle(http.MethodGet, "/articles/:slug", app.getArticleHandler)
	handle(http.MethodGet, "/tags", app.listTagsHandler)
	handle(http.MethodGet, "/healthz", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", app.metrics.Handler())

	// Require authentication for these routes
	handle(http.MethodGet, "/user", app.requireAuthenticatedUser(app.getCurrentUserHandler))
	handle(http.MethodPut, "/user", app.requireAuthenticatedUser(app.updateUserHandler))
	handle(http.MethodPost, "/articles", app.requireAuthenticatedUser(app.createArticleHandler))
	handle(http.MethodPut, "/articles/:slug", app.requireAuthenticatedUser(app.updateArticleHandler))
	handle(http.MethodDelete, "/articles/:slug", app.requireAuthenticatedUser(app.deleteArticleHandler))
	handle(http.MethodPost, "/articles/:slug/favorites", app.requireAuthenticatedUser(app.favoriteArticleHandler))
	handle(http.MethodDelete, "/articles/:slug/favorites", app.requireAuthenticatedUser(app.unfavoriteArticleHandler))

	return app.requestID(app.recoverPanic(app.logRequest(app.authenticate(router))))
}
