package main

import (
	"context"
	"net/http"
	"time"
)

func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.core.Ping(ctx); err != nil {
		app.serviceUnavailableResponse(w, r, err)
		return
	}

	data := envelope{
		"status":      "available",
		"environment": app.config.Env,
	}
	if err := app.writeJSON(w, http.StatusOK, data, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
