package main

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/conduit/internal/core"
	"github.com/siahsang/conduit/internal/web"
)

const requestIDHeader = "X-Request-Id"

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (app *application) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, web.AddValueToContext(r, web.RequestIDCtxKey, id))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.internalErrorResponse(w, r, xerrors.Newf("panic: %v", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		app.logger.LogAttrs(r.Context(), slog.LevelInfo, "Request completed",
			slog.String("request_method", r.Method),
			slog.String("request_path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", web.RequestID(r)),
		)
	})
}

// instrument records request metrics under the route pattern.
func (app *application) instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		app.metrics.ObserveRequest(pattern, r.Method, rec.status, time.Since(start))
	})
}

// authenticate resolves the Authorization header into the current user. Requests
// without the header continue anonymously; a header that does not verify is
// rejected on every route.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		authorization := r.Header.Get("Authorization")
		if authorization == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, found := strings.Cut(authorization, " ")
		if !found || token == "" || !(strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
			app.invalidAuthenticationTokenResponse(w, r, xerrors.New("Authorization header must be in the format 'Token <token>'"))
			return
		}

		claim, err := app.auth.Authenticate(token)
		if err != nil {
			app.invalidAuthenticationTokenResponse(w, r, err)
			return
		}

		user, err := app.core.GetUserByID(r.Context(), claim.ID)
		if err != nil {
			if errors.Is(err, core.ErrRecordNotFound) {
				app.invalidAuthenticationTokenResponse(w, r, err)
				return
			}
			app.internalErrorResponse(w, r, err)
			return
		}

		user.Token = token
		next.ServeHTTP(w, app.auth.SetAuthenticatedUser(r, user))
	})
}

func (app *application) requireAuthenticatedUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !app.auth.IsUserAuthenticated(r) {
			app.authenticationRequiredResponse(w, r, xerrors.New("authentication required"))
			return
		}
		next(w, r)
	}
}

// rateLimit throttles per client IP. Limiter failures let the request through.
func (app *application) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.limiter == nil {
			next(w, r)
			return
		}

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		allowed, err := app.limiter.Allow(r.Context(), ip)
		if err != nil {
			app.logger.Warn("Rate limiter unavailable", slog.String("error", err.Error()), slog.String("request_id", web.RequestID(r)))
			next(w, r)
			return
		}
		if !allowed {
			app.metrics.RateLimited.Inc()
			app.rateLimitExceededResponse(w, r)
			return
		}

		next(w, r)
	}
}
