package web

import (
	"context"
	"net/http"
)

// ContextKey namespaces request-scoped values set by the middleware chain.
type ContextKey string

const (
	RequestIDCtxKey ContextKey = "request_id"
)

func AddValueToContext(r *http.Request, key ContextKey, value any) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, key, value)
	return r.WithContext(ctx)
}

func GetValueFromContext[T any](r *http.Request, key ContextKey) (T, bool) {
	val := r.Context().Value(key)
	if val == nil {
		var zero T
		return zero, false
	}
	tVal, ok := val.(T)

	if !ok {
		var zero T
		return zero, false
	}

	return tVal, true
}

// RequestID returns the id assigned to r by the request-id middleware, or "".
func RequestID(r *http.Request) string {
	id, _ := GetValueFromContext[string](r, RequestIDCtxKey)
	return id
}
