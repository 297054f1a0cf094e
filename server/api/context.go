package api

import (
	"context"
)

type requestIDCtxKeyType string

const requestIDCtxKey requestIDCtxKeyType = "request_id"

// WithRequestID returns a copy of a given context that contains a given request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey, requestID)
}

// GetRequestID returns the request id from a given context or an empty string.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDCtxKey).(string)
	return requestID
}
