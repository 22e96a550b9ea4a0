// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here. This
// prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import (
	"context"

	"github.com/deskhive/deskhive/pkg/identity"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SubjectKey contains *identity.SubjectRecord
	// Set by: middleware.Authenticator (pkg/middleware/auth.go)
	// Required by: all protected API endpoints
	SubjectKey Key = "subject"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: logger, audit trail
	RequestIDKey Key = "request_id"
)

// WithSubject stores the resolved subject on the context
func WithSubject(ctx context.Context, record *identity.SubjectRecord) context.Context {
	return context.WithValue(ctx, SubjectKey, record)
}

// Subject retrieves the resolved subject, nil when unauthenticated
func Subject(ctx context.Context) *identity.SubjectRecord {
	record, ok := ctx.Value(SubjectKey).(*identity.SubjectRecord)
	if !ok {
		return nil
	}
	return record
}

// WithRequestID stores the request id on the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request id, empty when absent
func RequestID(ctx context.Context) string {
	id, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return id
}
