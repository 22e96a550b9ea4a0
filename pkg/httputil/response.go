// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deskhive/deskhive/pkg/authz"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
}

// WriteForbidden writes a forbidden error (403). The message is fixed:
// denial detail is logged server-side, never returned to the caller.
func WriteForbidden(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusForbidden, "access denied")
}

// WriteNotFoundError writes a not found error response (404 Not Found)
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteConflict writes a conflict error (409)
func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusConflict, message)
}

// WriteInternalError writes an internal server error response (500)
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

// WriteAuthzError maps the authorization error taxonomy onto HTTP statuses
// with generic bodies. Anything outside the taxonomy is a 500.
func WriteAuthzError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		WriteUnauthorized(w)
	case errors.Is(err, authz.ErrNotAuthorized):
		WriteForbidden(w)
	case errors.Is(err, authz.ErrTenantMismatch):
		WriteForbidden(w)
	case errors.Is(err, authz.ErrInvalidRoleAssignment):
		WriteErrorMessage(w, http.StatusUnprocessableEntity, "requested role cannot be assigned")
	case errors.Is(err, authz.ErrInvalidStateTransition):
		WriteConflict(w, "invitation is no longer pending")
	default:
		WriteInternalError(w)
	}
}
