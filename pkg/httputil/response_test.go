package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/pkg/authz"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]int{"count": 3}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count": 3}`, rec.Body.String())
}

func TestWriteAuthzError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{authz.ErrUnauthenticated, http.StatusUnauthorized},
		{authz.ErrNotAuthorized, http.StatusForbidden},
		{authz.ErrTenantMismatch, http.StatusForbidden},
		{authz.ErrInvalidRoleAssignment, http.StatusUnprocessableEntity},
		{authz.ErrInvalidStateTransition, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", authz.ErrNotAuthorized), http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAuthzError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestWriteForbidden_GenericBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAuthzError(rec, fmt.Errorf("%w: role END_USER lacks booking delete in tenant 4", authz.ErrNotAuthorized))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "access denied", body["error"], "rule detail must never reach the response")
}
