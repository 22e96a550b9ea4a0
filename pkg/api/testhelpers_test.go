package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/contextkeys"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/invites"
	"github.com/deskhive/deskhive/pkg/observability"
	"github.com/deskhive/deskhive/pkg/tenants"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			is_suspended INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE subjects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			full_name TEXT,
			tenant_id INTEGER,
			role TEXT NOT NULL,
			is_onboarded INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			last_login_at TIMESTAMP
		);

		CREATE TABLE invitations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'PENDING',
			invited_by INTEGER NOT NULL,
			accepted_by INTEGER,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// asSubject is an authenticator stand-in that plants a fixed subject on
// every request.
func asSubject(record *identity.SubjectRecord) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if record != nil {
				r = r.WithContext(contextkeys.WithSubject(r.Context(), record))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRecord(id int64, role authz.Role, tenantID *int64) *identity.SubjectRecord {
	return &identity.SubjectRecord{
		ID:          id,
		ExternalID:  "ext-" + string(role),
		Email:       string(role) + "@example.com",
		TenantID:    tenantID,
		Role:        role,
		IsOnboarded: true,
		IsActive:    true,
	}
}

// newTestServer wires real services over sqlite behind a canned subject.
func newTestServer(t *testing.T, record *identity.SubjectRecord) (*Server, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	logger := testLogger()
	evaluator := authz.NewEvaluator(nil)
	subjects := identity.NewSubjectStore(db)

	deps := Dependencies{
		Authenticator: asSubject(record),
		Tenants:       tenants.NewService(tenants.NewTenantStore(db), subjects, evaluator, nil, logger),
		Invitations:   invites.NewService(invites.NewInvitationStore(db), subjects, evaluator, nil, logger, nil),
		Logger:        logger,
	}
	return NewServer(deps), db
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func seedSubject(t *testing.T, db *sql.DB, record *identity.SubjectRecord) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO subjects (id, external_id, email, full_name, tenant_id, role, is_onboarded, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $8)`,
		record.ID, record.ExternalID, record.Email, record.FullName,
		record.TenantID, string(record.Role), record.IsOnboarded, now)
	if err != nil {
		t.Fatalf("Failed to seed subject: %v", err)
	}
}

func seedTenant(t *testing.T, db *sql.DB, name, slug string) int64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`
		INSERT INTO tenants (name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $3)`, name, slug, now)
	if err != nil {
		t.Fatalf("Failed to seed tenant: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read tenant id: %v", err)
	}
	return id
}

func int64ptr(v int64) *int64 { return &v }
