package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/cache"
	"github.com/deskhive/deskhive/pkg/contextkeys"
	"github.com/deskhive/deskhive/pkg/httputil"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/observability"
)

// tokenVerifier verifies a raw bearer token into a claim.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, rawToken string) (*identity.Claim, error)
}

// subjectResolver resolves a verified claim to the stored subject.
type subjectResolver interface {
	Resolve(ctx context.Context, claim identity.Claim) (*identity.SubjectRecord, error)
}

// tenantGate answers whether a tenant is currently suspended.
type tenantGate interface {
	IsSuspended(ctx context.Context, tenantID int64) (bool, error)
}

// Authenticator verifies the bearer token, resolves the subject from the
// database, and attaches it to the request context. The token only ever
// proves identity; role and tenant come from the subjects table (through a
// short-lived cache).
type Authenticator struct {
	verifier tokenVerifier
	resolver subjectResolver
	subjects *cache.SubjectCache
	tenants  tenantGate
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAuthenticator creates the authentication middleware. subjects, tenants
// and metrics may be nil.
func NewAuthenticator(verifier tokenVerifier, resolver subjectResolver, subjects *cache.SubjectCache, tenants tenantGate, logger *observability.Logger, metrics *observability.Metrics) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		resolver: resolver,
		subjects: subjects,
		tenants:  tenants,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with authentication
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w)
			return
		}

		claim, err := a.verifier.VerifyIDToken(r.Context(), parts[1])
		if err != nil {
			a.record("invalid_token")
			a.logger.WithError(err).Debug("token verification failed")
			httputil.WriteUnauthorized(w)
			return
		}

		record, err := a.resolveSubject(r.Context(), *claim)
		if err != nil {
			a.record("unresolved")
			httputil.WriteAuthzError(w, err)
			return
		}
		a.record("resolved")

		if record.TenantID != nil && a.tenants != nil {
			suspended, err := a.tenants.IsSuspended(r.Context(), *record.TenantID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					a.record("tenant_suspended")
					httputil.WriteForbidden(w)
					return
				}
				a.logger.WithError(err).Error("tenant suspension lookup failed")
				httputil.WriteAuthzError(w, err)
				return
			}
			if suspended {
				a.record("tenant_suspended")
				httputil.WriteForbidden(w)
				return
			}
		}

		ctx := contextkeys.WithSubject(r.Context(), record)
		ctx = observability.WithSubjectID(ctx, record.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) resolveSubject(ctx context.Context, claim identity.Claim) (*identity.SubjectRecord, error) {
	if a.subjects != nil {
		if record, ok := a.subjects.Get(ctx, claim.ExternalID); ok {
			if record.IsActive {
				return record, nil
			}
			// A deactivated subject must not ride out the cache TTL.
			if err := a.subjects.Invalidate(ctx, claim.ExternalID); err != nil {
				a.logger.WithError(err).Debug("subject cache invalidation failed")
			}
		}
	}

	record, err := a.resolver.Resolve(ctx, claim)
	if err != nil {
		return nil, err
	}

	if a.subjects != nil {
		if err := a.subjects.Set(ctx, record); err != nil {
			a.logger.WithError(err).Debug("subject cache write failed")
		}
	}
	return record, nil
}

func (a *Authenticator) record(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordIdentityResolution(outcome)
	}
}

// Subject extracts the resolved subject from the request, nil when the
// request never passed the Authenticator.
func Subject(r *http.Request) *identity.SubjectRecord {
	return contextkeys.Subject(r.Context())
}

// RequireAtLeast gates a handler on a minimum role. It is a coarse
// pre-filter; handlers still evaluate per-resource decisions.
func RequireAtLeast(min authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			record := Subject(r)
			if record == nil {
				httputil.WriteUnauthorized(w)
				return
			}
			if !authz.AtLeast(record.Role, min) {
				httputil.WriteForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
