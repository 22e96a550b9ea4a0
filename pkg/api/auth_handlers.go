package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/httputil"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/middleware"
	"github.com/deskhive/deskhive/pkg/observability"
)

const stateCookieName = "deskhive_oauth_state"

// loginProvider is the slice of the OIDC provider the handlers need.
type loginProvider interface {
	InitiateLogin(w http.ResponseWriter, r *http.Request, state string)
	HandleCallback(ctx context.Context, r *http.Request) (*identity.Claim, error)
}

// claimResolver resolves a verified claim to the stored subject.
type claimResolver interface {
	Resolve(ctx context.Context, claim identity.Claim) (*identity.SubjectRecord, error)
}

// AuthHandlers handles login, the provider callback, and identity lookups.
type AuthHandlers struct {
	provider loginProvider
	resolver claimResolver
	logger   *observability.Logger
}

// NewAuthHandlers creates a new AuthHandlers.
func NewAuthHandlers(provider *identity.OIDCProvider, resolver *identity.Resolver, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{
		provider: provider,
		resolver: resolver,
		logger:   logger,
	}
}

// Login starts the authorization code flow. The state nonce is pinned in a
// short-lived cookie and checked on callback.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.provider.InitiateLogin(w, r, state)
}

// Callback completes the flow: verifies state, exchanges the code, and
// resolves the subject. Role and tenant in the response come from the
// subjects table, never from the provider.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		httputil.WriteBadRequest(w, "state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth", MaxAge: -1})

	claim, err := h.provider.HandleCallback(r.Context(), r)
	if err != nil {
		h.logger.WithError(err).Warn("OIDC callback failed")
		httputil.WriteAuthzError(w, authz.ErrUnauthenticated)
		return
	}

	record, err := h.resolver.Resolve(r.Context(), *claim)
	if err != nil {
		h.logger.WithError(err).Error("subject resolution failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, whoAmIResponse(record))
}

// WhoAmI returns the authenticated subject together with the roles it may
// hand out.
func (h *AuthHandlers) WhoAmI(w http.ResponseWriter, r *http.Request) {
	record := middleware.Subject(r)
	if record == nil {
		httputil.WriteUnauthorized(w)
		return
	}
	httputil.WriteSuccess(w, whoAmIResponse(record))
}

func whoAmIResponse(record *identity.SubjectRecord) *MeResponse {
	return &MeResponse{
		Subject:         record,
		AssignableRoles: authz.AssignableRoles(record.Subject()),
	}
}
