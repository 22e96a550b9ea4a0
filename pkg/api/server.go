package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/deskhive/deskhive/pkg/audit"
	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/httputil"
	"github.com/deskhive/deskhive/pkg/invites"
	"github.com/deskhive/deskhive/pkg/middleware"
	"github.com/deskhive/deskhive/pkg/observability"
	"github.com/deskhive/deskhive/pkg/tenants"
)

// Middleware wraps a handler; the authenticator satisfies this, and tests
// substitute one that plants a canned subject in the context.
type Middleware func(http.Handler) http.Handler

// Dependencies carries everything the server routes to. Logger is
// required; nil optional pieces disable their routes.
type Dependencies struct {
	Authenticator Middleware
	AuthHandlers  *AuthHandlers
	Tenants       *tenants.Service
	Invitations   *invites.Service
	Bookings      *BookingHandlers
	Decisions     *audit.Recorder
	Logger        *observability.Logger
	Metrics       *observability.Metrics
}

// Server represents the HTTP API server.
type Server struct {
	router *mux.Router
	deps   Dependencies
}

// NewServer creates the API server and configures all routes.
func NewServer(deps Dependencies) *Server {
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	if s.deps.Logger != nil {
		s.router.Use(middleware.Logging(s.deps.Logger))
	}
	if s.deps.Metrics != nil {
		s.router.Use(middleware.Metrics(s.deps.Metrics))
	}

	s.router.HandleFunc("/health", s.health).Methods("GET")

	// Login and callback stay outside the authenticated subtree.
	if s.deps.AuthHandlers != nil {
		s.router.HandleFunc("/auth/login", s.deps.AuthHandlers.Login).Methods("GET")
		s.router.HandleFunc("/auth/callback", s.deps.AuthHandlers.Callback).Methods("GET")
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if s.deps.Authenticator != nil {
		api.Use(mux.MiddlewareFunc(s.deps.Authenticator))
	}

	if s.deps.AuthHandlers != nil {
		api.HandleFunc("/me", s.deps.AuthHandlers.WhoAmI).Methods("GET")
	}

	if s.deps.Tenants != nil {
		th := &TenantHandlers{service: s.deps.Tenants}
		api.HandleFunc("/tenants", th.Create).Methods("POST")
		api.HandleFunc("/tenants", th.List).Methods("GET")
		api.HandleFunc("/tenants/{id}", th.Get).Methods("GET")
		api.HandleFunc("/tenants/{id}", th.Rename).Methods("PUT")
		api.HandleFunc("/tenants/{id}", th.Delete).Methods("DELETE")
		api.HandleFunc("/tenants/{id}/suspend", th.Suspend).Methods("POST")
		api.HandleFunc("/tenants/{id}/members", th.ListMembers).Methods("GET")
		api.HandleFunc("/members/{id}/role", th.SetMemberRole).Methods("PUT")
		api.HandleFunc("/members/{id}", th.DeactivateMember).Methods("DELETE")
	}

	if s.deps.Invitations != nil {
		ih := &InvitationHandlers{service: s.deps.Invitations}
		api.HandleFunc("/tenants/{id}/invitations", ih.Create).Methods("POST")
		api.HandleFunc("/tenants/{id}/invitations", ih.List).Methods("GET")
		api.HandleFunc("/invitations/{id}", ih.Revoke).Methods("DELETE")
		api.HandleFunc("/invitations/{token}/accept", ih.Accept).Methods("POST")
	}

	if s.deps.Bookings != nil {
		api.HandleFunc("/bookings", s.deps.Bookings.List).Methods("GET")
		api.HandleFunc("/bookings", s.deps.Bookings.Create).Methods("POST")
		api.HandleFunc("/access-logs", s.deps.Bookings.ListAccessLogs).Methods("GET")
	}

	if s.deps.Decisions != nil {
		dh := &DecisionHandlers{recorder: s.deps.Decisions}
		api.HandleFunc("/authz/decisions", dh.Search).Methods("GET")
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// Router returns the underlying mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped with tracing instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "deskhive.api")
}

// requireSubject pulls the resolved subject off the request, writing a 401
// when the authenticator never ran.
func requireSubject(w http.ResponseWriter, r *http.Request) (authz.Subject, bool) {
	record := middleware.Subject(r)
	if record == nil {
		httputil.WriteUnauthorized(w)
		return authz.Subject{}, false
	}
	return record.Subject(), true
}
