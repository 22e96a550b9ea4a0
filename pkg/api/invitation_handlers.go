package api

import (
	"net/http"

	"github.com/deskhive/deskhive/pkg/httputil"
	"github.com/deskhive/deskhive/pkg/invites"
	"github.com/deskhive/deskhive/pkg/middleware"
)

// InvitationHandlers handles the invitation lifecycle over HTTP.
type InvitationHandlers struct {
	service *invites.Service
}

func (h *InvitationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	tenantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req CreateInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	inv, err := h.service.Create(r.Context(), actor, tenantID, req.Email, req.Role)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteCreated(w, &CreateInvitationResponse{
		ID:        inv.ID,
		TenantID:  inv.TenantID,
		Email:     inv.Email,
		Role:      inv.Role,
		Token:     inv.Token,
		ExpiresAt: inv.ExpiresAt,
	})
}

func (h *InvitationHandlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	tenantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), actor, tenantID)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// Accept redeems the token for the signed-in subject. The service matches
// the invited email against the subject's before the state transition.
func (h *InvitationHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	record := middleware.Subject(r)
	if record == nil {
		httputil.WriteUnauthorized(w)
		return
	}
	token, err := httputil.ParsePathString(r, "token")
	if err != nil {
		httputil.WriteBadRequest(w, "missing token")
		return
	}
	inv, err := h.service.Accept(r.Context(), record, token)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

func (h *InvitationHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.service.Revoke(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}
