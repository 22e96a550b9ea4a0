package api

import (
	"net/http"
	"strings"

	"github.com/deskhive/deskhive/pkg/httputil"
	"github.com/deskhive/deskhive/pkg/tenants"
)

// TenantHandlers handles tenant and membership HTTP requests. All the
// authorization decisions live in the service; the handlers only translate
// the verdict into a status code.
type TenantHandlers struct {
	service *tenants.Service
}

func (h *TenantHandlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	var req CreateTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, "tenant name is required")
		return
	}

	tenant, err := h.service.Create(r.Context(), actor, req.Name, req.Slug)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteCreated(w, tenant)
}

func (h *TenantHandlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), actor)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (h *TenantHandlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	tenant, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteSuccess(w, tenant)
}

func (h *TenantHandlers) Rename(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req RenameTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, "tenant name is required")
		return
	}
	if err := h.service.Rename(r.Context(), actor, id, req.Name); err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *TenantHandlers) Suspend(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req SuspendTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.service.Suspend(r.Context(), actor, id, req.Suspended); err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *TenantHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *TenantHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	members, err := h.service.Members(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

func (h *TenantHandlers) SetMemberRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req SetMemberRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.service.SetMemberRole(r.Context(), actor, id, req.Role); err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *TenantHandlers) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeactivateMember(r.Context(), actor, id); err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
