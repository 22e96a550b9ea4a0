package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deskhive/deskhive/pkg/audit"
	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/httputil"
)

// DecisionHandlers exposes the authorization decision trail to platform
// operators.
type DecisionHandlers struct {
	recorder *audit.Recorder
}

// Search lists recorded decisions, SUPER_ADMIN only. Reasons stay
// server-side; the serialized events omit them.
func (h *DecisionHandlers) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	if actor.Role != authz.RoleSuperAdmin {
		httputil.WriteAuthzError(w, authz.ErrNotAuthorized)
		return
	}

	filter := audit.SearchFilter{Limit: 100}
	q := r.URL.Query()
	if raw := q.Get("subject_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid subject_id")
			return
		}
		filter.SubjectID = id
	}
	if raw := q.Get("tenant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid tenant_id")
			return
		}
		filter.TenantID = id
	}
	if raw := q.Get("resource"); raw != "" {
		filter.Resource = authz.Resource(raw)
	}
	if raw := q.Get("allowed"); raw != "" {
		allowed := raw == "true"
		filter.Allowed = &allowed
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be RFC 3339")
			return
		}
		filter.Since = since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 1000 {
			httputil.WriteBadRequest(w, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}

	events, err := h.recorder.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, events)
}
