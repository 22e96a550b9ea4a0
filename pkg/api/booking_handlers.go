package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/deskhive/deskhive/pkg/audit"
	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/httputil"
	"github.com/deskhive/deskhive/pkg/observability"
	"github.com/deskhive/deskhive/pkg/rlspolicy"
)

// BookingHandlers serves bookings and access logs. Every query runs inside a
// transaction carrying the subject's session claims, so the database row
// policies filter alongside the application check rather than instead of it.
type BookingHandlers struct {
	db        *sql.DB
	evaluator *audit.Evaluator
	logger    *observability.Logger
}

// NewBookingHandlers creates a new BookingHandlers.
func NewBookingHandlers(db *sql.DB, evaluator *audit.Evaluator, logger *observability.Logger) *BookingHandlers {
	return &BookingHandlers{db: db, evaluator: evaluator, logger: logger}
}

// tenantScope picks the tenant the request operates in: the subject's own,
// except SUPER_ADMIN may name one with ?tenant_id=.
func tenantScope(actor authz.Subject, r *http.Request) (int64, bool) {
	if actor.Role == authz.RoleSuperAdmin {
		if raw := r.URL.Query().Get("tenant_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return 0, false
			}
			return id, true
		}
	}
	if actor.TenantID == nil {
		return 0, false
	}
	return *actor.TenantID, true
}

func (h *BookingHandlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	tenantID, ok := tenantScope(actor, r)
	if !ok {
		httputil.WriteAuthzError(w, authz.ErrTenantMismatch)
		return
	}

	decision := h.evaluator.CanAccess(r.Context(), actor,
		authz.OwnedResource(authz.ResourceBooking, tenantID, actor.ID), authz.ActionView)
	if !decision.Allowed {
		httputil.WriteAuthzError(w, authz.ErrNotAuthorized)
		return
	}

	bookings := []*Booking{}
	err := rlspolicy.WithSessionClaims(r.Context(), h.db, rlspolicy.ClaimsFor(actor), func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(r.Context(), `
			SELECT id, tenant_id, owner_id, space_id, starts_at, ends_at, created_at
			FROM bookings
			WHERE tenant_id = $1
			ORDER BY starts_at DESC
			LIMIT 200`, tenantID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			b := &Booking{}
			if err := rows.Scan(&b.ID, &b.TenantID, &b.OwnerID, &b.SpaceID, &b.StartsAt, &b.EndsAt, &b.CreatedAt); err != nil {
				return err
			}
			bookings = append(bookings, b)
		}
		return rows.Err()
	})
	if err != nil {
		observability.LoggerWithTraceContext(r.Context(), h.logger).WithError(err).Error("booking listing failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, bookings)
}

func (h *BookingHandlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		httputil.WriteBadRequest(w, "booking must end after it starts")
		return
	}
	tenantID, ok := tenantScope(actor, r)
	if !ok {
		httputil.WriteAuthzError(w, authz.ErrTenantMismatch)
		return
	}

	decision := h.evaluator.CanAccess(r.Context(), actor,
		authz.OwnedResource(authz.ResourceBooking, tenantID, actor.ID), authz.ActionCreate)
	if !decision.Allowed {
		httputil.WriteAuthzError(w, authz.ErrNotAuthorized)
		return
	}

	now := time.Now().UTC()
	booking := &Booking{
		TenantID:  tenantID,
		OwnerID:   actor.ID,
		SpaceID:   req.SpaceID,
		StartsAt:  req.StartsAt.UTC(),
		EndsAt:    req.EndsAt.UTC(),
		CreatedAt: now,
	}
	err := rlspolicy.WithSessionClaims(r.Context(), h.db, rlspolicy.ClaimsFor(actor), func(tx *sql.Tx) error {
		return tx.QueryRowContext(r.Context(), `
			INSERT INTO bookings (tenant_id, owner_id, space_id, starts_at, ends_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING id`,
			booking.TenantID, booking.OwnerID, booking.SpaceID,
			booking.StartsAt, booking.EndsAt, now).Scan(&booking.ID)
	})
	if err != nil {
		observability.LoggerWithTraceContext(r.Context(), h.logger).WithError(err).Error("booking creation failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteCreated(w, booking)
}

func (h *BookingHandlers) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSubject(w, r)
	if !ok {
		return
	}
	tenantID, ok := tenantScope(actor, r)
	if !ok {
		httputil.WriteAuthzError(w, authz.ErrTenantMismatch)
		return
	}

	decision := h.evaluator.CanAccess(r.Context(), actor,
		authz.OwnedResource(authz.ResourceAccessLog, tenantID, actor.ID), authz.ActionView)
	if !decision.Allowed {
		httputil.WriteAuthzError(w, authz.ErrNotAuthorized)
		return
	}

	logs := []*AccessLog{}
	err := rlspolicy.WithSessionClaims(r.Context(), h.db, rlspolicy.ClaimsFor(actor), func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(r.Context(), `
			SELECT id, tenant_id, subject_id, space_id, entered_at
			FROM access_logs
			WHERE tenant_id = $1
			ORDER BY entered_at DESC
			LIMIT 500`, tenantID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			l := &AccessLog{}
			if err := rows.Scan(&l.ID, &l.TenantID, &l.SubjectID, &l.SpaceID, &l.EnteredAt); err != nil {
				return err
			}
			logs = append(logs, l)
		}
		return rows.Err()
	})
	if err != nil {
		observability.LoggerWithTraceContext(r.Context(), h.logger).WithError(err).Error("access log listing failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, logs)
}
