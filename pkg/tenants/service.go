package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/cache"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/observability"
)

// tenantStore is the persistence surface the service needs.
type tenantStore interface {
	Create(ctx context.Context, name, slug string) (*Tenant, error)
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	UpdateName(ctx context.Context, id int64, name string) error
	SetSuspended(ctx context.Context, id int64, suspended bool) error
	Delete(ctx context.Context, id int64) error
}

// memberStore is the slice of the identity store used for membership admin.
type memberStore interface {
	GetByID(ctx context.Context, id int64) (*identity.SubjectRecord, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]*identity.SubjectRecord, error)
	SetRole(ctx context.Context, subjectID int64, role authz.Role, tenantID *int64) error
	Deactivate(ctx context.Context, subjectID int64) error
}

// sessionInvalidator drops a cached subject after a privilege-changing write.
type sessionInvalidator interface {
	Invalidate(ctx context.Context, externalID string) error
}

// Service guards tenant CRUD and membership administration behind the
// evaluator.
type Service struct {
	store     tenantStore
	members   memberStore
	evaluator *authz.Evaluator
	sessions  sessionInvalidator
	logger    *observability.Logger
}

// NewService creates a tenant service. sessions may be nil when no subject
// cache is in play.
func NewService(store *TenantStore, members *identity.SubjectStore, evaluator *authz.Evaluator, sessions *cache.SubjectCache, logger *observability.Logger) *Service {
	s := &Service{
		store:     store,
		members:   members,
		evaluator: evaluator,
		logger:    logger,
	}
	if sessions != nil {
		s.sessions = sessions
	}
	return s
}

// Create provisions a new tenant. Tenant creation is platform-level; only
// SUPER_ADMIN holds the grant.
func (s *Service) Create(ctx context.Context, actor authz.Subject, name, slug string) (*Tenant, error) {
	decision := s.evaluator.CanAccess(actor, authz.PlatformResource(authz.ResourceTenant), authz.ActionCreate)
	if !decision.Allowed {
		s.logDenied(actor, "create", decision.Reason)
		return nil, authz.ErrNotAuthorized
	}

	tenant, err := s.store.Create(ctx, name, slug)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(map[string]interface{}{
		"tenant_id": tenant.ID,
		"slug":      tenant.Slug,
	}).Info("tenant created")
	return tenant, nil
}

// Get returns a tenant the actor may view.
func (s *Service) Get(ctx context.Context, actor authz.Subject, tenantID int64) (*Tenant, error) {
	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceTenant, tenantID), authz.ActionView)
	if !decision.Allowed {
		s.logDenied(actor, "get", decision.Reason)
		return nil, authz.ErrNotAuthorized
	}
	return s.store.GetByID(ctx, tenantID)
}

// List returns all tenants; platform operators only.
func (s *Service) List(ctx context.Context, actor authz.Subject) ([]*Tenant, error) {
	if actor.Role != authz.RoleSuperAdmin {
		s.logDenied(actor, "list", "cross-tenant listing requires SUPER_ADMIN")
		return nil, authz.ErrNotAuthorized
	}
	return s.store.List(ctx)
}

// Rename updates a tenant's display name.
func (s *Service) Rename(ctx context.Context, actor authz.Subject, tenantID int64, name string) error {
	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceTenant, tenantID), authz.ActionUpdate)
	if !decision.Allowed {
		s.logDenied(actor, "rename", decision.Reason)
		return authz.ErrNotAuthorized
	}
	return s.store.UpdateName(ctx, tenantID, name)
}

// Suspend disables a tenant platform-wide; SUPER_ADMIN only. Suspension is
// modeled as delete-level privilege because it takes the whole tenant
// offline.
func (s *Service) Suspend(ctx context.Context, actor authz.Subject, tenantID int64, suspended bool) error {
	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceTenant, tenantID), authz.ActionDelete)
	if !decision.Allowed {
		s.logDenied(actor, "suspend", decision.Reason)
		return authz.ErrNotAuthorized
	}
	if err := s.store.SetSuspended(ctx, tenantID, suspended); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"suspended": suspended,
	}).Warn("tenant suspension changed")
	return nil
}

// Delete removes a tenant permanently; SUPER_ADMIN only.
func (s *Service) Delete(ctx context.Context, actor authz.Subject, tenantID int64) error {
	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceTenant, tenantID), authz.ActionDelete)
	if !decision.Allowed {
		s.logDenied(actor, "delete", decision.Reason)
		return authz.ErrNotAuthorized
	}
	return s.store.Delete(ctx, tenantID)
}

// Members lists the subjects assigned to a tenant.
func (s *Service) Members(ctx context.Context, actor authz.Subject, tenantID int64) ([]*identity.SubjectRecord, error) {
	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceUser, tenantID), authz.ActionView)
	if !decision.Allowed {
		s.logDenied(actor, "members", decision.Reason)
		return nil, authz.ErrNotAuthorized
	}
	return s.members.ListByTenant(ctx, tenantID)
}

// SetMemberRole changes a member's role within the actor's reach: the member
// must be in a tenant the actor can update users in, and the new role must
// be assignable by the actor.
func (s *Service) SetMemberRole(ctx context.Context, actor authz.Subject, memberID int64, role authz.Role) error {
	member, err := s.loadMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member.TenantID == nil {
		return authz.ErrTenantMismatch
	}

	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceUser, *member.TenantID), authz.ActionUpdate)
	if !decision.Allowed {
		s.logDenied(actor, "set_member_role", decision.Reason)
		return authz.ErrNotAuthorized
	}

	// The current role must be within reach too, or a lower admin could
	// demote someone they cannot manage.
	if !authz.CanAssign(actor, role) || !authz.CanAssign(actor, member.Role) {
		s.logger.WithFields(map[string]interface{}{
			"subject_id":     actor.ID,
			"member_id":      memberID,
			"requested_role": string(role),
		}).Warn("member role change outside assignable range")
		return authz.ErrInvalidRoleAssignment
	}

	if err := s.members.SetRole(ctx, memberID, role, member.TenantID); err != nil {
		return err
	}
	s.invalidateSession(ctx, member.ExternalID)
	return nil
}

// DeactivateMember disables a member's account.
func (s *Service) DeactivateMember(ctx context.Context, actor authz.Subject, memberID int64) error {
	member, err := s.loadMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member.TenantID == nil && actor.Role != authz.RoleSuperAdmin {
		return authz.ErrTenantMismatch
	}

	res := authz.PlatformResource(authz.ResourceUser)
	if member.TenantID != nil {
		res = authz.TenantResource(authz.ResourceUser, *member.TenantID)
	}
	decision := s.evaluator.CanAccess(actor, res, authz.ActionDelete)
	if !decision.Allowed {
		s.logDenied(actor, "deactivate_member", decision.Reason)
		return authz.ErrNotAuthorized
	}

	if !authz.CanAssign(actor, member.Role) {
		return authz.ErrInvalidRoleAssignment
	}

	if err := s.members.Deactivate(ctx, memberID); err != nil {
		return err
	}
	s.invalidateSession(ctx, member.ExternalID)
	return nil
}

// loadMember fetches a member; a missing row is indistinguishable from a
// denial, anything else is a real failure.
func (s *Service) loadMember(ctx context.Context, memberID int64) (*identity.SubjectRecord, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authz.ErrNotAuthorized
		}
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	return member, nil
}

func (s *Service) invalidateSession(ctx context.Context, externalID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Invalidate(ctx, externalID); err != nil {
		s.logger.WithError(err).Warn("subject cache invalidation failed")
	}
}

func (s *Service) logDenied(actor authz.Subject, operation, reason string) {
	s.logger.WithFields(map[string]interface{}{
		"subject_id": actor.ID,
		"operation":  operation,
		"reason":     reason,
	}).Warn("tenant operation denied")
}
