package invites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/cache"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/observability"
)

// invitationStore is the persistence surface the service needs.
type invitationStore interface {
	Create(ctx context.Context, inv *Invitation) (*Invitation, error)
	GetByID(ctx context.Context, id int64) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]*Invitation, error)
	Accept(ctx context.Context, token string, acceptedBy int64) (*Invitation, error)
	Revoke(ctx context.Context, id int64) (*Invitation, error)
	ExpirePending(ctx context.Context) (int64, error)
}

// roleAssigner applies the invited role once an invitation is accepted.
type roleAssigner interface {
	SetRole(ctx context.Context, subjectID int64, role authz.Role, tenantID *int64) error
}

// sessionInvalidator drops a cached subject after a privilege-changing write.
type sessionInvalidator interface {
	Invalidate(ctx context.Context, externalID string) error
}

// Service runs the invitation lifecycle. Every entry point takes the acting
// subject and consults the evaluator; the store's conditional updates close
// the races the evaluator cannot.
type Service struct {
	store     invitationStore
	subjects  roleAssigner
	evaluator *authz.Evaluator
	sessions  sessionInvalidator
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewService creates an invitation service. sessions and metrics may be nil.
func NewService(store *InvitationStore, subjects *identity.SubjectStore, evaluator *authz.Evaluator, sessions *cache.SubjectCache, logger *observability.Logger, metrics *observability.Metrics) *Service {
	s := &Service{
		store:     store,
		subjects:  subjects,
		evaluator: evaluator,
		logger:    logger,
		metrics:   metrics,
	}
	if sessions != nil {
		s.sessions = sessions
	}
	return s
}

// Create issues a pending invitation. The tenant is the inviter's own unless
// the inviter is SUPER_ADMIN, and the role must be one the inviter may
// assign; requesting anything else is ErrInvalidRoleAssignment, never a
// silent downgrade.
func (s *Service) Create(ctx context.Context, inviter authz.Subject, tenantID int64, email string, role authz.Role) (*Invitation, error) {
	if inviter.Role != authz.RoleSuperAdmin {
		if inviter.TenantID == nil {
			return nil, authz.ErrNotAuthorized
		}
		tenantID = *inviter.TenantID
	}

	decision := s.evaluator.CanAccess(inviter, authz.TenantResource(authz.ResourceInvitation, tenantID), authz.ActionCreate)
	if !decision.Allowed {
		s.logDenied(inviter, "create", decision.Reason)
		return nil, authz.ErrNotAuthorized
	}

	if !authz.CanAssign(inviter, role) {
		s.logger.WithFields(map[string]interface{}{
			"subject_id":     inviter.ID,
			"requested_role": string(role),
		}).Warn("invitation requested an unassignable role")
		return nil, authz.ErrInvalidRoleAssignment
	}

	inv := &Invitation{
		TenantID:  tenantID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Token:     uuid.NewString(),
		InvitedBy: inviter.ID,
		ExpiresAt: time.Now().UTC().Add(DefaultTTL),
	}
	if inv.Email == "" {
		return nil, fmt.Errorf("invitation email is required")
	}

	created, err := s.store.Create(ctx, inv)
	if err != nil {
		return nil, err
	}

	s.recordTransition(string(StatusPending))
	s.logger.WithFields(map[string]interface{}{
		"invitation_id": created.ID,
		"tenant_id":     created.TenantID,
		"role":          string(created.Role),
		"invited_by":    inviter.ID,
	}).Info("invitation created")
	return created, nil
}

// Accept redeems a token for the signed-in subject. The invited email must
// match the subject's, and the stored compare-and-set rejects anything but a
// live PENDING invitation. On success the subject takes the invited role and
// tenant.
func (s *Service) Accept(ctx context.Context, acceptor *identity.SubjectRecord, token string) (*Invitation, error) {
	inv, err := s.store.GetByToken(ctx, token)
	if err != nil {
		// An unknown token is indistinguishable from a denial; anything
		// else is a real failure.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authz.ErrNotAuthorized
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	if !strings.EqualFold(inv.Email, acceptor.Email) {
		s.logger.WithFields(map[string]interface{}{
			"invitation_id": inv.ID,
			"subject_id":    acceptor.ID,
		}).Warn("invitation accept attempted by different email")
		return nil, authz.ErrNotAuthorized
	}

	accepted, err := s.store.Accept(ctx, token, acceptor.ID)
	if err != nil {
		return nil, err
	}

	tenantID := accepted.TenantID
	if err := s.subjects.SetRole(ctx, acceptor.ID, accepted.Role, &tenantID); err != nil {
		return nil, fmt.Errorf("failed to assign invited role: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.Invalidate(ctx, acceptor.ExternalID); err != nil {
			s.logger.WithError(err).Warn("subject cache invalidation failed")
		}
	}

	s.recordTransition(string(StatusAccepted))
	s.logger.WithFields(map[string]interface{}{
		"invitation_id": accepted.ID,
		"subject_id":    acceptor.ID,
		"tenant_id":     accepted.TenantID,
		"role":          string(accepted.Role),
	}).Info("invitation accepted")
	return accepted, nil
}

// Revoke withdraws a pending invitation in the actor's scope.
func (s *Service) Revoke(ctx context.Context, actor authz.Subject, invitationID int64) (*Invitation, error) {
	inv, err := s.store.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authz.ErrNotAuthorized
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceInvitation, inv.TenantID), authz.ActionUpdate)
	if !decision.Allowed {
		s.logDenied(actor, "revoke", decision.Reason)
		return nil, authz.ErrNotAuthorized
	}

	revoked, err := s.store.Revoke(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	s.recordTransition(string(StatusRevoked))
	s.logger.WithFields(map[string]interface{}{
		"invitation_id": revoked.ID,
		"revoked_by":    actor.ID,
	}).Info("invitation revoked")
	return revoked, nil
}

// List returns the invitations of a tenant the actor may view.
func (s *Service) List(ctx context.Context, actor authz.Subject, tenantID int64) ([]*Invitation, error) {
	decision := s.evaluator.CanAccess(actor, authz.TenantResource(authz.ResourceInvitation, tenantID), authz.ActionView)
	if !decision.Allowed {
		s.logDenied(actor, "list", decision.Reason)
		return nil, authz.ErrNotAuthorized
	}
	return s.store.ListByTenant(ctx, tenantID)
}

func (s *Service) logDenied(actor authz.Subject, operation, reason string) {
	s.logger.WithFields(map[string]interface{}{
		"subject_id": actor.ID,
		"operation":  operation,
		"reason":     reason,
	}).Warn("invitation operation denied")
}

func (s *Service) recordTransition(toStatus string) {
	if s.metrics != nil {
		s.metrics.RecordInvitationTransition(toStatus)
	}
}
