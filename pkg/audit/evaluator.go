package audit

import (
	"context"
	"time"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/observability"
)

// decisionSink is where audited decisions land.
type decisionSink interface {
	Record(ctx context.Context, event *DecisionEvent) error
}

// Evaluator wraps the policy evaluator with the decision trail and metrics.
// Services that want auditing call CanAccess here instead of on the bare
// evaluator; the verdict is identical.
type Evaluator struct {
	inner    *authz.Evaluator
	sink     decisionSink
	logger   *observability.Logger
	metrics  *observability.Metrics
	denyOnly bool
}

// NewEvaluator creates an audited evaluator. When denyOnly is set only
// denials are persisted, which keeps the trail small under read-heavy load.
func NewEvaluator(inner *authz.Evaluator, sink *Recorder, logger *observability.Logger, metrics *observability.Metrics, denyOnly bool) *Evaluator {
	e := &Evaluator{
		inner:    inner,
		logger:   logger,
		metrics:  metrics,
		denyOnly: denyOnly,
	}
	if sink != nil {
		e.sink = sink
	}
	return e
}

// Table exposes the underlying permission table.
func (e *Evaluator) Table() *authz.PermissionTable {
	return e.inner.Table()
}

// CanAccess evaluates and records the decision.
func (e *Evaluator) CanAccess(ctx context.Context, s authz.Subject, res authz.ResourceDescriptor, action authz.Action) authz.Decision {
	start := time.Now()
	decision := e.inner.CanAccess(s, res, action)
	elapsed := time.Since(start)

	if e.metrics != nil {
		e.metrics.RecordAuthzDecision(string(res.Type), string(action), decision.Allowed, elapsed)
	}

	if e.sink != nil && (!decision.Allowed || !e.denyOnly) {
		event := &DecisionEvent{
			RequestID:   observability.GetRequestID(ctx),
			SubjectID:   s.ID,
			SubjectRole: s.Role,
			TenantID:    s.TenantID,
			Resource:    res.Type,
			Action:      action,
			Allowed:     decision.Allowed,
			Reason:      decision.Reason,
		}
		if err := e.sink.Record(ctx, event); err != nil {
			// The trail is best-effort; the decision itself stands.
			e.logger.WithError(err).Error("failed to record authorization decision")
		}
	}

	if !decision.Allowed {
		e.logger.WithFields(map[string]interface{}{
			"subject_id": s.ID,
			"role":       string(s.Role),
			"resource":   string(res.Type),
			"action":     string(action),
			"reason":     decision.Reason,
		}).Warn("access denied")
	}

	return decision
}
