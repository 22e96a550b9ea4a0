package invites

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deskhive/deskhive/pkg/observability"
)

// DefaultSweepSchedule runs the expiry sweep hourly.
const DefaultSweepSchedule = "@hourly"

// Sweeper periodically expires overdue pending invitations so they can never
// be accepted late and tenant invitation lists stay truthful.
type Sweeper struct {
	store   invitationStore
	logger  *observability.Logger
	metrics *observability.Metrics
	cron    *cron.Cron
}

// NewSweeper creates a sweeper on the given cron schedule.
func NewSweeper(store *InvitationStore, logger *observability.Logger, metrics *observability.Metrics, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		store:   store,
		logger:  logger,
		metrics: metrics,
		cron:    cron.New(),
	}

	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.RunOnce(ctx); err != nil {
			s.logger.WithError(err).Error("invitation expiry sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the background schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	swept, err := s.store.ExpirePending(ctx)
	if err != nil {
		return err
	}
	if swept > 0 {
		if s.metrics != nil {
			s.metrics.InvitationsExpiredTotal.Add(float64(swept))
		}
		s.logger.WithField("count", swept).Info("expired overdue invitations")
	}
	return nil
}
