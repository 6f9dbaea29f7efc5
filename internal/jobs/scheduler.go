package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type ResetTokenSweeper interface {
	SweepExpiredResetTokens(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper ResetTokenSweeper
	spec    string
	timeout time.Duration
	log     zerolog.Logger
}

func NewScheduler(sweeper ResetTokenSweeper, spec string, timeout time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		spec:    spec,
		timeout: timeout,
		log:     log,
	}
}

// Start registers the jobs and starts the cron loop. An empty spec disables
// the sweep.
func (s *Scheduler) Start() error {
	if s.sweeper == nil || s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.sweepResetTokens); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish or gives up after five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepResetTokens() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	n, err := s.sweeper.SweepExpiredResetTokens(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reset token sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("cleared", n).Msg("expired reset tokens cleared")
	}
}
