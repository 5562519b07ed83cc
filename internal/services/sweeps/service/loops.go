package service

import (
	"context"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

// Serve runs the hot and warm cadences until ctx is done. Cold walking
// stays with RunBackfill; it is an operator action, not a loop
func (s *Service) Serve(ctx context.Context) error {
	hotEvery := s.Cfg.HotEvery
	if hotEvery <= 0 {
		hotEvery = 15 * time.Minute
	}
	warmEvery := s.Cfg.WarmEvery
	if warmEvery <= 0 {
		warmEvery = time.Hour
	}

	logger.C(ctx).Info().
		Dur("hot_every", hotEvery).Dur("warm_every", warmEvery).
		Msg("sweeps: serve loops starting")

	errCh := make(chan error, 2)
	go func() { errCh <- s.tierLoop(ctx, domain.TierHot, hotEvery) }()
	go func() { errCh <- s.tierLoop(ctx, domain.TierWarm, warmEvery) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// tierLoop sweeps once immediately, then on the ticker. A failed sweep
// defers to the next tick; only bookkeeping errors stop the loop
func (s *Service) tierLoop(ctx context.Context, tier domain.Tier, every time.Duration) error {
	if err := s.sweepAndEvaluate(ctx, tier); err != nil {
		return err
	}

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := s.sweepAndEvaluate(ctx, tier); err != nil {
				return err
			}
		}
	}
}

func (s *Service) sweepAndEvaluate(ctx context.Context, tier domain.Tier) error {
	run, err := s.RunTier(ctx, tier)
	if err != nil {
		return err
	}
	if run.Status == domain.RunFailed {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.C(ctx).Error().
			Str("tier", string(tier)).Str("run_id", run.ID).Str("error", run.Error).
			Msg("sweeps: run failed, deferring to next tick")
		return nil
	}

	if s.Rules != nil {
		if err := s.Rules.EvaluateActive(ctx); err != nil {
			logger.C(ctx).Error().Err(err).
				Str("tier", string(tier)).
				Msg("sweeps: post-sweep rule evaluation failed")
		}
	}
	return nil
}
