package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/robfig/cron/v3"
	"github.com/siahsang/conduit/internal/ratelimit"
)

const (
	reconcileTimeout     = time.Minute
	limiterCleanupPeriod = "@every 1m"
	limiterMaxIdle       = 3 * time.Minute
)

// startJobs schedules the maintenance jobs. It is a no-op when nothing is enabled.
func (app *application) startJobs() error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(app.logger.Handler(), slog.LevelInfo))
	app.cron = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if schedule := app.config.Jobs.FavoritesReconcileSchedule; schedule != "" {
		if _, err := app.cron.AddFunc(schedule, app.reconcileFavorites); err != nil {
			return xerrors.Newf("invalid FAVORITES_RECONCILE_SCHEDULE %q: %w", schedule, err)
		}
		// catch up on drift left by a previous crash
		app.doInBackground(app.reconcileFavorites)
	}

	if memoryLimiter, ok := app.limiter.(*ratelimit.MemoryLimiter); ok {
		if _, err := app.cron.AddFunc(limiterCleanupPeriod, func() {
			if dropped := memoryLimiter.Cleanup(limiterMaxIdle); dropped > 0 {
				app.logger.Debug("Dropped idle rate limiter entries", "count", dropped, "tracked", memoryLimiter.Len())
			}
		}); err != nil {
			return xerrors.New(err)
		}
	}

	app.cron.Start()
	return nil
}

// stopJobs stops scheduling and waits for running jobs until ctx expires.
func (app *application) stopJobs(ctx context.Context) {
	if app.cron == nil {
		return
	}

	select {
	case <-app.cron.Stop().Done():
	case <-ctx.Done():
		app.logger.Warn("Timed out waiting for scheduled jobs")
	}
}

func (app *application) reconcileFavorites() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	start := time.Now()
	fixed, err := app.core.ReconcileFavoritesCount(ctx)
	if err != nil {
		app.logger.Error("Favorites reconciliation failed", slog.String("stack", xerrors.Sprint(err)))
		return
	}

	app.metrics.ReconciledDrifts.Add(float64(fixed))
	app.logger.Info("Favorites reconciliation finished", "fixed", fixed, "duration", time.Since(start))
}
