package app

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// maintenanceTimeout bounds the VACUUM job.
const maintenanceTimeout = 2 * time.Minute

// startScheduler registers and starts the background jobs: the periodic
// state checkpoint and archive maintenance.
func (a *App) startScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(a.cfg.Cache.FlushInterval),
		gocron.NewTask(func() {
			a.mu.Lock()
			dirty := a.dirty
			a.mu.Unlock()
			if !dirty {
				return
			}
			a.logger.Debug("running state checkpoint")
			a.Checkpoint()
		}),
		gocron.WithName("state_checkpoint"),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(a.cfg.Archive.MaintenanceInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
			defer cancel()
			if err := a.store.RunMaintenance(ctx); err != nil {
				a.logger.Error("archive maintenance failed", "error", err)
			}
		}),
		gocron.WithName("archive_maintenance"),
	); err != nil {
		return nil, err
	}

	sched.Start()
	a.logger.Info("background jobs started",
		"checkpoint_interval", a.cfg.Cache.FlushInterval,
		"maintenance_interval", a.cfg.Archive.MaintenanceInterval)
	return sched, nil
}
