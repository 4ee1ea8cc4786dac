package services

import (
	"time"

	"yourland-onboarding/resolver"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartMaintenanceScheduler sweeps expired resolver cache entries every interval.
// The caller shuts the returned scheduler down.
func StartMaintenanceScheduler(cache *resolver.Cache, interval time.Duration, log *zap.Logger) (gocron.Scheduler, error) {
	log = log.Named("scheduler")
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := cache.Sweep(); n > 0 {
				log.Debug("swept resolver cache", zap.Int("expired", n), zap.Int("remaining", cache.Len()))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	log.Info("maintenance scheduler started", zap.Duration("interval", interval))
	return sched, nil
}
