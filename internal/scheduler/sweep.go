package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const sessionSweepJobName = "editor_session_sweep"

// Sweeper evicts idle sessions and reports how many were dropped.
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
	Len() int
}

// RegisterSessionSweep schedules periodic eviction of idle editor sessions.
func RegisterSessionSweep(svc *Service, store Sweeper, cronExpr string, maxIdle time.Duration) error {
	if store == nil {
		return fmt.Errorf("session sweep requires a session store")
	}
	if maxIdle <= 0 {
		return fmt.Errorf("session sweep requires a positive idle timeout")
	}

	jobLogger := log.With().
		Str("component", "session_sweep_job").
		Str("job_name", sessionSweepJobName).
		Dur("max_idle", maxIdle).
		Logger()

	_, err := svc.AddJob(sessionSweepJobName, cronExpr, func() {
		removed := store.Sweep(maxIdle)
		jobLogger.Debug().Int("removed", removed).Int("remaining", store.Len()).Msg("Session sweep finished")
	}, gocron.WithSingletonMode(gocron.LimitModeReschedule))
	if err != nil {
		return fmt.Errorf("add session sweep job: %w", err)
	}

	jobLogger.Info().Msg("Session sweep job registered")
	return nil
}
