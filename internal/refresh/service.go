// Package refresh periodically re-fetches the local aggregates so that any
// drift from the remote store is corrected without user action.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartsync/internal/session"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// ServiceParams configure the refresh service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Session  session.Provider
	Interval time.Duration
}

// Service runs registered jobs on a fixed cadence while a user is signed in.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	session  session.Provider
	interval time.Duration
}

// NewService builds a refresh service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session required")
	}
	if params.Interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		session:  params.Session,
		interval: params.Interval,
	}, nil
}

// Run ticks until the context is canceled. Sign-in already loads the
// aggregates, so the first cycle waits one interval.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "refresh service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle reports whether the jobs ran.
func (s *Service) runCycle(ctx context.Context) bool {
	userID, ok := s.session.CurrentUserID()
	if !ok {
		s.logg.Debug(ctx, "nobody signed in; skipping refresh")
		return false
	}
	ctx = s.logg.WithUserID(ctx, userID)
	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return true
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "refresh.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "refresh job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "refresh job completed")
}
