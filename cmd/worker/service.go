package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

const notificationsJob = "notifications_consumer"

type runner interface {
	Run(ctx context.Context) error
}

type jobRecorder interface {
	ObserveDuration(job string, duration time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

type ServiceParams struct {
	Logger        *logger.Logger
	Dependencies  map[string]func(context.Context) error
	Notifications runner
	Jobs          jobRecorder
}

// Service hosts the inquiry notification consumer once every dependency
// answers a ping.
type Service struct {
	logg          *logger.Logger
	deps          map[string]func(context.Context) error
	notifications runner
	jobs          jobRecorder
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Notifications == nil {
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		logg:          params.Logger,
		deps:          params.Dependencies,
		notifications: params.Notifications,
		jobs:          params.Jobs,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, ping := range s.deps {
		if err := ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", name), "worker.dependency_unavailable", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until the consumer returns or ctx is canceled. A consumer that
// exits on its own is recorded as a job failure.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := s.notifications.Run(ctx)
	if s.jobs != nil {
		s.jobs.ObserveDuration(notificationsJob, time.Since(start))
	}

	switch {
	case err == nil || errors.Is(err, context.Canceled):
		if s.jobs != nil {
			s.jobs.IncSuccess(notificationsJob)
		}
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	default:
		if s.jobs != nil {
			s.jobs.IncFailure(notificationsJob)
		}
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
}
