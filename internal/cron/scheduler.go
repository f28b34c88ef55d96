package cron

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler represents the application's scheduler service
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.SugaredLogger
	jobs      []Job
}

// Job represents a scheduled job
type Job struct {
	Name     string
	Schedule string
	Task     func()
	JobID    string
}

// NewScheduler creates a new scheduler with the given timezone
func NewScheduler(logger *zap.SugaredLogger, timezone string) (*Scheduler, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warnw("failed to load timezone, using UTC", "timezone", timezone, "error", err)
		location = time.UTC
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(location),
		gocron.WithLogger(gocron.NewLogger(gocron.LogLevelInfo)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger,
		jobs:      make([]Job, 0),
	}, nil
}

// Start registers the queued jobs and begins the scheduler
func (s *Scheduler) Start() {
	s.RegisterJobs()

	s.scheduler.Start()
	s.logger.Info("Scheduler started")
}

// Stop halts the scheduler
func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Warnw("scheduler shutdown failed", "error", err)
		return
	}
	s.logger.Info("Scheduler stopped")
}

// RegisterJobs adds all queued jobs to the scheduler
func (s *Scheduler) RegisterJobs() {
	for i, job := range s.jobs {
		if job.JobID != "" {
			continue
		}
		s.logger.Infow("registering job", "job", job.Name, "schedule", job.Schedule)

		task := func() {
			startTime := time.Now()

			defer func() {
				if r := recover(); r != nil {
					s.logger.Errorw("job panicked", "job", job.Name, "panic", r)
				}
			}()

			job.Task()

			s.logger.Infow("job completed", "job", job.Name, "duration", time.Since(startTime))
		}

		j, err := s.scheduler.NewJob(
			gocron.CronJob(job.Schedule, false),
			gocron.NewTask(task),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Errorw("failed to schedule job", "job", job.Name, "error", err)
			continue
		}

		s.jobs[i].JobID = j.ID().String()
	}
}

// AddJob queues a job until Start
func (s *Scheduler) AddJob(name string, schedule string, task func()) {
	s.jobs = append(s.jobs, Job{
		Name:     name,
		Schedule: schedule,
		Task:     task,
	})
}

// Custom allows for advanced scheduling options
func (s *Scheduler) Custom(name string, schedule string, task func()) {
	s.AddJob(name, schedule, task)
}
