package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

// DefaultSchedule fires at the top of every hour.
const DefaultSchedule = "0 * * * *"

// Scheduler triggers every runner on a cron schedule and, optionally, once
// at startup. Results are only logged.
type Scheduler struct {
	cron         *cron.Cron
	spec         string
	runOnStartup bool
	runners      []Runner
	logger       logger.LoggerInterface

	wg sync.WaitGroup
}

// NewScheduler validates spec and creates a Scheduler.
func NewScheduler(spec string, runOnStartup bool, log logger.LoggerInterface, runners ...Runner) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("schedule "+spec),
			apperror.WithCause(err))
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{log}),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
		spec:         spec,
		runOnStartup: runOnStartup,
		runners:      runners,
		logger:       log,
	}, nil
}

// Start registers the cron entries and launches the startup runs. It does
// not block; ctx bounds every run it starts.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, r := range s.runners {
		if _, err := s.cron.AddFunc(s.spec, func() {
			s.runOnce(ctx, r, domain.TriggerSchedule)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", r.Domain(), err)
		}
	}
	s.cron.Start()
	s.logger.Info(ctx, "scheduler started", "schedule", s.spec, "domains", len(s.runners))

	if s.runOnStartup {
		for _, r := range s.runners {
			s.wg.Add(1)
			go func(r Runner) {
				defer s.wg.Done()
				s.runOnce(ctx, r, domain.TriggerStartup)
			}(r)
		}
	}
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) runOnce(ctx context.Context, r Runner, trigger domain.Trigger) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info(ctx, "running scheduled carbon data update", "domain", r.Domain().String(), "trigger", string(trigger))

	res := r.Run(ctx, trigger)
	switch {
	case res.Success:
		s.logger.Info(ctx, "scheduled update completed",
			"domain", r.Domain().String(),
			"job_id", res.JobID,
			"tx_hash", res.Receipt.TransactionHash,
			"block_number", res.Receipt.BlockNumber,
		)
	case apperror.HasCode(res.Err, apperror.CodeBusy):
		s.logger.Info(ctx, "scheduled update skipped, previous run still in flight", "domain", r.Domain().String())
	default:
		s.logger.Warn(ctx, "scheduled update failed",
			"domain", r.Domain().String(),
			"job_id", res.JobID,
			"code", string(apperror.GetCode(res.Err)),
			"error", res.Err,
		)
	}
}

// cronLogger adapts LoggerInterface to cron.Logger.
type cronLogger struct {
	log logger.LoggerInterface
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(context.Background(), "cron: "+msg, append(keysAndValues, "error", err)...)
}
