package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	bcdomain "github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/adapter"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

type orchestratorMetrics struct {
	runs     metric.Int64Counter
	busy     metric.Int64Counter
	duration metric.Float64Histogram
}

// Orchestrator runs fetch, submit and confirm for one domain. At most one
// run per domain is in flight; a concurrent call is rejected with BUSY.
// Runs are never retried: the next trigger recomputes fresh data.
type Orchestrator struct {
	adapter   adapter.Adapter
	contract  *bcdomain.Contract
	estimator EstimateClient
	submitter TransactionSubmitter
	logger    logger.LoggerInterface
	newJobID  func() string

	inFlight atomic.Bool

	mu     sync.RWMutex
	status domain.Status

	tracer  trace.Tracer
	metrics *orchestratorMetrics
}

// NewOrchestrator creates the orchestrator for a.Domain().
func NewOrchestrator(
	a adapter.Adapter,
	contract *bcdomain.Contract,
	estimator EstimateClient,
	submitter TransactionSubmitter,
	log logger.LoggerInterface,
) (*Orchestrator, error) {
	o := &Orchestrator{
		adapter:   a,
		contract:  contract,
		estimator: estimator,
		submitter: submitter,
		logger:    log.With("domain", a.Domain().String()),
		newJobID:  uuid.NewString,
		status: domain.Status{
			Domain: a.Domain(),
			State:  domain.StateIdle,
			Since:  time.Now(),
		},
		tracer: otel.Tracer(tracerName),
	}
	if err := o.initMetrics(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Orchestrator) initMetrics() error {
	meter := otel.Meter(meterName)
	o.metrics = &orchestratorMetrics{}

	var err error
	o.metrics.runs, err = meter.Int64Counter("oracle_runs_total",
		metric.WithDescription("Completed oracle runs by domain, trigger and outcome"),
		metric.WithUnit("{run}"))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	o.metrics.busy, err = meter.Int64Counter("oracle_busy_rejections_total",
		metric.WithDescription("Runs rejected because one was already in flight"),
		metric.WithUnit("{run}"))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	o.metrics.duration, err = meter.Float64Histogram("oracle_run_duration_seconds",
		metric.WithDescription("Duration of oracle runs from fetch to terminal state"),
		metric.WithUnit("s"))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	return nil
}

// Domain returns the domain this orchestrator serves.
func (o *Orchestrator) Domain() domain.Domain {
	return o.adapter.Domain()
}

// Status returns a snapshot of the current job and the last finished run.
func (o *Orchestrator) Status() domain.Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.status
	if s.LastRun != nil {
		last := *s.LastRun
		s.LastRun = &last
	}
	return s
}

// Run executes one fetch-then-submit cycle. It never panics and never
// returns an error value; failures are reported in the result.
func (o *Orchestrator) Run(ctx context.Context, trigger domain.Trigger) (result domain.RunResult) {
	d := o.Domain()

	if !o.inFlight.CompareAndSwap(false, true) {
		o.mu.Lock()
		o.status.Rejections++
		jobID := o.status.JobID
		o.mu.Unlock()

		o.metrics.busy.Add(ctx, 1, metric.WithAttributes(attribute.String("domain", d.String())))
		o.logger.Warn(ctx, "run rejected, update already in flight",
			"trigger", string(trigger), "in_flight_job", jobID)
		return domain.RunResult{
			Domain: d,
			Err:    apperror.New(apperror.CodeBusy, apperror.WithContext(d.String())),
		}
	}
	defer o.inFlight.Store(false)

	job := &job{
		id:      o.newJobID(),
		trigger: trigger,
		started: time.Now(),
	}
	log := o.logger.With("job_id", job.id, "trigger", string(trigger))

	ctx, span := o.tracer.Start(ctx, "oracle.run",
		trace.WithAttributes(
			attribute.String("domain", d.String()),
			attribute.String("job_id", job.id),
			attribute.String("trigger", string(trigger)),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := apperror.New(apperror.CodeInternalError, apperror.WithContext(fmt.Sprintf("panic: %v", r)))
			result = o.fail(ctx, log, job, err)
		}
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, string(apperror.GetCode(result.Err)))
		} else {
			span.SetStatus(codes.Ok, "succeeded")
		}
	}()

	log.Info(ctx, "starting oracle update")
	o.transition(job, domain.StateFetching, "")

	estimate, err := o.estimator.Estimate(ctx, o.adapter)
	if err != nil {
		return o.fail(ctx, log, job, err)
	}

	payload, err := o.adapter.PayloadFromResult(estimate)
	if err != nil {
		return o.fail(ctx, log, job, err)
	}

	o.transition(job, domain.StateSubmitting, "")
	log.Info(ctx, "pushing data to blockchain",
		"carbon_kg", estimate.CarbonKg.String(),
		"method", payload.Method(),
		"contract", o.contract.Address.Hex(),
	)

	receipt, err := o.submitter.Submit(ctx, SubmitRequest{
		Contract: o.contract,
		Payload:  payload,
		OnBroadcast: func(txHash string) {
			o.transition(job, domain.StateConfirming, txHash)
		},
	})
	if err != nil {
		return o.fail(ctx, log, job, err)
	}

	o.finish(ctx, job, domain.StateSucceeded, receipt, nil)
	log.Info(ctx, "oracle update succeeded",
		"tx_hash", receipt.TransactionHash,
		"block_number", receipt.BlockNumber,
		"duration", time.Since(job.started).String(),
	)

	return domain.RunResult{
		Success: true,
		JobID:   job.id,
		Domain:  d,
		Data:    estimate,
		Receipt: receipt,
	}
}

// job is the transient state of one run.
type job struct {
	id      string
	trigger domain.Trigger
	started time.Time
	txHash  string
}

func (o *Orchestrator) transition(j *job, to domain.JobState, txHash string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if txHash != "" {
		j.txHash = txHash
	}
	o.status.State = to
	o.status.JobID = j.id
	o.status.Since = time.Now()
}

func (o *Orchestrator) fail(ctx context.Context, log logger.LoggerInterface, j *job, err error) domain.RunResult {
	o.finish(ctx, j, domain.StateFailed, nil, err)

	fields := []any{"code", string(apperror.GetCode(err)), "error", err.Error()}
	if j.txHash != "" {
		fields = append(fields, "tx_hash", j.txHash)
	}
	log.Error(ctx, "oracle update failed", fields...)

	return domain.RunResult{
		JobID:  j.id,
		Domain: o.Domain(),
		Err:    err,
	}
}

// finish records the terminal state and returns the domain to idle.
func (o *Orchestrator) finish(ctx context.Context, j *job, state domain.JobState, receipt *domain.Receipt, err error) {
	now := time.Now()
	summary := &domain.RunSummary{
		JobID:      j.id,
		Trigger:    j.trigger,
		State:      state,
		StartedAt:  j.started,
		FinishedAt: now,
		TxHash:     j.txHash,
	}
	if receipt != nil {
		summary.TxHash = receipt.TransactionHash
		summary.BlockNumber = receipt.BlockNumber
	}
	if err != nil {
		summary.ErrorCode = string(apperror.GetCode(err))
		summary.Error = err.Error()
	}

	o.mu.Lock()
	o.status.State = domain.StateIdle
	o.status.JobID = ""
	o.status.Since = now
	o.status.LastRun = summary
	o.status.Runs++
	if err != nil {
		o.status.Failures++
	}
	o.mu.Unlock()

	outcome := "succeeded"
	if err != nil {
		outcome = summary.ErrorCode
	}
	attrs := metric.WithAttributes(
		attribute.String("domain", o.Domain().String()),
		attribute.String("trigger", string(j.trigger)),
		attribute.String("outcome", outcome),
	)
	o.metrics.runs.Add(ctx, 1, attrs)
	o.metrics.duration.Record(ctx, now.Sub(j.started).Seconds(), attrs)
}
