package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	bcdomain "github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

const (
	tracerName = "github.com/fd1az/carbon-oracle/business/oracle/app"
	meterName  = "github.com/fd1az/carbon-oracle/business/oracle/app"
)

// SubmitterConfig holds the pricing and confirmation policy.
type SubmitterConfig struct {
	GasPremiumPct  uint64
	ConfirmTimeout time.Duration
}

// DefaultSubmitterConfig returns a 10% premium and a five minute wait.
func DefaultSubmitterConfig() SubmitterConfig {
	return SubmitterConfig{GasPremiumPct: 10, ConfirmTimeout: 5 * time.Minute}
}

// SubmitRequest is one contract update.
type SubmitRequest struct {
	Contract *bcdomain.Contract
	Payload  domain.SubmissionPayload

	// OnBroadcast, if set, is called once the node accepted the transaction.
	OnBroadcast func(txHash string)
}

type submitterMetrics struct {
	submissions  metric.Int64Counter
	confirmation metric.Float64Histogram
}

// Submitter prices, broadcasts and confirms oracle updates. It is not
// idempotent: every call that passes broadcast costs gas.
type Submitter struct {
	chain  ChainClient
	config SubmitterConfig
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *submitterMetrics
}

// NewSubmitter creates a Submitter.
func NewSubmitter(chain ChainClient, cfg SubmitterConfig, log logger.LoggerInterface) (*Submitter, error) {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultSubmitterConfig().ConfirmTimeout
	}
	s := &Submitter{
		chain:  chain,
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Submitter) initMetrics() error {
	meter := otel.Meter(meterName)
	s.metrics = &submitterMetrics{}

	var err error
	s.metrics.submissions, err = meter.Int64Counter("oracle_submissions_total",
		metric.WithDescription("Oracle update submissions by contract and outcome"),
		metric.WithUnit("{tx}"))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	s.metrics.confirmation, err = meter.Float64Histogram("oracle_confirmation_seconds",
		metric.WithDescription("Time from broadcast to inclusion"),
		metric.WithUnit("s"))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	return nil
}

// Submit prices the call at the observed gas price plus the premium,
// broadcasts it and blocks until it is mined or the confirmation window ends.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*domain.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "oracle.submit",
		trace.WithAttributes(
			attribute.String("contract", req.Contract.Name),
			attribute.String("method", req.Payload.Method()),
		),
	)
	defer span.End()

	receipt, err := s.submit(ctx, req)
	outcome := "confirmed"
	if err != nil {
		outcome = string(apperror.GetCode(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
	} else {
		span.SetAttributes(
			attribute.String("tx_hash", receipt.TransactionHash),
			attribute.Int64("block_number", int64(receipt.BlockNumber)),
		)
		span.SetStatus(codes.Ok, "confirmed")
	}
	s.metrics.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("contract", req.Contract.Name),
		attribute.String("outcome", outcome),
	))
	return receipt, err
}

func (s *Submitter) submit(ctx context.Context, req SubmitRequest) (*domain.Receipt, error) {
	observed, err := s.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, ensureCode(err, apperror.CodeGasPriceFetchFailed)
	}
	gasPrice := observed.WithPremium(s.config.GasPremiumPct)

	pending, err := s.chain.SendCall(ctx, bcdomain.CallRequest{
		Contract: req.Contract,
		Method:   req.Payload.Method(),
		Args:     req.Payload.Args(),
		GasPrice: gasPrice,
	})
	if err != nil {
		return nil, ensureCode(err, apperror.CodeSubmissionFailed)
	}

	txHash := pending.Hash.Hex()
	s.logger.Info(ctx, "transaction submitted",
		"tx_hash", txHash,
		"observed_gas_price", observed.Wei.String(),
		"gas_price", gasPrice.String(),
	)
	if req.OnBroadcast != nil {
		req.OnBroadcast(txHash)
	}

	mined, err := s.confirm(ctx, pending.Hash)
	if err != nil {
		return nil, err
	}
	s.metrics.confirmation.Record(ctx, time.Since(pending.SentAt).Seconds(),
		metric.WithAttributes(attribute.String("contract", req.Contract.Name)))

	s.logger.Info(ctx, "transaction confirmed",
		"tx_hash", txHash,
		"block_number", mined.BlockNumber,
		"gas_used", mined.GasUsed,
	)

	return &domain.Receipt{
		TransactionHash: txHash,
		BlockNumber:     mined.BlockNumber,
		BlockHash:       mined.BlockHash.Hex(),
		From:            pending.From.Hex(),
		To:              req.Contract.Address.Hex(),
		Nonce:           pending.Nonce,
		GasPrice:        gasPrice.String(),
		GasUsed:         mined.GasUsed,
		Payload:         req.Payload,
	}, nil
}

// confirm waits for inclusion within the configured window. The tx hash is
// attached to every error so an orphaned transaction can be tracked down.
func (s *Submitter) confirm(ctx context.Context, hash common.Hash) (*bcdomain.TxReceipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.config.ConfirmTimeout)
	defer cancel()

	mined, err := s.chain.WaitMined(waitCtx, hash)
	switch {
	case err == nil && !mined.Succeeded:
		return nil, apperror.New(apperror.CodeConfirmationFailed,
			apperror.WithContext(fmt.Sprintf("transaction reverted in block %d", mined.BlockNumber)),
			apperror.WithTxHash(hash.Hex()))
	case err == nil:
		return mined, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		s.logger.Error(ctx, "transaction not mined in time; it may still be pending",
			"tx_hash", hash.Hex(), "timeout", s.config.ConfirmTimeout.String())
		return nil, apperror.New(apperror.CodeConfirmationTimeout,
			apperror.WithContext("not mined within "+s.config.ConfirmTimeout.String()),
			apperror.WithTxHash(hash.Hex()),
			apperror.WithCause(err))
	default:
		return nil, apperror.New(apperror.CodeConfirmationFailed,
			apperror.WithContext("wait for receipt"),
			apperror.WithTxHash(hash.Hex()),
			apperror.WithCause(err))
	}
}

// ensureCode keeps an error that already carries code and wraps anything else.
func ensureCode(err error, code apperror.Code) error {
	if apperror.HasCode(err, code) {
		return err
	}
	return apperror.New(code, apperror.WithCause(err))
}
