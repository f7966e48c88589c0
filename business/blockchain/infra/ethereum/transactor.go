package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

// ethClient is the subset of ethclient.Client used to send and track transactions.
type ethClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TransactorConfig holds transaction building settings.
type TransactorConfig struct {
	ChainID           *big.Int // nil = ask the node on first send
	GasLimit          uint64   // 0 = estimate per call
	GasLimitBufferPct uint64   // added on top of the estimate
}

// DefaultTransactorConfig returns sensible defaults.
func DefaultTransactorConfig() TransactorConfig {
	return TransactorConfig{GasLimitBufferPct: 20}
}

type transactorMetrics struct {
	sent   metric.Int64Counter
	failed metric.Int64Counter
}

// Transactor sends legacy-priced contract calls from one account. Nonce
// lookup and broadcast are serialized so callers sharing the account never
// race for a nonce.
type Transactor struct {
	client ethClient
	signer Signer
	config TransactorConfig
	logger logger.LoggerInterface

	mu      sync.Mutex
	chainID *big.Int

	tracer  trace.Tracer
	metrics *transactorMetrics
}

// NewTransactor creates a Transactor.
func NewTransactor(client ethClient, signer Signer, cfg TransactorConfig, log logger.LoggerInterface) (*Transactor, error) {
	t := &Transactor{
		client: client,
		signer: signer,
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if cfg.ChainID != nil {
		t.chainID = new(big.Int).Set(cfg.ChainID)
	}

	meter := otel.Meter(meterName)
	t.metrics = &transactorMetrics{}
	var err error
	t.metrics.sent, err = meter.Int64Counter("tx_sent_total",
		metric.WithDescription("Transactions accepted by the node"),
		metric.WithUnit("{tx}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	t.metrics.failed, err = meter.Int64Counter("tx_send_failures_total",
		metric.WithDescription("Transactions rejected before broadcast"),
		metric.WithUnit("{tx}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return t, nil
}

// From returns the signing account.
func (t *Transactor) From() common.Address {
	return t.signer.From()
}

// ChainID resolves and caches the chain id.
func (t *Transactor) ChainID(ctx context.Context) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chainIDLocked(ctx)
}

func (t *Transactor) chainIDLocked(ctx context.Context) (*big.Int, error) {
	if t.chainID != nil {
		return t.chainID, nil
	}
	id, err := t.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	t.chainID = id
	return id, nil
}

// Send packs, signs and broadcasts req.
func (t *Transactor) Send(ctx context.Context, req domain.CallRequest) (*domain.PendingTx, error) {
	ctx, span := t.tracer.Start(ctx, "tx.send",
		trace.WithAttributes(
			attribute.String("contract", req.Contract.Name),
			attribute.String("method", req.Method),
		),
	)
	defer span.End()

	pending, err := t.send(ctx, req)
	if err != nil {
		t.metrics.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("contract", req.Contract.Name)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return nil, err
	}

	t.metrics.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("contract", req.Contract.Name)))
	span.SetAttributes(
		attribute.String("tx_hash", pending.Hash.Hex()),
		attribute.Int64("nonce", int64(pending.Nonce)),
	)
	span.SetStatus(codes.Ok, "sent")
	return pending, nil
}

func (t *Transactor) send(ctx context.Context, req domain.CallRequest) (*domain.PendingTx, error) {
	if req.GasPrice == nil || req.GasPrice.Sign() <= 0 {
		return nil, submissionError("gas price must be positive", nil)
	}

	calldata, err := req.Contract.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return nil, submissionError(fmt.Sprintf("pack %s.%s", req.Contract.Name, req.Method), err)
	}

	from := t.signer.From()
	to := req.Contract.Address

	t.mu.Lock()
	defer t.mu.Unlock()

	chainID, err := t.chainIDLocked(ctx)
	if err != nil {
		return nil, submissionError("fetch chain id", err)
	}

	nonce, err := t.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, submissionError("fetch nonce", err)
	}

	gasLimit := t.config.GasLimit
	if gasLimit == 0 {
		est, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
			From:     from,
			To:       &to,
			GasPrice: req.GasPrice,
			Value:    big.NewInt(0),
			Data:     calldata,
		})
		if err != nil {
			return nil, submissionError("estimate gas", err)
		}
		gasLimit = est + est*t.config.GasLimitBufferPct/100
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: new(big.Int).Set(req.GasPrice),
		Gas:      gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     calldata,
	})

	signed, err := t.signer.SignTx(unsigned, chainID)
	if err != nil {
		return nil, submissionError("sign tx", err)
	}

	if err := t.client.SendTransaction(ctx, signed); err != nil {
		t.logger.Error(ctx, "failed to send transaction",
			"tx_hash", signed.Hash().Hex(), "nonce", nonce, "error", err)
		return nil, submissionError("send tx", err)
	}

	t.logger.Info(ctx, "transaction submitted",
		"tx_hash", signed.Hash().Hex(),
		"contract", req.Contract.Name,
		"method", req.Method,
		"nonce", nonce,
		"gas_limit", gasLimit,
		"gas_price", req.GasPrice.String(),
	)

	return &domain.PendingTx{
		Hash:     signed.Hash(),
		From:     from,
		Nonce:    nonce,
		GasPrice: new(big.Int).Set(req.GasPrice),
		GasLimit: gasLimit,
		SentAt:   time.Now(),
	}, nil
}

// Receipt looks up the receipt of hash.
func (t *Transactor) Receipt(ctx context.Context, hash common.Hash) (*domain.TxReceipt, error) {
	receipt, err := t.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, err
	}

	out := &domain.TxReceipt{
		Hash:      hash,
		BlockHash: receipt.BlockHash,
		GasUsed:   receipt.GasUsed,
		Succeeded: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out, nil
}

func submissionError(msg string, cause error) error {
	opts := []apperror.Option{apperror.WithContext(msg)}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeSubmissionFailed, opts...)
}
