// Package ethereum provides go-ethereum backed adapters for the blockchain context.
package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/circuitbreaker"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

const (
	tracerName = "github.com/fd1az/carbon-oracle/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/carbon-oracle/business/blockchain/infra/ethereum"
)

// gasPriceClient is the part of ethclient.Client the oracle needs.
type gasPriceClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
}

// GasOracle fetches a fresh gas price on every call. Repeated RPC failures
// open a circuit breaker so a dead node fails fast.
type GasOracle struct {
	client gasPriceClient
	logger logger.LoggerInterface

	cb *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(client gasPriceClient, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		client: client,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	g.initCircuitBreaker()

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Last observed gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	return err
}

func (g *GasOracle) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("gas-oracle")
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		g.logger.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	g.cb = circuitbreaker.New[*big.Int](cfg)
}

// GetGasPrice retrieves the current gas price. Results are never cached.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		g.metrics.gasPriceFetches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", false)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")

		code := apperror.CodeGasPriceFetchFailed
		if circuitbreaker.IsOpen(err) {
			code = apperror.CodeCircuitOpen
		}
		return nil, apperror.New(code,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}
	if wei == nil || wei.Sign() <= 0 {
		span.SetStatus(codes.Error, "empty price")
		return nil, apperror.New(apperror.CodeGasPriceFetchFailed,
			apperror.WithContext("node returned an empty gas price"))
	}

	price := domain.NewGasPrice(wei)

	g.metrics.gasPriceFetches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", true)))
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei())

	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}
