// Package carboninterface is the estimate client for the Carbon Interface API.
package carboninterface

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/carbon-oracle/business/oracle/adapter"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/httpclient"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

const (
	tracerName = "github.com/fd1az/carbon-oracle/business/oracle/infra/carboninterface"
	meterName  = "github.com/fd1az/carbon-oracle/business/oracle/infra/carboninterface"

	estimatesPath = "/estimates"

	// maxUpstreamBody bounds the error body kept on ApiError.
	maxUpstreamBody = 2048
)

// Client performs exactly one estimate call per invocation. It never retries
// and never caches.
type Client struct {
	http   httpclient.Client
	logger logger.LoggerInterface
	now    func() time.Time

	tracer   trace.Tracer
	requests metric.Int64Counter
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the fetch timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Client over an HTTP client preconfigured with the API
// base URL and bearer token.
func NewClient(hc httpclient.Client, log logger.LoggerInterface, opts ...Option) (*Client, error) {
	c := &Client{
		http:   hc,
		logger: log,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(c)
	}

	var err error
	c.requests, err = otel.Meter(meterName).Int64Counter("estimate_requests_total",
		metric.WithDescription("Estimate requests by domain and outcome"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

// NewHTTPClient builds the instrumented HTTP client for the API.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) (*httpclient.InstrumentedClient, error) {
	return httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("carboninterface"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithBearerToken(apiKey),
		httpclient.WithRequestTimeout(timeout),
	)
}

// Estimate requests an estimate built by a and normalizes the response.
// Errors are NETWORK_ERROR, API_ERROR or MALFORMED_RESPONSE.
func (c *Client) Estimate(ctx context.Context, a adapter.Adapter) (*domain.EstimateResult, error) {
	d := a.Domain()
	ctx, span := c.tracer.Start(ctx, "estimate.fetch",
		trace.WithAttributes(attribute.String("domain", d.String())))
	defer span.End()

	result, err := c.estimate(ctx, a)
	outcome := "success"
	if err != nil {
		outcome = string(apperror.GetCode(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
	} else {
		span.SetAttributes(attribute.String("carbon_kg", result.CarbonKg.String()))
		span.SetStatus(codes.Ok, "estimated")
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", d.String()),
		attribute.String("outcome", outcome),
	))
	return result, err
}

func (c *Client) estimate(ctx context.Context, a adapter.Adapter) (*domain.EstimateResult, error) {
	req, err := a.BuildRequest()
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithContext("build "+a.Domain().String()+" request"),
			apperror.WithCause(err))
	}

	c.logger.Info(ctx, "fetching carbon estimate", "domain", req.Domain.String())

	resp, err := c.http.NewRequest(
		httpclient.WithLabels(httpclient.Label{Key: "domain", Value: req.Domain.String()}),
		httpclient.WithResponseErrorHandler(upstreamError),
	).SetBody(req.Body).Post(ctx, estimatesPath)
	if err != nil {
		var te *httpclient.TransportError
		if errors.As(err, &te) {
			c.logger.Error(ctx, "estimate service unreachable", "domain", req.Domain.String(), "error", err)
			return nil, apperror.New(apperror.CodeNetworkError,
				apperror.WithContext("estimate service"),
				apperror.WithCause(err))
		}
		if apperror.HasCode(err, apperror.CodeAPIError) {
			c.logger.Error(ctx, "estimate service rejected request", "domain", req.Domain.String(), "error", err)
			return nil, err
		}
		return nil, apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}

	result, err := a.NormalizeResponse(resp.Body(), c.now())
	if err != nil {
		c.logger.Error(ctx, "malformed estimate response", "domain", req.Domain.String(), "error", err)
		return nil, err
	}
	return result, nil
}

// upstreamError turns any non-2xx response into API_ERROR carrying the
// status and a bounded copy of the body.
func upstreamError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if len(body) > maxUpstreamBody {
		body = body[:maxUpstreamBody]
	}
	return apperror.New(apperror.CodeAPIError,
		apperror.WithContext("estimate service"),
		apperror.WithUpstream(status, string(body)))
}
