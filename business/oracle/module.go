// Package oracle implements the carbon oracle bounded context: fetching
// emission estimates and publishing them to the per-domain contracts.
package oracle

import (
	"context"
	"fmt"

	blockchainDI "github.com/fd1az/carbon-oracle/business/blockchain/di"
	bcdomain "github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/adapter"
	"github.com/fd1az/carbon-oracle/business/oracle/app"
	oracleDI "github.com/fd1az/carbon-oracle/business/oracle/di"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/infra/carboninterface"
	"github.com/fd1az/carbon-oracle/business/oracle/infra/contracts"
	"github.com/fd1az/carbon-oracle/business/oracle/infra/httpapi"
	"github.com/fd1az/carbon-oracle/internal/config"
	"github.com/fd1az/carbon-oracle/internal/di"
	"github.com/fd1az/carbon-oracle/internal/logger"
	"github.com/fd1az/carbon-oracle/internal/monolith"
	"github.com/fd1az/carbon-oracle/internal/ratelimit"
)

// binding is one served domain: its adapter and the contract it writes to.
type binding struct {
	adapter  adapter.Adapter
	contract *bcdomain.Contract
}

// Module implements the oracle bounded context.
type Module struct {
	bindings []binding
}

// RegisterServices registers all oracle services with the DI container.
// Adapters and contract bindings are built eagerly so a bad domain list or
// ABI fails registration instead of the first run.
func (m *Module) RegisterServices(c di.Container) error {
	cfg := c.Get("config").(*config.Config)

	m.bindings = m.bindings[:0]
	for _, name := range cfg.Oracle.Domains {
		b, err := bind(name, cfg)
		if err != nil {
			return err
		}
		m.bindings = append(m.bindings, b)
	}

	di.RegisterToken(c, oracleDI.EstimateClient, func(sr di.ServiceRegistry) app.EstimateClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		hc, err := carboninterface.NewHTTPClient(cfg.Estimate.BaseURL, cfg.Estimate.APIKey, cfg.Estimate.Timeout)
		if err != nil {
			panic("failed to create estimate http client: " + err.Error())
		}
		client, err := carboninterface.NewClient(hc, log)
		if err != nil {
			panic("failed to create estimate client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, oracleDI.Submitter, func(sr di.ServiceRegistry) app.TransactionSubmitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		submitter, err := app.NewSubmitter(
			blockchainDI.GetChainService(sr),
			app.SubmitterConfig{
				GasPremiumPct:  cfg.Chain.GasPremiumPct,
				ConfirmTimeout: cfg.Chain.ConfirmTimeout,
			},
			log,
		)
		if err != nil {
			panic("failed to create submitter: " + err.Error())
		}
		return submitter
	})

	di.RegisterToken(c, oracleDI.Orchestrators, func(sr di.ServiceRegistry) []*app.Orchestrator {
		log := sr.Get("logger").(logger.LoggerInterface)
		estimator := oracleDI.GetEstimateClient(sr)
		submitter := oracleDI.GetSubmitter(sr)

		out := make([]*app.Orchestrator, 0, len(m.bindings))
		for _, b := range m.bindings {
			o, err := app.NewOrchestrator(b.adapter, b.contract, estimator, submitter, log)
			if err != nil {
				panic(fmt.Sprintf("failed to create %s orchestrator: %v", b.adapter.Domain(), err))
			}
			out = append(out, o)
		}
		return out
	})

	di.RegisterToken(c, oracleDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		orchestrators := oracleDI.GetOrchestrators(sr)
		runners := make([]app.Runner, len(orchestrators))
		for i, o := range orchestrators {
			runners[i] = o
		}

		s, err := app.NewScheduler(cfg.Schedule.Cron, cfg.Schedule.RunOnStartup, log, runners...)
		if err != nil {
			panic("failed to create scheduler: " + err.Error())
		}
		return s
	})

	di.RegisterToken(c, oracleDI.Handler, func(sr di.ServiceRegistry) *httpapi.Handler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var limiter *ratelimit.Limiter
		if cfg.Server.TriggerRatePerMinute > 0 {
			limiter = ratelimit.New(cfg.Server.TriggerRatePerMinute)
		}

		orchestrators := oracleDI.GetOrchestrators(sr)
		handlers := make([]httpapi.Orchestrator, len(orchestrators))
		for i, o := range orchestrators {
			handlers[i] = o
		}
		return httpapi.NewHandler(log, limiter, handlers...)
	})

	return nil
}

// Startup mounts the trigger routes and starts the schedule.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	oracleDI.GetHandler(mono.Services()).Register(mono.Mux())

	if err := oracleDI.GetScheduler(mono.Services()).Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	domains := make([]string, len(m.bindings))
	for i, b := range m.bindings {
		domains[i] = b.adapter.Domain().String()
		log.Info(ctx, "oracle domain bound",
			"domain", domains[i],
			"contract", b.contract.Address.Hex(),
			"method", b.adapter.ContractMethod(),
		)
	}
	log.Info(ctx, "oracle module started",
		"domains", domains,
		"schedule", mono.Config().Schedule.Cron,
	)
	return nil
}

func bind(name string, cfg *config.Config) (binding, error) {
	d, err := domain.ParseDomain(name)
	if err != nil {
		return binding{}, err
	}

	a, err := adapter.New(d, cfg)
	if err != nil {
		return binding{}, err
	}

	contract, err := contracts.Bind(d, a.ContractMethod(), contractConfig(d, cfg))
	if err != nil {
		return binding{}, err
	}

	return binding{adapter: a, contract: contract}, nil
}

func contractConfig(d domain.Domain, cfg *config.Config) config.ContractConfig {
	switch d {
	case domain.Flight:
		return cfg.Flight.Contract
	case domain.Vehicle:
		return cfg.Vehicle.Contract
	default:
		return cfg.Electricity.Contract
	}
}
