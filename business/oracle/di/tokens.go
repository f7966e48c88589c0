// Package di contains dependency injection tokens for the oracle context.
package di

import (
	"github.com/fd1az/carbon-oracle/business/oracle/app"
	"github.com/fd1az/carbon-oracle/business/oracle/infra/httpapi"
	"github.com/fd1az/carbon-oracle/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrators = di.NewToken[[]*app.Orchestrator]("oracle.Orchestrators")
	Scheduler     = di.NewToken[*app.Scheduler]("oracle.Scheduler")
	Handler       = di.NewToken[*httpapi.Handler]("oracle.Handler")
)

// Private dependency tokens - internal to oracle module
var (
	EstimateClient = di.NewToken[app.EstimateClient]("oracle:estimateClient")
	Submitter      = di.NewToken[app.TransactionSubmitter]("oracle:submitter")
)

// Helper functions for type-safe access
func GetOrchestrators(c di.ServiceRegistry) []*app.Orchestrator {
	return di.GetToken(c, Orchestrators)
}

func GetScheduler(c di.ServiceRegistry) *app.Scheduler {
	return di.GetToken(c, Scheduler)
}

func GetHandler(c di.ServiceRegistry) *httpapi.Handler {
	return di.GetToken(c, Handler)
}

func GetEstimateClient(c di.ServiceRegistry) app.EstimateClient {
	return di.GetToken(c, EstimateClient)
}

func GetSubmitter(c di.ServiceRegistry) app.TransactionSubmitter {
	return di.GetToken(c, Submitter)
}
