// Package adapter translates between the generic oracle pipeline and the
// per-domain shapes of the estimate service and the oracle contracts.
//
// Adapters are pure: they hold only static configuration, perform no I/O and
// fail only with MALFORMED_RESPONSE when a response lacks required fields.
package adapter

import (
	"time"

	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/config"
)

// Contract methods, one per domain.
const (
	MethodUpdateElectricity = "updateElectricityData"
	MethodUpdateFlight      = "updateFlightData"
	MethodUpdateVehicle     = "updateVehicleData"
)

// Adapter is the per-domain capability set used by the update pipeline.
type Adapter interface {
	// Domain returns the domain this adapter serves.
	Domain() domain.Domain

	// BuildRequest builds a fresh estimate request from static configuration.
	BuildRequest() (domain.EstimateRequest, error)

	// NormalizeResponse parses a raw estimate response body.
	NormalizeResponse(raw []byte, fetchedAt time.Time) (*domain.EstimateResult, error)

	// ContractMethod returns the oracle contract method for this domain.
	ContractMethod() string

	// PayloadFromResult derives the contract call arguments from a result.
	PayloadFromResult(r *domain.EstimateResult) (domain.SubmissionPayload, error)
}

// New returns the adapter for d configured from cfg.
func New(d domain.Domain, cfg *config.Config) (Adapter, error) {
	switch d {
	case domain.Electricity:
		return NewElectricity(cfg.Electricity), nil
	case domain.Flight:
		return NewFlight(cfg.Flight), nil
	case domain.Vehicle:
		return NewVehicle(cfg.Vehicle), nil
	}
	return nil, apperror.New(apperror.CodeUnknownDomain, apperror.WithContext(string(d)))
}
