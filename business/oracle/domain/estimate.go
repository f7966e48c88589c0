package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EstimateRequest is the body sent to the estimate service for one run.
type EstimateRequest struct {
	Domain Domain
	Body   []byte
}

// EstimateResult is the normalized estimate. Exactly one of the embedded
// domain payloads is set; it is flattened into the JSON object.
type EstimateResult struct {
	Domain    Domain          `json:"domain"`
	CarbonKg  decimal.Decimal `json:"carbonKg"`
	Metadata  string          `json:"metadata"`
	FetchedAt time.Time       `json:"fetchedAt"`

	*ElectricityData
	*FlightData
	*VehicleData
}

// ElectricityData is the electricity-specific part of an estimate.
type ElectricityData struct {
	ElectricityMWh decimal.Decimal `json:"electricityMwh"`
	Country        string          `json:"country"`
	State          string          `json:"state"`
}

// FlightLeg is one hop of an itinerary. It doubles as the contract's
// (departureAirport, destinationAirport) tuple, so field names follow the ABI.
type FlightLeg struct {
	DepartureAirport   string `json:"departureAirport"`
	DestinationAirport string `json:"destinationAirport"`
}

// FlightData is the flight-specific part of an estimate.
type FlightData struct {
	Legs       []FlightLeg     `json:"legs"`
	Passengers int64           `json:"passengers"`
	DistanceKm decimal.Decimal `json:"distanceKm"`
}

// VehicleData is the vehicle-specific part of an estimate.
type VehicleData struct {
	VehicleModelID string          `json:"vehicleModelId"`
	DistanceValue  decimal.Decimal `json:"distanceValue"`
	DistanceUnit   string          `json:"distanceUnit"`
	VehicleMake    string          `json:"vehicleMake"`
	VehicleModel   string          `json:"vehicleModel"`
	VehicleYear    int64           `json:"vehicleYear"`
}
