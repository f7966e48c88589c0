package adapter

import (
	"math/big"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/config"
)

// Flight reports passenger flights over an ordered itinerary.
type Flight struct {
	cfg config.FlightConfig
}

// NewFlight creates a flight adapter.
func NewFlight(cfg config.FlightConfig) *Flight {
	return &Flight{cfg: cfg}
}

func (a *Flight) Domain() domain.Domain { return domain.Flight }

func (a *Flight) ContractMethod() string { return MethodUpdateFlight }

func (a *Flight) BuildRequest() (domain.EstimateRequest, error) {
	body := `{"type":"flight"}`
	var err error
	if body, err = sjson.Set(body, "passengers", a.cfg.Passengers); err != nil {
		return domain.EstimateRequest{}, err
	}
	if body, err = sjson.Set(body, "legs", a.cfg.Legs); err != nil {
		return domain.EstimateRequest{}, err
	}
	return domain.EstimateRequest{Domain: domain.Flight, Body: []byte(body)}, nil
}

func (a *Flight) NormalizeResponse(raw []byte, fetchedAt time.Time) (*domain.EstimateResult, error) {
	attrs, err := parseAttributes(raw)
	if err != nil {
		return nil, err
	}
	kg, err := attrs.carbonKg()
	if err != nil {
		return nil, err
	}

	legsRaw := attrs.Get("legs")
	if !legsRaw.IsArray() || len(legsRaw.Array()) == 0 {
		return nil, malformed("missing legs", nil)
	}
	legs := make([]domain.FlightLeg, 0, len(legsRaw.Array()))
	for i, l := range legsRaw.Array() {
		dep, dst := l.Get("departure_airport"), l.Get("destination_airport")
		if dep.Type != gjson.String || dst.Type != gjson.String {
			return nil, malformed("leg "+strconv.Itoa(i)+" lacks airports", nil)
		}
		legs = append(legs, domain.FlightLeg{
			DepartureAirport:   dep.Str,
			DestinationAirport: dst.Str,
		})
	}

	passengers, err := attrs.integer("passengers")
	if err != nil {
		return nil, err
	}
	if passengers < 0 {
		return nil, malformed("passengers is negative", nil)
	}
	distance, err := attrs.decimal("distance_value")
	if err != nil {
		return nil, err
	}
	if distance.IsNegative() {
		return nil, malformed("distance_value is negative", nil)
	}
	meta, err := attrs.metadata(fetchedAt, "distance_unit")
	if err != nil {
		return nil, err
	}

	return &domain.EstimateResult{
		Domain:    domain.Flight,
		CarbonKg:  kg,
		Metadata:  meta,
		FetchedAt: fetchedAt,
		FlightData: &domain.FlightData{
			Legs:       legs,
			Passengers: passengers,
			DistanceKm: distance,
		},
	}, nil
}

// PayloadFromResult maps to updateFlightData(legs, carbonKg, passengers, round(distanceKm), metadata).
func (a *Flight) PayloadFromResult(r *domain.EstimateResult) (domain.SubmissionPayload, error) {
	if r == nil || r.FlightData == nil {
		return domain.SubmissionPayload{}, mismatch(domain.Flight, r)
	}
	return domain.NewSubmissionPayload(MethodUpdateFlight,
		append([]domain.FlightLeg(nil), r.Legs...),
		roundedInt(r.CarbonKg),
		big.NewInt(r.Passengers),
		roundedInt(r.DistanceKm),
		r.Metadata,
	), nil
}
