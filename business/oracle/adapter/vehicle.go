package adapter

import (
	"math/big"
	"time"

	"github.com/tidwall/sjson"

	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/config"
)

// Vehicle reports distance driven by a specific vehicle model.
type Vehicle struct {
	cfg config.VehicleConfig
}

// NewVehicle creates a vehicle adapter.
func NewVehicle(cfg config.VehicleConfig) *Vehicle {
	return &Vehicle{cfg: cfg}
}

func (a *Vehicle) Domain() domain.Domain { return domain.Vehicle }

func (a *Vehicle) ContractMethod() string { return MethodUpdateVehicle }

func (a *Vehicle) BuildRequest() (domain.EstimateRequest, error) {
	body := `{"type":"vehicle"}`
	var err error
	for _, kv := range []struct {
		key   string
		value any
	}{
		{"distance_unit", a.cfg.DistanceUnit},
		{"distance_value", a.cfg.DistanceValue},
		{"vehicle_model_id", a.cfg.VehicleModelID},
	} {
		if body, err = sjson.Set(body, kv.key, kv.value); err != nil {
			return domain.EstimateRequest{}, err
		}
	}
	return domain.EstimateRequest{Domain: domain.Vehicle, Body: []byte(body)}, nil
}

func (a *Vehicle) NormalizeResponse(raw []byte, fetchedAt time.Time) (*domain.EstimateResult, error) {
	attrs, err := parseAttributes(raw)
	if err != nil {
		return nil, err
	}
	kg, err := attrs.carbonKg()
	if err != nil {
		return nil, err
	}

	data := &domain.VehicleData{}
	if data.VehicleModelID, err = attrs.str("vehicle_model_id"); err != nil {
		return nil, err
	}
	if data.DistanceValue, err = attrs.decimal("distance_value"); err != nil {
		return nil, err
	}
	if data.DistanceValue.IsNegative() {
		return nil, malformed("distance_value is negative", nil)
	}
	if data.DistanceUnit, err = attrs.str("distance_unit"); err != nil {
		return nil, err
	}
	if data.VehicleYear, err = attrs.integer("vehicle_year"); err != nil {
		return nil, err
	}
	if data.VehicleYear < 0 {
		return nil, malformed("vehicle_year is negative", nil)
	}
	// Make and model are descriptive; the service may leave them blank.
	data.VehicleMake = attrs.Get("vehicle_make").String()
	data.VehicleModel = attrs.Get("vehicle_model").String()

	meta, err := attrs.metadata(fetchedAt)
	if err != nil {
		return nil, err
	}

	return &domain.EstimateResult{
		Domain:      domain.Vehicle,
		CarbonKg:    kg,
		Metadata:    meta,
		FetchedAt:   fetchedAt,
		VehicleData: data,
	}, nil
}

// PayloadFromResult maps to updateVehicleData(vehicleModelId, carbonKg,
// round(distanceValue), distanceUnit, vehicleMake, vehicleModel, vehicleYear, metadata).
func (a *Vehicle) PayloadFromResult(r *domain.EstimateResult) (domain.SubmissionPayload, error) {
	if r == nil || r.VehicleData == nil {
		return domain.SubmissionPayload{}, mismatch(domain.Vehicle, r)
	}
	return domain.NewSubmissionPayload(MethodUpdateVehicle,
		r.VehicleModelID,
		roundedInt(r.CarbonKg),
		roundedInt(r.DistanceValue),
		r.DistanceUnit,
		r.VehicleMake,
		r.VehicleModel,
		big.NewInt(r.VehicleYear),
		r.Metadata,
	), nil
}
