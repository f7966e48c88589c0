package adapter_test

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/fd1az/carbon-oracle/business/oracle/adapter"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/config"
)

var fetchedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const electricityResponse = `{"data":{"id":"e1","type":"estimate","attributes":{
	"country":"us","state":"fl","electricity_unit":"mwh","electricity_value":"45.5",
	"estimated_at":"2026-03-01T11:59:58.000Z",
	"carbon_g":18051000,"carbon_lb":39796.03,"carbon_kg":18051,"carbon_mt":18.05}}}`

const flightResponse = `{"data":{"id":"f1","type":"estimate","attributes":{
	"passengers":2,
	"legs":[{"departure_airport":"sfo","destination_airport":"yyz"},{"departure_airport":"yyz","destination_airport":"sfo"}],
	"distance_value":7454.5,"distance_unit":"km","estimated_at":"2026-03-01T11:59:58.000Z",
	"carbon_g":1077098,"carbon_lb":2374.6,"carbon_kg":1077.5,"carbon_mt":1.08}}}`

const vehicleResponse = `{"data":{"id":"v1","type":"estimate","attributes":{
	"distance_value":100.4,"distance_unit":"mi","vehicle_make":"Toyota","vehicle_model":"Corolla",
	"vehicle_year":1993,"vehicle_model_id":"7268a9b7-17e8-4c8d-acca-57059252afe9",
	"estimated_at":"2026-03-01T11:59:58.000Z",
	"carbon_g":37029,"carbon_lb":81.64,"carbon_kg":37.03,"carbon_mt":0.04}}}`

func electricityAdapter() *adapter.Electricity {
	return adapter.NewElectricity(config.ElectricityConfig{MWh: "45.5", Country: "us", State: "fl"})
}

func TestElectricity_PayloadMatchesContract(t *testing.T) {
	a := electricityAdapter()

	r, err := a.NormalizeResponse([]byte(electricityResponse), fetchedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := a.PayloadFromResult(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Method() != "updateElectricityData" {
		t.Errorf("unexpected method %s", p.Method())
	}
	args := p.Args()
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}

	wantMWh, _ := new(big.Int).SetString("45500000000000000000", 10)
	if args[0].(*big.Int).Int64() != 18051 {
		t.Errorf("carbonKg: got %v", args[0])
	}
	if args[1].(*big.Int).Cmp(wantMWh) != 0 {
		t.Errorf("scaledMwh: got %v", args[1])
	}
	if args[2] != "us" || args[3] != "fl" {
		t.Errorf("location: got %v %v", args[2], args[3])
	}
	if args[4] != r.Metadata {
		t.Error("metadata must be the last argument")
	}
}

func TestElectricity_Metadata(t *testing.T) {
	r, err := electricityAdapter().NormalizeResponse([]byte(electricityResponse), fetchedAt)
	if err != nil {
		t.Fatal(err)
	}

	meta := gjson.Parse(r.Metadata)
	if meta.Get("carbon_g").Int() != 18051000 {
		t.Errorf("carbon_g: %s", meta.Get("carbon_g").Raw)
	}
	if meta.Get("carbon_mt").Float() != 18.05 {
		t.Errorf("carbon_mt: %s", meta.Get("carbon_mt").Raw)
	}
	if meta.Get("estimated_at").String() != "2026-03-01T11:59:58.000Z" {
		t.Errorf("estimated_at: %s", meta.Get("estimated_at").Raw)
	}
	if meta.Get("timestamp").String() != "2026-03-01T12:00:00.000Z" {
		t.Errorf("timestamp: %s", meta.Get("timestamp").Raw)
	}
	if meta.Get("distance_unit").Exists() {
		t.Error("electricity metadata has no distance unit")
	}
}

func TestElectricity_BuildRequest(t *testing.T) {
	req, err := electricityAdapter().BuildRequest()
	if err != nil {
		t.Fatal(err)
	}
	body := gjson.ParseBytes(req.Body)
	if body.Get("type").String() != "electricity" || body.Get("electricity_unit").String() != "mwh" {
		t.Errorf("unexpected body %s", req.Body)
	}
	if body.Get("electricity_value").Float() != 45.5 {
		t.Errorf("electricity_value: %s", body.Get("electricity_value").Raw)
	}
	if body.Get("country").String() != "us" || body.Get("state").String() != "fl" {
		t.Errorf("unexpected location in %s", req.Body)
	}
}

func TestFlight_NormalizeAndPayload(t *testing.T) {
	a := adapter.NewFlight(config.FlightConfig{
		Passengers: 2,
		Legs: []config.FlightLeg{
			{DepartureAirport: "sfo", DestinationAirport: "yyz"},
			{DepartureAirport: "yyz", DestinationAirport: "sfo"},
		},
	})

	req, err := a.BuildRequest()
	if err != nil {
		t.Fatal(err)
	}
	body := gjson.ParseBytes(req.Body)
	if body.Get("passengers").Int() != 2 || body.Get("legs.1.departure_airport").String() != "yyz" {
		t.Errorf("unexpected body %s", req.Body)
	}

	r, err := a.NormalizeResponse([]byte(flightResponse), fetchedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Legs) != 2 || r.Legs[0].DepartureAirport != "sfo" {
		t.Errorf("unexpected legs %+v", r.Legs)
	}
	if gjson.Get(r.Metadata, "distance_unit").String() != "km" {
		t.Errorf("flight metadata must carry the distance unit: %s", r.Metadata)
	}

	p, err := a.PayloadFromResult(r)
	if err != nil {
		t.Fatal(err)
	}
	args := p.Args()
	legs := args[0].([]domain.FlightLeg)
	if legs[1].DestinationAirport != "sfo" {
		t.Errorf("unexpected legs arg %+v", legs)
	}
	if args[1].(*big.Int).Int64() != 1078 { // 1077.5 rounds half away from zero
		t.Errorf("carbonKg: got %v", args[1])
	}
	if args[2].(*big.Int).Int64() != 2 {
		t.Errorf("passengers: got %v", args[2])
	}
	if args[3].(*big.Int).Int64() != 7455 {
		t.Errorf("distanceKm: got %v", args[3])
	}
}

func TestVehicle_NormalizeAndPayload(t *testing.T) {
	a := adapter.NewVehicle(config.VehicleConfig{
		DistanceUnit:   "mi",
		DistanceValue:  100,
		VehicleModelID: "7268a9b7-17e8-4c8d-acca-57059252afe9",
	})

	req, err := a.BuildRequest()
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(req.Body, "distance_value").Int() != 100 {
		t.Errorf("unexpected body %s", req.Body)
	}

	r, err := a.NormalizeResponse([]byte(vehicleResponse), fetchedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := a.PayloadFromResult(r)
	if err != nil {
		t.Fatal(err)
	}

	args := p.Args()
	if len(args) != 8 {
		t.Fatalf("expected 8 args, got %d", len(args))
	}
	if args[0] != "7268a9b7-17e8-4c8d-acca-57059252afe9" {
		t.Errorf("model id: got %v", args[0])
	}
	if args[1].(*big.Int).Int64() != 37 || args[2].(*big.Int).Int64() != 100 {
		t.Errorf("carbon/distance: got %v %v", args[1], args[2])
	}
	if args[3] != "mi" || args[4] != "Toyota" || args[5] != "Corolla" {
		t.Errorf("identity: got %v %v %v", args[3], args[4], args[5])
	}
	if args[6].(*big.Int).Int64() != 1993 {
		t.Errorf("year: got %v", args[6])
	}
}

func TestNormalizeResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"no attributes", `{"data":{}}`},
		{"missing carbon_kg", `{"data":{"attributes":{"electricity_value":"1","country":"us"}}}`},
		{"negative carbon_kg", `{"data":{"attributes":{"carbon_kg":-1,"electricity_value":"1","country":"us"}}}`},
		{"bad electricity_value", `{"data":{"attributes":{"carbon_kg":1,"electricity_value":"abc","country":"us"}}}`},
		{"too precise", `{"data":{"attributes":{"carbon_kg":1,"electricity_value":"0.0000000000000000001","country":"us"}}}`},
		{"missing country", `{"data":{"attributes":{"carbon_kg":1,"electricity_value":"1"}}}`},
	}

	a := electricityAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.NormalizeResponse([]byte(tt.body), fetchedAt)
			if apperror.GetCode(err) != apperror.CodeMalformedResponse {
				t.Errorf("expected malformed response, got %v", err)
			}
		})
	}
}

func TestPayloadFromResult_DomainMismatch(t *testing.T) {
	r, err := electricityAdapter().NormalizeResponse([]byte(electricityResponse), fetchedAt)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := adapter.NewFlight(config.FlightConfig{}).PayloadFromResult(r); err == nil {
		t.Error("expected error for electricity result on flight adapter")
	}
}

func TestSubmissionPayload_Immutable(t *testing.T) {
	kg := big.NewInt(10)
	p := domain.NewSubmissionPayload("updateElectricityData", kg, "us")
	kg.SetInt64(99)

	args := p.Args()
	args[0].(*big.Int).SetInt64(7)
	args[1] = "mx"

	again := p.Args()
	if again[0].(*big.Int).Int64() != 10 || again[1] != "us" {
		t.Errorf("payload mutated: %v", again)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(raw, "args.0").String() != "10" {
		t.Errorf("uint256 args must encode as decimal strings: %s", raw)
	}
}

func TestScaledMWh(t *testing.T) {
	got, err := adapter.ScaledMWh(decimal.RequireFromString("42"))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := new(big.Int).SetString("42000000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	for _, d := range domain.All() {
		a, err := adapter.New(d, cfg)
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		if a.Domain() != d {
			t.Errorf("expected %s, got %s", d, a.Domain())
		}
	}
	if _, err := adapter.New("shipping", cfg); apperror.GetCode(err) != apperror.CodeUnknownDomain {
		t.Errorf("expected unknown domain, got %v", err)
	}
}
