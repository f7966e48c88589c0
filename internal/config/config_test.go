package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/config"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("PRIVATE_KEY", "0x"+testKey)
	t.Setenv("CARBON_API_KEY", "secret")
	t.Setenv("CONTRACT_ADDRESS", "0x00000000000000000000000000000000000000e1")
}

func TestLoad_LegacyEnvAndDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chain.RPCURL != "http://localhost:8545" {
		t.Errorf("unexpected rpc url %q", cfg.Chain.RPCURL)
	}
	if cfg.Chain.PrivateKeyHex() != testKey {
		t.Errorf("expected 0x prefix to be stripped, got %q", cfg.Chain.PrivateKeyHex())
	}
	if cfg.Chain.GasPremiumPct != 10 {
		t.Errorf("expected premium 10, got %d", cfg.Chain.GasPremiumPct)
	}
	if cfg.Chain.ConfirmTimeout != 5*time.Minute {
		t.Errorf("unexpected confirm timeout %s", cfg.Chain.ConfirmTimeout)
	}
	if cfg.Schedule.Cron != "0 * * * *" || !cfg.Schedule.RunOnStartup {
		t.Errorf("unexpected schedule %+v", cfg.Schedule)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Server.Port)
	}
	if len(cfg.Oracle.Domains) != 1 || cfg.Oracle.Domains[0] != "electricity" {
		t.Errorf("unexpected domains %v", cfg.Oracle.Domains)
	}
	if cfg.Electricity.MWh != "42" || cfg.Electricity.Country != "us" || cfg.Electricity.State != "fl" {
		t.Errorf("unexpected electricity defaults %+v", cfg.Electricity)
	}
	if len(cfg.Flight.Legs) != 2 || cfg.Flight.Legs[0].DepartureAirport != "sfo" {
		t.Errorf("unexpected default legs %+v", cfg.Flight.Legs)
	}
}

func TestLoad_FlightLegsJSON(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DOMAINS", "flight")
	t.Setenv("FLIGHT_CONTRACT_ADDRESS", "0x00000000000000000000000000000000000000f1")
	t.Setenv("FLIGHT_LEGS", `[{"departure_airport":"lhr","destination_airport":"jfk"}]`)
	t.Setenv("PASSENGERS", "3")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Flight.Legs) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(cfg.Flight.Legs))
	}
	if cfg.Flight.Legs[0].DepartureAirport != "lhr" || cfg.Flight.Legs[0].DestinationAirport != "jfk" {
		t.Errorf("unexpected leg %+v", cfg.Flight.Legs[0])
	}
	if cfg.Flight.Passengers != 3 {
		t.Errorf("expected 3 passengers, got %d", cfg.Flight.Passengers)
	}
}

func TestLoad_MalformedFlightLegs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FLIGHT_LEGS", `{not json`)

	_, err := config.Load("")
	if apperror.GetCode(err) != apperror.CodeConfigurationError {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "oracle.yaml")
	yaml := `
oracle:
  domains: [electricity, vehicle]
vehicle:
  contract:
    address: "0x00000000000000000000000000000000000000a1"
  distance_unit: km
  distance_value: 250
chain:
  confirm_timeout: 90s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.HasDomain("vehicle") || !cfg.HasDomain("electricity") {
		t.Errorf("unexpected domains %v", cfg.Oracle.Domains)
	}
	if cfg.Vehicle.DistanceUnit != "km" || cfg.Vehicle.DistanceValue != 250 {
		t.Errorf("unexpected vehicle config %+v", cfg.Vehicle)
	}
	if cfg.Chain.ConfirmTimeout != 90*time.Second {
		t.Errorf("unexpected confirm timeout %s", cfg.Chain.ConfirmTimeout)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Chain: config.ChainConfig{
				RPCURL:              "http://localhost:8545",
				PrivateKey:          testKey,
				ConfirmTimeout:      time.Minute,
				ReceiptPollInterval: time.Second,
			},
			Estimate: config.EstimateConfig{BaseURL: "https://example.test", APIKey: "k"},
			Server:   config.ServerConfig{Port: 3000},
			Schedule: config.ScheduleConfig{Cron: "0 * * * *"},
			Oracle:   config.OracleConfig{Domains: []string{"electricity"}},
			Electricity: config.ElectricityConfig{
				Contract: config.ContractConfig{Address: "0x00000000000000000000000000000000000000e1"},
				MWh:      "45.5",
				Country:  "us",
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing rpc", func(c *config.Config) { c.Chain.RPCURL = "" }},
		{"bad key", func(c *config.Config) { c.Chain.PrivateKey = "zz" }},
		{"missing api key", func(c *config.Config) { c.Estimate.APIKey = "" }},
		{"bad cron", func(c *config.Config) { c.Schedule.Cron = "every hour" }},
		{"bad address", func(c *config.Config) { c.Electricity.Contract.Address = "nope" }},
		{"negative mwh", func(c *config.Config) { c.Electricity.MWh = "-1" }},
		{"unknown domain", func(c *config.Config) { c.Oracle.Domains = []string{"ocean"} }},
		{"duplicate domain", func(c *config.Config) { c.Oracle.Domains = []string{"electricity", "electricity"} }},
		{"zero timeout", func(c *config.Config) { c.Chain.ConfirmTimeout = 0 }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("baseline config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); apperror.GetCode(err) != apperror.CodeConfigurationError {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}
