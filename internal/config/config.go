// Package config provides configuration loading and validation.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/carbon-oracle/internal/apperror"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Estimate    EstimateConfig    `mapstructure:"estimate"`
	Server      ServerConfig      `mapstructure:"server"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Oracle      OracleConfig      `mapstructure:"oracle"`
	Electricity ElectricityConfig `mapstructure:"electricity"`
	Flight      FlightConfig      `mapstructure:"flight"`
	Vehicle     VehicleConfig     `mapstructure:"vehicle"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ChainConfig holds the RPC endpoint, signing key and transaction policy.
type ChainConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	PrivateKey          string        `mapstructure:"private_key"`
	ChainID             uint64        `mapstructure:"chain_id"` // 0 = ask the node
	GasPremiumPct       uint64        `mapstructure:"gas_premium_pct"`
	GasLimit            uint64        `mapstructure:"gas_limit"` // 0 = estimate
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
}

// PrivateKeyHex returns the key without a 0x prefix.
func (c *ChainConfig) PrivateKeyHex() string {
	return strings.TrimPrefix(strings.TrimSpace(c.PrivateKey), "0x")
}

// EstimateConfig holds Carbon Interface API settings.
type EstimateConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the HTTP trigger surface settings.
type ServerConfig struct {
	Port                 int           `mapstructure:"port"`
	TriggerRatePerMinute int           `mapstructure:"trigger_rate_per_minute"` // 0 disables limiting
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
}

// ScheduleConfig holds the periodic trigger settings.
type ScheduleConfig struct {
	Cron         string `mapstructure:"cron"`
	RunOnStartup bool   `mapstructure:"run_on_startup"`
}

// OracleConfig lists the domains served by this process. The first is the primary.
type OracleConfig struct {
	Domains []string `mapstructure:"domains"`
}

// ContractConfig locates a deployed oracle contract.
type ContractConfig struct {
	Address string `mapstructure:"address"`
	ABI     string `mapstructure:"abi"` // empty = embedded default
}

// AddressHex returns the contract address as common.Address.
func (c *ContractConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// ElectricityConfig holds static electricity estimate parameters.
type ElectricityConfig struct {
	Contract ContractConfig `mapstructure:"contract"`
	MWh      string         `mapstructure:"mwh"`
	Country  string         `mapstructure:"country"`
	State    string         `mapstructure:"state"`
}

// MWhDecimal returns the configured consumption as a decimal.
func (c *ElectricityConfig) MWhDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.MWh)
	return d
}

// FlightLeg is one hop of a flight itinerary.
type FlightLeg struct {
	DepartureAirport   string `mapstructure:"departure_airport" json:"departure_airport"`
	DestinationAirport string `mapstructure:"destination_airport" json:"destination_airport"`
}

// FlightConfig holds static flight estimate parameters.
type FlightConfig struct {
	Contract   ContractConfig `mapstructure:"contract"`
	Passengers int            `mapstructure:"passengers"`
	Legs       []FlightLeg    `mapstructure:"legs"`
	LegsJSON   string         `mapstructure:"legs_json"` // overrides Legs when set
}

// VehicleConfig holds static vehicle estimate parameters.
type VehicleConfig struct {
	Contract       ContractConfig `mapstructure:"contract"`
	DistanceUnit   string         `mapstructure:"distance_unit"`
	DistanceValue  float64        `mapstructure:"distance_value"`
	VehicleModelID string         `mapstructure:"vehicle_model_id"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	ServiceName   string            `mapstructure:"service_name"`
	TraceProvider string            `mapstructure:"trace_provider"` // zipkin, console, otlp-grpc, otlp-http
	OTLPEndpoint  string            `mapstructure:"otlp_endpoint"`
	OTLPHeaders   map[string]string `mapstructure:"otlp_headers"`
	OTLPMetrics   bool              `mapstructure:"otlp_metrics"`
	Prometheus    bool              `mapstructure:"prometheus"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithCause(err),
				apperror.WithContext("failed to read config"))
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("failed to unmarshal config"))
	}

	if err := cfg.resolveLegs(); err != nil {
		return nil, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindEnvVars maps keys to prefixed names and to the variable names the
// per-domain oracle scripts were deployed with.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("app.name", "ORACLE_APP_NAME", "SERVICE_NAME")
	_ = v.BindEnv("app.environment", "ORACLE_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("app.log_level", "ORACLE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("app.log_format", "ORACLE_LOG_FORMAT", "LOG_FORMAT")

	_ = v.BindEnv("chain.rpc_url", "ORACLE_RPC_URL", "RPC_URL")
	_ = v.BindEnv("chain.private_key", "ORACLE_PRIVATE_KEY", "PRIVATE_KEY")
	_ = v.BindEnv("chain.chain_id", "ORACLE_CHAIN_ID", "CHAIN_ID")
	_ = v.BindEnv("chain.gas_premium_pct", "ORACLE_GAS_PREMIUM_PCT")
	_ = v.BindEnv("chain.confirm_timeout", "ORACLE_CONFIRM_TIMEOUT", "CONFIRM_TIMEOUT")

	_ = v.BindEnv("estimate.base_url", "ORACLE_CARBON_API_URL", "CARBON_API_URL")
	_ = v.BindEnv("estimate.api_key", "ORACLE_CARBON_API_KEY", "CARBON_API_KEY")

	_ = v.BindEnv("server.port", "ORACLE_PORT", "PORT")
	_ = v.BindEnv("schedule.cron", "ORACLE_SCHEDULE", "SCHEDULE")
	_ = v.BindEnv("oracle.domains", "ORACLE_DOMAINS", "DOMAINS")

	_ = v.BindEnv("electricity.contract.address", "ORACLE_ELECTRICITY_CONTRACT_ADDRESS", "CONTRACT_ADDRESS")
	_ = v.BindEnv("electricity.contract.abi", "ORACLE_ELECTRICITY_CONTRACT_ABI", "CONTRACT_ABI")
	_ = v.BindEnv("electricity.mwh", "ORACLE_ELECTRICITY_MWH", "ELECTRICITY_MWH")
	_ = v.BindEnv("electricity.country", "ORACLE_COUNTRY", "COUNTRY")
	_ = v.BindEnv("electricity.state", "ORACLE_STATE", "STATE")

	_ = v.BindEnv("flight.contract.address", "ORACLE_FLIGHT_CONTRACT_ADDRESS", "FLIGHT_CONTRACT_ADDRESS")
	_ = v.BindEnv("flight.contract.abi", "ORACLE_FLIGHT_CONTRACT_ABI", "FLIGHT_CONTRACT_ABI")
	_ = v.BindEnv("flight.passengers", "ORACLE_PASSENGERS", "PASSENGERS")
	_ = v.BindEnv("flight.legs_json", "ORACLE_FLIGHT_LEGS", "FLIGHT_LEGS")

	_ = v.BindEnv("vehicle.contract.address", "ORACLE_VEHICLE_CONTRACT_ADDRESS", "VEHICLE_CONTRACT_ADDRESS")
	_ = v.BindEnv("vehicle.contract.abi", "ORACLE_VEHICLE_CONTRACT_ABI", "VEHICLE_CONTRACT_ABI")
	_ = v.BindEnv("vehicle.distance_unit", "ORACLE_DISTANCE_UNIT", "DISTANCE_UNIT")
	_ = v.BindEnv("vehicle.distance_value", "ORACLE_DISTANCE_VALUE", "DISTANCE_VALUE")
	_ = v.BindEnv("vehicle.vehicle_model_id", "ORACLE_VEHICLE_MODEL_ID", "VEHICLE_MODEL_ID")

	_ = v.BindEnv("telemetry.enabled", "ORACLE_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "ORACLE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.otlp_endpoint", "ORACLE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "carbon-oracle")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("chain.chain_id", 0)
	v.SetDefault("chain.gas_premium_pct", 10)
	v.SetDefault("chain.gas_limit", 0)
	v.SetDefault("chain.confirm_timeout", "5m")
	v.SetDefault("chain.receipt_poll_interval", "2s")

	v.SetDefault("estimate.base_url", "https://www.carboninterface.com/api/v1")
	v.SetDefault("estimate.timeout", "30s")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.trigger_rate_per_minute", 6)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("schedule.cron", "0 * * * *")
	v.SetDefault("schedule.run_on_startup", true)

	v.SetDefault("oracle.domains", []string{"electricity"})

	v.SetDefault("electricity.mwh", "42")
	v.SetDefault("electricity.country", "us")
	v.SetDefault("electricity.state", "fl")

	v.SetDefault("flight.passengers", 2)
	v.SetDefault("flight.legs", []map[string]string{
		{"departure_airport": "sfo", "destination_airport": "yyz"},
		{"departure_airport": "yyz", "destination_airport": "sfo"},
	})

	v.SetDefault("vehicle.distance_unit", "mi")
	v.SetDefault("vehicle.distance_value", 100)
	v.SetDefault("vehicle.vehicle_model_id", "7268a9b7-17e8-4c8d-acca-57059252afe9")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "carbon-oracle")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus", true)
}

func (c *Config) resolveLegs() error {
	raw := strings.TrimSpace(c.Flight.LegsJSON)
	if raw == "" {
		return nil
	}

	var legs []FlightLeg
	if err := json.Unmarshal([]byte(raw), &legs); err != nil {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("flight legs must be a JSON array of {departure_airport, destination_airport}"))
	}
	c.Flight.Legs = legs
	return nil
}

func (c *Config) normalize() {
	domains := make([]string, 0, len(c.Oracle.Domains))
	for _, d := range c.Oracle.Domains {
		for _, part := range strings.FieldsFunc(d, func(r rune) bool { return r == ',' || r == ' ' }) {
			domains = append(domains, strings.ToLower(part))
		}
	}
	c.Oracle.Domains = domains
}

// HasDomain reports whether name is among the served domains.
func (c *Config) HasDomain(name string) bool {
	for _, d := range c.Oracle.Domains {
		if d == name {
			return true
		}
	}
	return false
}

// Validate validates the configuration. Every failure is a CONFIGURATION_ERROR.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return apperror.Configuration("chain.rpc_url is required")
	}
	if c.Chain.PrivateKey == "" {
		return apperror.Configuration("chain.private_key is required")
	}
	if _, err := crypto.HexToECDSA(c.Chain.PrivateKeyHex()); err != nil {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("chain.private_key is not a valid secp256k1 key"))
	}
	if c.Chain.ConfirmTimeout <= 0 {
		return apperror.Configuration("chain.confirm_timeout must be positive")
	}
	if c.Chain.ReceiptPollInterval <= 0 {
		return apperror.Configuration("chain.receipt_poll_interval must be positive")
	}
	if c.Estimate.APIKey == "" {
		return apperror.Configuration("estimate.api_key is required")
	}
	if c.Estimate.BaseURL == "" {
		return apperror.Configuration("estimate.base_url is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperror.Configuration(fmt.Sprintf("invalid server.port: %d", c.Server.Port))
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("invalid schedule.cron: %q", c.Schedule.Cron)))
	}
	if len(c.Oracle.Domains) == 0 {
		return apperror.Configuration("oracle.domains cannot be empty")
	}

	seen := make(map[string]bool, len(c.Oracle.Domains))
	for _, d := range c.Oracle.Domains {
		if seen[d] {
			return apperror.Configuration(fmt.Sprintf("oracle.domains lists %q twice", d))
		}
		seen[d] = true

		var err error
		switch d {
		case "electricity":
			err = c.Electricity.validate()
		case "flight":
			err = c.Flight.validate()
		case "vehicle":
			err = c.Vehicle.validate()
		default:
			err = apperror.Configuration(fmt.Sprintf("unknown domain %q in oracle.domains", d))
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *ContractConfig) validate(section string) error {
	if !common.IsHexAddress(c.Address) {
		return apperror.Configuration(fmt.Sprintf("invalid %s.contract.address: %q", section, c.Address))
	}
	return nil
}

func (c *ElectricityConfig) validate() error {
	if err := c.Contract.validate("electricity"); err != nil {
		return err
	}
	d, err := decimal.NewFromString(c.MWh)
	if err != nil || d.IsNegative() {
		return apperror.Configuration(fmt.Sprintf("invalid electricity.mwh: %q", c.MWh))
	}
	if c.Country == "" {
		return apperror.Configuration("electricity.country is required")
	}
	return nil
}

func (c *FlightConfig) validate() error {
	if err := c.Contract.validate("flight"); err != nil {
		return err
	}
	if c.Passengers <= 0 {
		return apperror.Configuration(fmt.Sprintf("flight.passengers must be positive, got %d", c.Passengers))
	}
	if len(c.Legs) == 0 {
		return apperror.Configuration("flight.legs cannot be empty")
	}
	for i, leg := range c.Legs {
		if leg.DepartureAirport == "" || leg.DestinationAirport == "" {
			return apperror.Configuration(fmt.Sprintf("flight.legs[%d] needs departure_airport and destination_airport", i))
		}
	}
	return nil
}

func (c *VehicleConfig) validate() error {
	if err := c.Contract.validate("vehicle"); err != nil {
		return err
	}
	if c.DistanceUnit != "mi" && c.DistanceUnit != "km" {
		return apperror.Configuration(fmt.Sprintf("vehicle.distance_unit must be mi or km, got %q", c.DistanceUnit))
	}
	if c.DistanceValue <= 0 {
		return apperror.Configuration("vehicle.distance_value must be positive")
	}
	if c.VehicleModelID == "" {
		return apperror.Configuration("vehicle.vehicle_model_id is required")
	}
	return nil
}
