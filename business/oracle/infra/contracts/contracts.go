// Package contracts holds the default ABIs of the oracle contracts and binds
// a configured address to the method each domain calls.
package contracts

import (
	"strings"

	bcdomain "github.com/fd1az/carbon-oracle/business/blockchain/domain"
	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/config"
)

// ElectricityOracleABI only includes updateElectricityData.
const ElectricityOracleABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "carbonKg", "type": "uint256"},
			{"internalType": "uint256", "name": "electricityMwh", "type": "uint256"},
			{"internalType": "string", "name": "country", "type": "string"},
			{"internalType": "string", "name": "state", "type": "string"},
			{"internalType": "string", "name": "metadata", "type": "string"}
		],
		"name": "updateElectricityData",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// FlightOracleABI only includes updateFlightData.
const FlightOracleABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "string", "name": "departureAirport", "type": "string"},
					{"internalType": "string", "name": "destinationAirport", "type": "string"}
				],
				"internalType": "struct FlightCarbonOracle.FlightLeg[]",
				"name": "legs",
				"type": "tuple[]"
			},
			{"internalType": "uint256", "name": "carbonKg", "type": "uint256"},
			{"internalType": "uint256", "name": "passengers", "type": "uint256"},
			{"internalType": "uint256", "name": "distanceKm", "type": "uint256"},
			{"internalType": "string", "name": "metadata", "type": "string"}
		],
		"name": "updateFlightData",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// VehicleOracleABI only includes updateVehicleData.
const VehicleOracleABI = `[
	{
		"inputs": [
			{"internalType": "string", "name": "vehicleModelId", "type": "string"},
			{"internalType": "uint256", "name": "carbonKg", "type": "uint256"},
			{"internalType": "uint256", "name": "distanceValue", "type": "uint256"},
			{"internalType": "string", "name": "distanceUnit", "type": "string"},
			{"internalType": "string", "name": "vehicleMake", "type": "string"},
			{"internalType": "string", "name": "vehicleModel", "type": "string"},
			{"internalType": "uint256", "name": "vehicleYear", "type": "uint256"},
			{"internalType": "string", "name": "metadata", "type": "string"}
		],
		"name": "updateVehicleData",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// DefaultABI returns the built-in ABI for a domain.
func DefaultABI(d domain.Domain) string {
	switch d {
	case domain.Flight:
		return FlightOracleABI
	case domain.Vehicle:
		return VehicleOracleABI
	default:
		return ElectricityOracleABI
	}
}

// Bind parses the configured (or default) ABI for d and checks it exposes method.
func Bind(d domain.Domain, method string, cfg config.ContractConfig) (*bcdomain.Contract, error) {
	abiJSON := strings.TrimSpace(cfg.ABI)
	if abiJSON == "" {
		abiJSON = DefaultABI(d)
	}

	c, err := bcdomain.NewContract(d.String(), cfg.AddressHex(), abiJSON, method)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(d.String()+" contract"),
			apperror.WithCause(err))
	}
	return c, nil
}
