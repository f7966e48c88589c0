package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Estimate service errors
const (
	CodeNetworkError      Code = "NETWORK_ERROR"
	CodeAPIError          Code = "API_ERROR"
	CodeMalformedResponse Code = "MALFORMED_RESPONSE"
)

// Chain errors
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeGasPriceFetchFailed      Code = "GAS_PRICE_FETCH_FAILED"
	CodeSubmissionFailed         Code = "SUBMISSION_FAILED"
	CodeConfirmationFailed       Code = "CONFIRMATION_FAILED"
	CodeConfirmationTimeout      Code = "CONFIRMATION_TIMEOUT"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)

// Orchestration errors
const (
	CodeBusy          Code = "BUSY"
	CodeUnknownDomain Code = "UNKNOWN_DOMAIN"
)
