package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",
	CodeRateLimitExceeded:  "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Estimate service
	CodeNetworkError:      "Estimate service unreachable",
	CodeAPIError:          "Estimate service returned an error",
	CodeMalformedResponse: "Estimate response is malformed",

	// Chain
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeGasPriceFetchFailed:      "Failed to fetch gas price",
	CodeSubmissionFailed:         "Transaction rejected before broadcast",
	CodeConfirmationFailed:       "Transaction failed on chain",
	CodeConfirmationTimeout:      "Transaction not mined within the confirmation window",
	CodeCircuitOpen:              "Circuit breaker is open",

	// Orchestration
	CodeBusy:          "An update for this domain is already in progress",
	CodeUnknownDomain: "Unknown oracle domain",
}
