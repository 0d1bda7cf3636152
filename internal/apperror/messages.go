package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Node connection
	CodeConnectionFailed: "Unable to connect to RPC endpoint",
	CodeRPCError:         "RPC call failed",

	// Transaction lifecycle
	CodeBuildFailed:      "Failed to build transaction",
	CodeSigningFailed:    "Failed to sign transaction",
	CodeSubmissionFailed: "Failed to submit transaction",
	CodeReceiptTimeout:   "Timed out waiting for transaction receipt",

	// Account / address validation
	CodeInvalidAddress:    "Address format is invalid",
	CodeInvalidPrivateKey: "Private key is invalid",

	// Venue contracts
	CodeSwapBuildFailed:    "Failed to build swap parameters",
	CodeSwapFailed:         "Swap execution failed",
	CodePoolMismatch:       "Coins do not exist in pool",
	CodeContractCallFailed: "Smart contract call failed",
	CodeABINotFound:        "ABI does not exist",
	CodeApprovalFailed:     "Token approval failed",
}
