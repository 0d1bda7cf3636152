package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Transaction lifecycle error codes
const (
	// Node connection
	CodeConnectionFailed Code = "CONNECTION_FAILED"
	CodeRPCError         Code = "RPC_ERROR"

	// Transaction building and submission
	CodeBuildFailed      Code = "BUILD_FAILED"
	CodeSigningFailed    Code = "SIGNING_FAILED"
	CodeSubmissionFailed Code = "SUBMISSION_FAILED"
	CodeReceiptTimeout   Code = "RECEIPT_TIMEOUT"

	// Account / address validation
	CodeInvalidAddress    Code = "INVALID_ADDRESS"
	CodeInvalidPrivateKey Code = "INVALID_PRIVATE_KEY"

	// Venue contracts
	CodeSwapBuildFailed    Code = "SWAP_BUILD_FAILED"
	CodeSwapFailed         Code = "SWAP_FAILED"
	CodePoolMismatch       Code = "POOL_MISMATCH"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeABINotFound        Code = "ABI_NOT_FOUND"
	CodeApprovalFailed     Code = "APPROVAL_FAILED"
)
