package constants

// Migration Error Codes
// These constants classify failure scenarios encountered by the pipeline

// Transfer-related errors
const (
	ErrCodeNetworkError = "NETWORK_ERROR"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeSourceGone   = "SOURCE_GONE"
	ErrCodeMalformedURL = "MALFORMED_URL"
	ErrCodeUploadFailed = "UPLOAD_FAILED"
)

// Data errors
const (
	ErrCodeOrphanReference = "ORPHAN_REFERENCE"
	ErrCodeRowCountDrop    = "ROW_COUNT_DROP"
	ErrCodeDuplicateEntity = "DUPLICATE_ENTITY"
)

// Ledger errors
const (
	ErrCodeStepCommitted = "STEP_ALREADY_COMMITTED"
)

var MigrationErrorMessages = map[string]string{
	ErrCodeNetworkError:    "Unable to reach the source storage. The transfer will be retried",
	ErrCodeRateLimited:     "Rate limit exceeded while transferring assets. Please try again later",
	ErrCodeSourceGone:      "The source asset no longer exists and cannot be relocated",
	ErrCodeMalformedURL:    "The source URL is malformed and was skipped",
	ErrCodeUploadFailed:    "Uploading to the target store failed",
	ErrCodeOrphanReference: "A dependent record references a canonical entity that does not exist",
	ErrCodeRowCountDrop:    "A table lost rows during migration. Operator review required",
	ErrCodeDuplicateEntity: "A canonical entity was inserted twice for the same name",
	ErrCodeStepCommitted:   "This step has already been committed and cannot be restarted",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := MigrationErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
