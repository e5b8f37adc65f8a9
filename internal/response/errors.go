package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrAdminAccessOnly  ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Question bank ─────────────────────────────────────────────────
	ErrInvalidBankFile ErrCode = "INVALID_BANK_FILE"
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Test-specific ─────────────────────────────────────────────────
	ErrTestUnavailable      ErrCode = "TEST_UNAVAILABLE"
	ErrAttemptFinished      ErrCode = "ATTEMPT_FINISHED"
	ErrAttemptNotFinished   ErrCode = "ATTEMPT_NOT_FINISHED"
	ErrInvalidPosition      ErrCode = "INVALID_POSITION"
	ErrQuestionUnavailable  ErrCode = "QUESTION_UNAVAILABLE"
	ErrUnsupportedExportFmt ErrCode = "UNSUPPORTED_EXPORT_FORMAT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Question bank ─────────────────────────────────────────────────
	case ErrInvalidBankFile:
		return "The uploaded file is not a valid JSON question list."
	case ErrFileRequired:
		return "A file upload is required."
	case ErrFileTooLarge:
		return "The file exceeds the upload size limit."

	// ─── Test-specific ─────────────────────────────────────────────────
	case ErrTestUnavailable:
		return "A test cannot be assembled from the current question bank. Please contact an administrator."
	case ErrAttemptFinished:
		return "This attempt is already finished."
	case ErrAttemptNotFinished:
		return "This attempt is still in progress."
	case ErrInvalidPosition:
		return "Question number is out of range."
	case ErrQuestionUnavailable:
		return "This question is no longer available."
	case ErrUnsupportedExportFmt:
		return "Unsupported export format. Use csv or xlsx."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
