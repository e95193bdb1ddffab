package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrAdminAccessOnly    ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session protocol ──────────────────────────────────────────────
	ErrInvalidTransition    ErrCode = "INVALID_TRANSITION"
	ErrSessionAlreadyActive ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionNotActive     ErrCode = "SESSION_NOT_ACTIVE"
	ErrConsentRequired      ErrCode = "CONSENT_REQUIRED"

	// ─── Privacy ───────────────────────────────────────────────────────
	ErrAlreadyAnonymized    ErrCode = "ALREADY_ANONYMIZED"
	ErrAlreadyDeleted       ErrCode = "ALREADY_DELETED"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"
	ErrUnsupportedFormat    ErrCode = "UNSUPPORTED_EXPORT_FORMAT"

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
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
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
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Session protocol ──────────────────────────────────────────────
	case ErrInvalidTransition:
		return "The requested phase transition violates the protocol order."
	case ErrSessionAlreadyActive:
		return "The participant already has an active study session."
	case ErrSessionNotActive:
		return "The study session is no longer active."
	case ErrConsentRequired:
		return "The participant has not given consent."

	// ─── Privacy ───────────────────────────────────────────────────────
	case ErrAlreadyAnonymized:
		return "The participant's data has already been anonymized."
	case ErrAlreadyDeleted:
		return "The participant's data has already been deleted."
	case ErrConfirmationRequired:
		return "Deletion requires the participant's anonymized ID as confirmation token."
	case ErrUnsupportedFormat:
		return "The requested export format is not supported."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
