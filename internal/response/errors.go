package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrBadRequest     ErrCode = "BAD_REQUEST"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid credentials"
	case ErrTokenRequired:
		return "Authentication token is required"
	case ErrTokenInvalid:
		return "Authentication token is invalid"
	case ErrTokenExpired:
		return "Authentication token has expired"

	case ErrForbidden:
		return "You are not allowed to access this resource"
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers"

	case ErrValidation:
		return "Validation failed"
	case ErrInvalidID:
		return "Invalid ID format"
	case ErrInvalidPayload:
		return "Invalid request payload"
	case ErrBadRequest:
		return "Bad request"

	case ErrNotFound:
		return "Resource not found"
	case ErrConflict:
		return "Resource already exists"

	case ErrRateLimitExceeded:
		return "Too many requests, try again later"

	case ErrInternal:
		return "Internal server error"
	default:
		return "Unexpected error"
	}
}
