package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrForbidden     ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Simulation ────────────────────────────────────────────────────
	ErrSessionConflict ErrCode = "SESSION_ALREADY_IN_PROGRESS"
	ErrSectionOrder    ErrCode = "SECTION_ORDER_VIOLATION"
	ErrCorruptSession  ErrCode = "CORRUPT_SESSION_STATE"
	ErrBreakTooSoon    ErrCode = "BREAK_MIN_WAIT_NOT_REACHED"
	ErrNoLiveSession   ErrCode = "NO_LIVE_SESSION"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid id format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrNotFound:
		return "Resource not found."
	case ErrSessionConflict:
		return "A simulation is already in progress. Resume it or abandon it first."
	case ErrSectionOrder:
		return "This action is not allowed in the current section state."
	case ErrCorruptSession:
		return "The saved simulation state is inconsistent and cannot be resumed."
	case ErrBreakTooSoon:
		return "The break cannot be skipped yet."
	case ErrNoLiveSession:
		return "No running simulation was found. Resume the session first."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
