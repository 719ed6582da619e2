package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Invocation errors
const (
	// ErrCodeUsage indicates the command was invoked incorrectly.
	ErrCodeUsage ErrorCode = "USAGE_ERROR"
	// ErrCodeInvalidConfig indicates the loaded configuration is invalid.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Source errors
const (
	// ErrCodeNotFoundOrUnreadable indicates the input file could not be opened for reading.
	ErrCodeNotFoundOrUnreadable ErrorCode = "NOT_FOUND_OR_UNREADABLE"
	// ErrCodeInternalRelease indicates a tail-mode release/reopen cycle failed.
	ErrCodeInternalRelease ErrorCode = "INTERNAL_RELEASE_ERROR"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Exit statuses reported by the command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var exitCodes = map[ErrorCode]int{
	ErrCodeUsage:                ExitUsage,
	ErrCodeInvalidConfig:        ExitUsage,
	ErrCodeNotFoundOrUnreadable: ExitFailure,
	ErrCodeInternalRelease:      ExitFailure,
	ErrCodeInternal:             ExitFailure,
}

// ExitCodeFor returns the process exit status for an error code.
// Unknown codes map to ExitFailure.
func ExitCodeFor(code ErrorCode) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return ExitFailure
}
