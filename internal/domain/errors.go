package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Backend-level failures are always absorbed into run
// state and per-request diagnostics; only programmer errors propagate out of
// Dispatch.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrDuplicate    = fmt.Errorf("duplicate")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrDisabled     = fmt.Errorf("disabled")
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// Sentinel errors for the domain layer.
var (
	ErrBackendNotFound = fmt.Errorf("backend not found")
	ErrNoBackends      = fmt.Errorf("no eligible backends")
	ErrSuspended       = fmt.Errorf("backend suspended")
	ErrExcluded        = fmt.Errorf("backend excluded at startup")
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrBlocked         = fmt.Errorf("request blocked by backend")
	ErrNetwork         = fmt.Errorf("network failure")
	ErrParse           = fmt.Errorf("response parse failed")
	ErrNoLocale        = fmt.Errorf("no usable locale")
	ErrConfigLoad      = fmt.Errorf("failed to load configuration")
	ErrCacheStore      = fmt.Errorf("continuity cache operation failed")
	ErrCollector       = fmt.Errorf("collector state corrupted")
	ErrHookFailed      = fmt.Errorf("hook failed")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Register")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsBackendFailure reports whether err is attributable to a single backend
// run. Such errors are recorded against the backend, never surfaced as a
// request failure.
func IsBackendFailure(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrBlocked)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeDuplicate       ErrorCode = "DUPLICATE"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeDisabled        ErrorCode = "DISABLED"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeBackendNotFound ErrorCode = "BACKEND_NOT_FOUND"
	CodeNoBackends      ErrorCode = "NO_BACKENDS"
	CodeSuspended       ErrorCode = "SUSPENDED"
	CodeExcluded        ErrorCode = "EXCLUDED"
	CodeRateLimit       ErrorCode = "RATE_LIMIT"
	CodeBlocked         ErrorCode = "BLOCKED"
	CodeNetwork         ErrorCode = "NETWORK"
	CodeParse           ErrorCode = "PARSE"
	CodeNoLocale        ErrorCode = "NO_LOCALE"
	CodeConfigLoad      ErrorCode = "CONFIG_LOAD"
	CodeCacheStore      ErrorCode = "CACHE_STORE"
	CodeCollector       ErrorCode = "COLLECTOR"
	CodeHookFailed      ErrorCode = "HOOK_FAILED"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:        CodeNotFound,
	ErrDuplicate:       CodeDuplicate,
	ErrTimeout:         CodeTimeout,
	ErrDisabled:        CodeDisabled,
	ErrInvalidInput:    CodeInvalidInput,
	ErrBackendNotFound: CodeBackendNotFound,
	ErrNoBackends:      CodeNoBackends,
	ErrSuspended:       CodeSuspended,
	ErrExcluded:        CodeExcluded,
	ErrRateLimit:       CodeRateLimit,
	ErrBlocked:         CodeBlocked,
	ErrNetwork:         CodeNetwork,
	ErrParse:           CodeParse,
	ErrNoLocale:        CodeNoLocale,
	ErrConfigLoad:      CodeConfigLoad,
	ErrCacheStore:      CodeCacheStore,
	ErrCollector:       CodeCollector,
	ErrHookFailed:      CodeHookFailed,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
