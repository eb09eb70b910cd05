package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation   = "E100"
	CodeDatabase     = "E200"
	CodeExternalAPI  = "E300"
	CodeState        = "E400"
	CodeRateLimit    = "E500"
	CodeUnauthorized = "E600"
	CodeDecode       = "E700"
	CodeCommit       = "E800"
	CodeInternal     = "E900"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid input. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: "Service is temporarily unavailable.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "Your previous message is still being processed. Try again.",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewUnauthorizedError reports a role mismatch on a route.
func NewUnauthorizedError(route, reason string) *AppError {
	return &AppError{
		Code:        CodeUnauthorized,
		Message:     fmt.Sprintf("access to %s denied: %s", route, reason),
		UserMessage: "You are not allowed to do this.",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewDecodeError reports a malformed or unknown callback token.
func NewDecodeError(cause error) *AppError {
	return &AppError{
		Code:        CodeDecode,
		Message:     fmt.Sprintf("decode callback: %v", cause),
		UserMessage: "Error was occurred. This button is no longer valid.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

// NewCommitError reports a failed persistence action after a confirmed flow.
func NewCommitError(intent string, cause error) *AppError {
	return &AppError{
		Code:        CodeCommit,
		Message:     fmt.Sprintf("commit %s failed: %v", intent, cause),
		UserMessage: "Object was not created. Try again.",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}

// NewInternalError reports a bug such as a recovered panic.
func NewInternalError(cause error) *AppError {
	return &AppError{
		Code:        CodeInternal,
		Message:     fmt.Sprintf("internal error: %v", cause),
		UserMessage: "Error was occurred. Try again later.",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}
