package provider

import (
	"errors"
	"fmt"

	dErrors "idvgate/pkg/domain-errors"
)

// ErrorCategory is the normalized failure taxonomy for provider calls.
type ErrorCategory string

const (
	// ErrorAuthentication indicates the provider rejected our credential (401).
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorBadData indicates a malformed or incomplete payload.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorRemote indicates an explicit error payload or unexpected status.
	ErrorRemote ErrorCategory = "remote_error"

	// ErrorTimeout indicates the call did not finish in time.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorOutage indicates the provider could not be reached.
	ErrorOutage ErrorCategory = "provider_outage"
)

// credentialHelp replaces the provider's 401 body so operators know what to fix.
const credentialHelp = "verification provider rejected the API credential; check IDV_PRIVATE_KEY matches the key in the provider dashboard"

// Error wraps provider failures with a normalized category.
type Error struct {
	Category   ErrorCategory
	Operation  string
	StatusCode int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Operation, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, operation string, status int, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Operation:  operation,
		StatusCode: status,
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the category from an error chain.
func GetCategory(err error) ErrorCategory {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorRemote
}

// ToDomainError maps a provider failure to the host-facing taxonomy: 401s
// become invalid_credential with a help message, everything else remote_error.
func ToDomainError(err error) error {
	if err == nil {
		return nil
	}
	if GetCategory(err) == ErrorAuthentication {
		return dErrors.Wrap(err, dErrors.CodeInvalidCredential, credentialHelp)
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Message != "" {
		return dErrors.Wrap(err, dErrors.CodeRemote, pe.Message)
	}
	return dErrors.Wrap(err, dErrors.CodeRemote, "verification provider request failed")
}
