package util

import (
	"errors"
	"fmt"
)

// Error codes shared by every layer.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeNotFound          = "NOT_FOUND"
	CodeQuotaExceeded     = "QUOTA_EXCEEDED"
	CodeCooldown          = "COOLDOWN_ACTIVE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeExternalResource  = "EXTERNAL_RESOURCE"
	CodePersistence       = "PERSISTENCE_FAILED"
	CodeConfiguration     = "CONFIGURATION_INVALID"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, details)
}

func NewPermissionDenied(message string) error {
	if message == "" {
		message = "You do not have permission to do that."
	}
	return NewDomainError(CodePermissionDenied, message, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: details,
	}
}

// NewQuotaExceeded reports that the open-ticket limit has been reached.
func NewQuotaExceeded(limit int) error {
	return NewDomainError(CodeQuotaExceeded,
		fmt.Sprintf("You already have the maximum number of open tickets (%d). Please close one before opening another.", limit),
		map[string]any{"limit": limit})
}

// NewCooldown reports the remaining whole seconds before another open is allowed.
func NewCooldown(remainingSeconds int64) error {
	return NewDomainError(CodeCooldown,
		fmt.Sprintf("Please wait %ds before opening another ticket.", remainingSeconds),
		map[string]any{"remaining_seconds": remainingSeconds})
}

func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidTransition, message, details)
}

// NewExternalResource wraps a platform-side failure.
func NewExternalResource(op string, err error) error {
	return &DomainError{
		Code:    CodeExternalResource,
		Message: fmt.Sprintf("platform call %s failed", op),
		Err:     err,
	}
}

func NewPersistence(err error) error {
	return &DomainError{
		Code:    CodePersistence,
		Message: "storage failure",
		Err:     err,
	}
}

func NewConfiguration(message string) error {
	return NewDomainError(CodeConfiguration, message, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// HasCode reports whether err carries the given DomainError code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsUserVisible reports whether the error message may be shown to the requester as is.
func IsUserVisible(err error) bool {
	de := ToDomainError(err)
	if de == nil {
		return false
	}
	switch de.Code {
	case CodeValidation, CodePermissionDenied, CodeNotFound, CodeQuotaExceeded, CodeCooldown, CodeInvalidTransition:
		return true
	}
	return false
}
