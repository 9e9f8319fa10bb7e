package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeInvalidCredentials  ErrorType = "invalid_credentials"
	ErrorTypeUnauthenticated     ErrorType = "unauthenticated"
	ErrorTypeForbidden           ErrorType = "forbidden"
	ErrorTypeInvalidTokens       ErrorType = "invalid_tokens"
	ErrorTypeUnknownSigningKey   ErrorType = "unknown_signing_key"
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable"
	ErrorTypeConfiguration       ErrorType = "configuration"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeInternal            ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Authentication Errors
	ErrInvalidCredentials = NewDomainError(ErrorTypeInvalidCredentials, "username or password incorrect", nil)
	ErrUnauthenticated    = NewDomainError(ErrorTypeUnauthenticated, "missing, unknown or expired session token", nil)
	ErrInvalidTokens      = NewDomainError(ErrorTypeInvalidTokens, "invalid keycloak tokens", nil)
	ErrUnknownSigningKey  = NewDomainError(ErrorTypeUnknownSigningKey, "token signed by unknown key", nil)

	// Permission Errors
	ErrForbidden = NewDomainError(ErrorTypeForbidden, "insufficient permissions", nil)

	// External Provider Errors
	ErrProviderUnavailable = NewDomainError(ErrorTypeProviderUnavailable, "identity provider unavailable", nil)

	// Configuration Errors
	ErrConfiguration         = NewDomainError(ErrorTypeConfiguration, "server misconfigured", nil)
	ErrTokenRelayUnsupported = NewDomainError(ErrorTypeConfiguration, "token relay login requires keycloak auth mode", nil)

	// Not Found Errors
	ErrPostNotFound   = NewDomainError(ErrorTypeNotFound, "post not found", nil)
	ErrAuthorNotFound = NewDomainError(ErrorTypeNotFound, "author not found", nil)

	// Validation Errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Internal Errors
	ErrDatabaseError     = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)
)

// Error type checking helper functions

func isType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsInvalidCredentialsError checks if an error is a rejected username/password
func IsInvalidCredentialsError(err error) bool {
	return isType(err, ErrorTypeInvalidCredentials)
}

// IsUnauthenticatedError checks if an error is a missing or dead session
func IsUnauthenticatedError(err error) bool {
	return isType(err, ErrorTypeUnauthenticated)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return isType(err, ErrorTypeForbidden)
}

// IsInvalidTokensError checks if an error is a relayed token validation failure
func IsInvalidTokensError(err error) bool {
	return isType(err, ErrorTypeInvalidTokens)
}

// IsUnknownSigningKeyError checks if an error is a kid lookup failure
func IsUnknownSigningKeyError(err error) bool {
	return isType(err, ErrorTypeUnknownSigningKey)
}

// IsProviderUnavailableError checks if an error is an identity provider failure
func IsProviderUnavailableError(err error) bool {
	return isType(err, ErrorTypeProviderUnavailable)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return isType(err, ErrorTypeConfiguration)
}

// IsAuthenticationError checks if an error should be answered with 401
func IsAuthenticationError(err error) bool {
	return IsInvalidCredentialsError(err) ||
		IsUnauthenticatedError(err) ||
		IsInvalidTokensError(err) ||
		IsUnknownSigningKeyError(err)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorMessage returns the client-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with the message of a sentinel domain error
func WrapError(sentinel *DomainError, err error) error {
	return NewDomainError(sentinel.Type, sentinel.Message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
