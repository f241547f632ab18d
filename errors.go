package classifieds

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeStorage      ErrorType = "storage"
)

// ClassifiedsError is the structured error returned by every manager.
type ClassifiedsError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *ClassifiedsError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *ClassifiedsError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to the error
func (e *ClassifiedsError) WithDetail(key string, value any) *ClassifiedsError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to the error
func (e *ClassifiedsError) WithCause(cause error) *ClassifiedsError {
	e.Cause = cause
	return e
}

// WithField adds field context to the error
func (e *ClassifiedsError) WithField(field string) *ClassifiedsError {
	e.Field = field
	return e
}

const (
	ErrCodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	ErrCodeListingNotFound  = "LISTING_NOT_FOUND"
	ErrCodeCommentNotFound  = "COMMENT_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeAuthorNotFound   = "AUTHOR_NOT_FOUND"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeStorageFailure   = "STORAGE_FAILURE"
	ErrCodeInvalidField     = "INVALID_FIELD"

	// Attribute validation
	ErrCodeMissingRequiredAttribute = "MISSING_REQUIRED_ATTRIBUTE"
	ErrCodeUnknownAttribute         = "UNKNOWN_ATTRIBUTE"
	ErrCodeTypeMismatch             = "TYPE_MISMATCH"
	ErrCodeInvalidEnumOptions       = "INVALID_ENUM_OPTIONS"
	ErrCodeBelowMinimum             = "BELOW_MINIMUM"
	ErrCodeAboveMaximum             = "ABOVE_MAXIMUM"
	ErrCodeBeforeMinDate            = "BEFORE_MIN_DATE"
	ErrCodeAfterMaxDate             = "AFTER_MAX_DATE"
)

// NewClassifiedsError creates a new error with an empty detail map.
func NewClassifiedsError(errorType ErrorType, code, message string) *ClassifiedsError {
	return &ClassifiedsError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

func NewCategoryNotFoundError(categoryID fmt.Stringer) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeNotFound, ErrCodeCategoryNotFound, "category not found").
		WithDetail("category_id", categoryID.String())
}

func NewListingNotFoundError(listingID fmt.Stringer) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeNotFound, ErrCodeListingNotFound, "listing not found").
		WithDetail("listing_id", listingID.String())
}

func NewCommentNotFoundError(commentID fmt.Stringer) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeNotFound, ErrCodeCommentNotFound, "comment not found").
		WithDetail("comment_id", commentID.String())
}

func NewUserNotFoundError(userID fmt.Stringer) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeNotFound, ErrCodeUserNotFound, "user not found").
		WithDetail("user_id", userID.String())
}

// NewAuthorNotFoundError reports an actor without a user record. It is a
// caller error: the token names a user the store does not know.
func NewAuthorNotFoundError(authorID fmt.Stringer) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeAuthorNotFound, "author not found").
		WithField("author_id").
		WithDetail("author_id", authorID.String())
}

// NewForbiddenError reports an actor lacking ownership or an elevated role.
func NewForbiddenError(message string) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeForbidden, ErrCodeForbidden, message).
		WithDetail("required_role", []Role{RoleAdmin, RoleModerator})
}

func NewUnauthorizedError(message string) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeUnauthorized, ErrCodeUnauthorized, message)
}

// NewConflictError reports a duplicate value of a unique field.
func NewConflictError(field, message string) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeConflict, ErrCodeConflict, message).WithField(field)
}

// NewStorageError wraps a persistence failure. The cause is kept for logs
// and never shown to clients.
func NewStorageError(message string, cause error) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeStorage, ErrCodeStorageFailure, message).WithCause(cause)
}

// NewValidationError creates a validation error on a plain input field
func NewValidationError(field, message string) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeInvalidField, message).WithField(field)
}

// Attribute validation error constructors

func NewMissingRequiredAttributeError(key string) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeMissingRequiredAttribute,
		fmt.Sprintf("attribute %q is required", key)).WithField(key)
}

func NewUnknownAttributeError(key string) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeUnknownAttribute,
		fmt.Sprintf("attribute %q is not defined for this category", key)).WithField(key)
}

func NewTypeMismatchError(key string, expected AttributeType, got any) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeTypeMismatch,
		fmt.Sprintf("attribute %q must be of type %s", key, expected)).
		WithField(key).
		WithDetail("expected", expected).
		WithDetail("got", fmt.Sprintf("%T", got))
}

func NewInvalidEnumOptionsError(key string) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeInvalidEnumOptions,
		fmt.Sprintf("attribute %q has no valid option list", key)).WithField(key)
}

func NewBelowMinimumError(key string, bound float64) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeBelowMinimum,
		fmt.Sprintf("attribute %q must be at least %v", key, bound)).
		WithField(key).
		WithDetail("min", bound)
}

func NewAboveMaximumError(key string, bound float64) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeAboveMaximum,
		fmt.Sprintf("attribute %q must be at most %v", key, bound)).
		WithField(key).
		WithDetail("max", bound)
}

func NewBeforeMinDateError(key string, bound time.Time) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeBeforeMinDate,
		fmt.Sprintf("attribute %q must not be before %s", key, bound.Format(time.RFC3339))).
		WithField(key).
		WithDetail("min_date", bound.Format(time.RFC3339))
}

func NewAfterMaxDateError(key string, bound time.Time) *ClassifiedsError {
	return NewClassifiedsError(ErrorTypeValidation, ErrCodeAfterMaxDate,
		fmt.Sprintf("attribute %q must not be after %s", key, bound.Format(time.RFC3339))).
		WithField(key).
		WithDetail("max_date", bound.Format(time.RFC3339))
}

// ============================================================================
// Error checking utilities
// ============================================================================

// ErrorTypeOf returns the type of the first ClassifiedsError in err's chain,
// or ErrorTypeStorage for anything else.
func ErrorTypeOf(err error) ErrorType {
	var ce *ClassifiedsError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrorTypeStorage
}

// ErrorCodeOf returns the code of the first ClassifiedsError in err's chain.
func ErrorCodeOf(err error) string {
	var ce *ClassifiedsError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrorTypeNotFound
}

func IsForbidden(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrorTypeForbidden
}

func IsValidation(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrorTypeValidation
}

func IsConflict(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrorTypeConflict
}
