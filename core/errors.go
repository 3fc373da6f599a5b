package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ResourceErrorConflict     = "RESOURCE_CONFLICT"
	ResourceErrorNotFound     = "RESOURCE_NOT_FOUND"
	ResourceErrorValidation   = "RESOURCE_VALIDATION_FAILED"
	ResourceErrorBadRequest   = "RESOURCE_BAD_REQUEST"
	ResourceErrorUnauthorized = "RESOURCE_UNAUTHORIZED"
	ResourceErrorForbidden    = "RESOURCE_FORBIDDEN"
	ResourceErrorInternal     = "RESOURCE_INTERNAL_ERROR"
)

// Kind is the caller-facing classification of a failure.
type Kind string

const (
	KindNone         Kind = ""
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation_failure"
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// ErrTransactionResolved is the source of every TransactionResolvedError;
// match it with errors.Is.
var ErrTransactionResolved = errors.New("transaction already resolved")

// TransactionResolvedError reports a handle that was committed or aborted
// more than once. Each call returns a fresh envelope.
func TransactionResolvedError() error {
	return WrapError(ErrTransactionResolved, KindInternal, "transaction already resolved")
}

func ConflictError(message string) error {
	return newResourceError(message, goerrors.CategoryConflict, ResourceErrorConflict)
}

func NotFoundError(message string) error {
	return newResourceError(message, goerrors.CategoryNotFound, ResourceErrorNotFound)
}

func ValidationError(message string, fields ...goerrors.FieldError) error {
	err := goerrors.NewValidation(message, fields...)
	return ensureResourceErrorEnvelope(err.WithTextCode(ResourceErrorValidation))
}

func BadRequestError(message string) error {
	return newResourceError(message, goerrors.CategoryBadInput, ResourceErrorBadRequest)
}

func UnauthorizedError(message string) error {
	return newResourceError(message, goerrors.CategoryAuth, ResourceErrorUnauthorized)
}

func ForbiddenError(message string) error {
	return newResourceError(message, goerrors.CategoryAuthz, ResourceErrorForbidden)
}

func InternalError(message string) error {
	return newResourceError(message, goerrors.CategoryInternal, ResourceErrorInternal)
}

// WrapError attaches a category to a lower level failure, keeping it as the
// error source.
func WrapError(source error, kind Kind, message string) error {
	if source == nil {
		return nil
	}
	category := categoryForKind(kind)
	// goerrors.Wrap keeps the category of a go-errors source, so the
	// envelope is built fresh with source attached.
	wrapped := goerrors.New(message, category).
		WithTextCode(defaultResourceTextCode(category))
	wrapped.Source = source
	var rich *goerrors.Error
	if goerrors.As(source, &rich) && rich != nil {
		wrapped.ValidationErrors = append(goerrors.ValidationErrors(nil), rich.ValidationErrors...)
	}
	return ensureResourceErrorEnvelope(wrapped)
}

// RequireID rejects blank identifiers before any storage access.
func RequireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return BadRequestError(field + " is required")
	}
	return nil
}

func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return kindForCategory(rich.Category)
	}
	return KindInternal
}

func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsBadRequest(err error) bool   { return KindOf(err) == KindBadRequest }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// HTTPStatus reports the status an endpoint layer would answer with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		if rich.Code != 0 {
			return rich.Code
		}
		return resourceHTTPStatus(rich.Category)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// MapError normalizes any error into the resource error envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return ensureResourceErrorEnvelope(rich)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureResourceErrorEnvelope(mapped)
}

func newResourceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureResourceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureResourceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = resourceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultResourceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func kindForCategory(category goerrors.Category) Kind {
	switch category {
	case goerrors.CategoryConflict:
		return KindConflict
	case goerrors.CategoryNotFound:
		return KindNotFound
	case goerrors.CategoryValidation:
		return KindValidation
	case goerrors.CategoryBadInput:
		return KindBadRequest
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return KindUnauthorized
	default:
		return KindInternal
	}
}

func categoryForKind(kind Kind) goerrors.Category {
	switch kind {
	case KindConflict:
		return goerrors.CategoryConflict
	case KindNotFound:
		return goerrors.CategoryNotFound
	case KindValidation:
		return goerrors.CategoryValidation
	case KindBadRequest:
		return goerrors.CategoryBadInput
	case KindUnauthorized:
		return goerrors.CategoryAuth
	default:
		return goerrors.CategoryInternal
	}
}

func defaultResourceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryConflict:
		return ResourceErrorConflict
	case goerrors.CategoryNotFound:
		return ResourceErrorNotFound
	case goerrors.CategoryValidation:
		return ResourceErrorValidation
	case goerrors.CategoryBadInput:
		return ResourceErrorBadRequest
	case goerrors.CategoryAuth:
		return ResourceErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ResourceErrorForbidden
	default:
		return ResourceErrorInternal
	}
}

func resourceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
