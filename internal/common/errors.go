package common

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures so transports can map them to a status.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Machine-readable codes sent alongside auth failures.
const (
	CodeAccountBlocked = "ACCOUNT_BLOCKED"
	CodeAccountPending = "ACCOUNT_PENDING"
	CodeUnauthorized   = "UNAUTHORIZED"
)

type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError of the same kind and code, so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code) && (t.Message == "" || e.Message == t.Message)
}

func NewValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func NewAuthenticationError(msg string) *AppError {
	return &AppError{Kind: KindAuthentication, Code: CodeUnauthorized, Message: msg}
}

func NewAuthorizationError(code, msg string) *AppError {
	return &AppError{Kind: KindAuthorization, Code: code, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

// NewStorageError wraps a driver failure; the driver message stays visible to callers.
func NewStorageError(op string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: op, Err: err}
}

var (
	ErrBlocked = NewAuthorizationError(CodeAccountBlocked, "Your account is blocked. Contact campus support.")
	ErrPending = NewAuthorizationError(CodeAccountPending, "Your account is pending approval.")
)

// KindOf returns the kind of the first AppError in err's chain, or KindStorage.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// HTTPStatus maps an error to its response status. Conflicts reuse 400.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
