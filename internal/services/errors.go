package services

import (
	"context"
	"errors"
)

type ErrorCode string

const (
	ErrorInvalid              ErrorCode = "invalid"
	ErrorNotFound             ErrorCode = "not_found"
	ErrorConflict             ErrorCode = "conflict"
	ErrorUnauthorized         ErrorCode = "unauthorized"
	ErrorAlreadyCompleted     ErrorCode = "already_completed"
	ErrorHasResponses         ErrorCode = "has_responses"
	ErrorHasActiveInvolvement ErrorCode = "has_active_involvement"
	ErrorPersistence          ErrorCode = "persistence"
	ErrorBadGateway           ErrorCode = "bad_gateway"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewAlreadyCompletedError(msg string) error {
	return &ServiceError{Code: ErrorAlreadyCompleted, Message: msg}
}

func NewHasResponsesError(msg string) error {
	return &ServiceError{Code: ErrorHasResponses, Message: msg}
}

func NewHasActiveInvolvementError(msg string) error {
	return &ServiceError{Code: ErrorHasActiveInvolvement, Message: msg}
}

func NewBadGatewayError(msg string) error {
	return &ServiceError{Code: ErrorBadGateway, Message: msg}
}

// NewPersistenceError wraps a storage failure. Service errors pass through untouched.
func NewPersistenceError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsServiceError(err); ok {
		return err
	}
	return &ServiceError{Code: ErrorPersistence, Message: "persistence failure", Err: err}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCode reports whether err is a ServiceError carrying code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}

// ErrInvitationClosed is returned by stores when the conditional completion
// update matched no pending invitation.
var ErrInvitationClosed = errors.New("invitation already completed")

// Transactor runs fn inside a single database transaction. Store calls made
// with the ctx handed to fn join that transaction; returning an error rolls
// everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditLogger records administrative actions.
type AuditLogger interface {
	AddAudit(ctx context.Context, entry AuditEntry) error
}
