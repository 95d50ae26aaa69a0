package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTemporary      = errors.New("temporary failure")
	ErrPrecondition   = errors.New("precondition failed")
	ErrInvalidDate    = errors.New("invalid date")
	ErrRejected       = errors.New("document rejected")
	ErrDispatchFailed = errors.New("dispatch failed")

	// ErrUniqueViolation is raised by repositories when a unique constraint rejects a write.
	ErrUniqueViolation = errors.New("unique violation")
	ErrAliasExhausted  = errors.New("could not allocate a unique alias")

	// ErrStatusNotRecorded means the e-mail left the system but the invoice
	// could not be marked as sent. Must not be retried.
	ErrStatusNotRecorded = errors.New("sent but status not recorded")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

const (
	PreconditionAccountantEmailMissing = "accountant_email_missing"
	PreconditionInvoiceFileMissing     = "invoice_file_missing"
	PreconditionEmailNotConfigured     = "email_not_configured"
)

// PreconditionError reports a user-actionable missing prerequisite.
type PreconditionError struct {
	Code    string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// RejectionError is returned when a classified document fails the acceptance policy.
type RejectionError struct {
	Reason     string
	Extraction ExtractedInvoice
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("document rejected: %s", e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}
