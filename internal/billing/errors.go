package billing

import "errors"

// Domain errors for billing documents.
var (
	// ErrValidation groups field level validation failures.
	ErrValidation = errors.New("validation failed")

	// Status transition errors.
	ErrCannotEdit    = errors.New("document can only be edited while in draft")
	ErrCannotIssue   = errors.New("document can only be issued from draft")
	ErrCannotCancel  = errors.New("document can only be cancelled once issued")
	ErrCannotDelete  = errors.New("only draft documents can be deleted")
	ErrCannotConvert = errors.New("only issued quotes can be converted to an invoice")
	ErrCannotSend    = errors.New("cancelled documents cannot be sent")
	ErrWrongKind     = errors.New("operation not supported for this document kind")

	// Content errors.
	ErrEmptyLines     = errors.New("at least one line item is required")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrMissingClient  = errors.New("either client name or company name must be provided")
	ErrReasonRequired = errors.New("a cancellation reason is required")
	ErrOtherReason    = errors.New("please describe the reason when choosing Other")
	ErrUnknownReason  = errors.New("unknown cancellation reason")
)
