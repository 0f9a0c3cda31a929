package billing

import "strings"

// CancelReason is one of the predefined cancellation reasons.
type CancelReason string

const (
	ReasonCustomerRequest CancelReason = "Customer request"
	ReasonIssuedInError   CancelReason = "Issued in error"
	ReasonWrongAmount     CancelReason = "Incorrect amount"
	ReasonWrongCustomer   CancelReason = "Incorrect customer details"
	ReasonDuplicate       CancelReason = "Duplicate document"
	ReasonReplaced        CancelReason = "Replaced by a new document"
	ReasonOther           CancelReason = "Other"
)

// CancelReasons is the list offered to the user, Other last.
var CancelReasons = []CancelReason{
	ReasonCustomerRequest,
	ReasonIssuedInError,
	ReasonWrongAmount,
	ReasonWrongCustomer,
	ReasonDuplicate,
	ReasonReplaced,
	ReasonOther,
}

const otherPrefix = string(ReasonOther) + ": "

// ComposeCancelReason builds the wire value for a selected reason. Other
// requires free text and is encoded as "Other: <text>".
func ComposeCancelReason(reason CancelReason, detail string) (string, error) {
	detail = strings.TrimSpace(detail)
	if reason == "" {
		return "", ErrReasonRequired
	}
	if reason == ReasonOther {
		if detail == "" {
			return "", ErrOtherReason
		}
		return otherPrefix + detail, nil
	}
	for _, known := range CancelReasons {
		if reason == known {
			return string(reason), nil
		}
	}
	return "", ErrUnknownReason
}

// ParseCancelReason splits a stored reason back into its parts. Free text
// that does not match the list is reported as Other.
func ParseCancelReason(s string) (CancelReason, string) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, otherPrefix); ok {
		return ReasonOther, strings.TrimSpace(rest)
	}
	for _, known := range CancelReasons {
		if s == string(known) && known != ReasonOther {
			return known, ""
		}
	}
	return ReasonOther, s
}
