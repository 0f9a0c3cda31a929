package billing

import (
	"fmt"
	"strings"
)

// Lifecycle operations are pure: they return a new Document and leave the
// input untouched. A rejected operation returns the input unchanged together
// with an error wrapping one of the sentinels in errors.go.

// CheckEditable fails unless the document is still a draft.
func CheckEditable(doc Document) error {
	if doc.Status != StatusDraft {
		return fmt.Errorf("%w: %s is %s", ErrCannotEdit, describe(doc), doc.Status)
	}
	return nil
}

// CheckDelete fails unless the document is a draft.
func CheckDelete(doc Document) error {
	if doc.Status != StatusDraft {
		return fmt.Errorf("%w: %s is %s, cancel it instead", ErrCannotDelete, describe(doc), doc.Status)
	}
	return nil
}

// CheckSubmittable enforces the content invariants checked before a create
// or update call: at least one line item for quotes and invoices, a positive
// amount for receipts, and a client or company name.
func CheckSubmittable(doc Document) error {
	if strings.TrimSpace(doc.Customer.ClientName) == "" && strings.TrimSpace(doc.Customer.CompanyName) == "" && doc.Customer.CustomerID == nil {
		return ErrMissingClient
	}
	if doc.Kind == KindReceipt {
		if !(doc.Amount > 0) {
			return ErrInvalidAmount
		}
		return nil
	}
	if len(doc.LineItems) == 0 {
		return ErrEmptyLines
	}
	return nil
}

// CheckSendable fails for cancelled documents and receipts.
func CheckSendable(doc Document) error {
	if doc.Kind == KindReceipt {
		return fmt.Errorf("%w: receipts are not emailed", ErrWrongKind)
	}
	if doc.Status == StatusCancelled {
		return fmt.Errorf("%w: %s", ErrCannotSend, describe(doc))
	}
	return nil
}

// Issue moves a draft to issued.
func Issue(doc Document) (Document, error) {
	if !CanTransition(doc.Kind, doc.Status, StatusIssued) {
		return doc, fmt.Errorf("%w: %s is %s", ErrCannotIssue, describe(doc), doc.Status)
	}
	out := doc.Clone()
	out.Status = StatusIssued
	return out, nil
}

// Cancel moves an issued or invoiced document to cancelled. The reason is
// mandatory.
func Cancel(doc Document, reason string) (Document, error) {
	if !CanTransition(doc.Kind, doc.Status, StatusCancelled) {
		return doc, fmt.Errorf("%w: %s is %s", ErrCannotCancel, describe(doc), doc.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return doc, ErrReasonRequired
	}
	out := doc.Clone()
	out.Status = StatusCancelled
	out.CancelReason = reason
	return out, nil
}

// ConvertToInvoice marks an issued quote as invoiced and seeds a new draft
// invoice with its customer, line items and percentages. Totals are copied,
// not recomputed; the quote's validity date becomes the invoice due date.
func ConvertToInvoice(quote Document) (Document, Document, error) {
	if quote.Kind != KindQuote {
		return quote, Document{}, fmt.Errorf("%w: convert %s", ErrWrongKind, describe(quote))
	}
	if !CanTransition(quote.Kind, quote.Status, StatusInvoiced) {
		return quote, Document{}, fmt.Errorf("%w: %s is %s", ErrCannotConvert, describe(quote), quote.Status)
	}
	src := quote.Clone()
	invoice := Document{
		Kind:        KindInvoice,
		Status:      StatusDraft,
		Customer:    src.Customer,
		Discount:    src.Discount,
		Tax:         src.Tax,
		Notes:       src.Notes,
		LineItems:   src.LineItems,
		Total:       src.Total,
		ProjectID:   src.ProjectID,
		MilestoneID: src.MilestoneID,
		DueDate:     src.ValidUntil,
	}
	converted := quote.Clone()
	converted.Status = StatusInvoiced
	return converted, invoice, nil
}

func describe(doc Document) string {
	name := strings.ToLower(doc.Kind.Label())
	switch {
	case doc.Number != "":
		return name + " " + doc.Number
	case doc.ID != 0:
		return fmt.Sprintf("%s #%d", name, doc.ID)
	}
	return name
}
