package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc(kind Kind, status Status) Document {
	id := int64(7)
	return Document{
		ID:     1,
		Number: "DOC-0001",
		Kind:   kind,
		Status: status,
		Customer: CustomerRef{
			CustomerID: &id,
			ClientName: "Andreas Georgiou",
			Telephone1: "99123456",
		},
		Tax: 19,
		LineItems: []LineItem{
			{Description: "Design", Quantity: 2, UnitPrice: 150},
			{Description: "Hosting", Quantity: 1, UnitPrice: 60, Discount: 10},
		},
		Total: 421.26,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		kind     Kind
		from, to Status
		want     bool
	}{
		{KindInvoice, StatusDraft, StatusIssued, true},
		{KindInvoice, StatusIssued, StatusCancelled, true},
		{KindInvoice, StatusIssued, StatusIssued, false},
		{KindInvoice, StatusDraft, StatusCancelled, false},
		{KindInvoice, StatusCancelled, StatusDraft, false},
		{KindInvoice, StatusIssued, StatusDraft, false},
		{KindQuote, StatusDraft, StatusIssued, true},
		{KindQuote, StatusIssued, StatusInvoiced, true},
		{KindQuote, StatusIssued, StatusConverted, true},
		{KindQuote, StatusInvoiced, StatusCancelled, true},
		{KindQuote, StatusDraft, StatusInvoiced, false},
		{KindQuote, StatusConverted, StatusCancelled, false},
		{KindReceipt, StatusDraft, StatusIssued, true},
		{KindReceipt, StatusIssued, StatusCancelled, true},
		{KindReceipt, StatusIssued, StatusInvoiced, false},
		{KindReceipt, StatusUnknown, StatusIssued, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+":"+string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.kind, tt.from, tt.to))
		})
	}
}

func TestIssue(t *testing.T) {
	draft := sampleDoc(KindInvoice, StatusDraft)

	issued, err := Issue(draft)
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, issued.Status)
	assert.Equal(t, StatusDraft, draft.Status, "input must not be mutated")

	again, err := Issue(issued)
	require.ErrorIs(t, err, ErrCannotIssue)
	assert.Contains(t, err.Error(), "invoice DOC-0001")
	assert.Equal(t, issued, again, "rejected transition leaves state unchanged")
}

func TestCancel(t *testing.T) {
	issued := sampleDoc(KindReceipt, StatusIssued)

	_, err := Cancel(issued, "   ")
	require.ErrorIs(t, err, ErrReasonRequired)

	cancelled, err := Cancel(issued, "Other: test")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "Other: test", cancelled.CancelReason)
	assert.True(t, cancelled.Status.Terminal())
	assert.Empty(t, NextStatuses(cancelled.Kind, cancelled.Status))

	_, err = Cancel(cancelled, "again")
	require.ErrorIs(t, err, ErrCannotCancel)

	_, err = Cancel(sampleDoc(KindInvoice, StatusDraft), "Customer request")
	require.ErrorIs(t, err, ErrCannotCancel)

	quote, err := Cancel(sampleDoc(KindQuote, StatusInvoiced), "Customer request")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, quote.Status)
}

func TestCheckDeleteAndEditable(t *testing.T) {
	require.NoError(t, CheckDelete(sampleDoc(KindInvoice, StatusDraft)))
	require.NoError(t, CheckEditable(sampleDoc(KindQuote, StatusDraft)))

	for _, st := range []Status{StatusIssued, StatusInvoiced, StatusCancelled, StatusUnknown} {
		assert.ErrorIs(t, CheckDelete(sampleDoc(KindInvoice, st)), ErrCannotDelete)
		assert.ErrorIs(t, CheckEditable(sampleDoc(KindQuote, st)), ErrCannotEdit)
	}
}

func TestConvertToInvoice(t *testing.T) {
	quote := sampleDoc(KindQuote, StatusIssued)
	quote.Discount = 5

	converted, invoice, err := ConvertToInvoice(quote)
	require.NoError(t, err)

	assert.Equal(t, StatusInvoiced, converted.Status)
	assert.Equal(t, StatusIssued, quote.Status)

	assert.Equal(t, KindInvoice, invoice.Kind)
	assert.Equal(t, StatusDraft, invoice.Status)
	assert.Equal(t, quote.Customer, invoice.Customer)
	assert.Equal(t, quote.LineItems, invoice.LineItems)
	assert.Equal(t, quote.Discount, invoice.Discount)
	assert.Equal(t, quote.Tax, invoice.Tax)
	assert.Equal(t, quote.Total, invoice.Total)
	assert.Zero(t, invoice.ID)

	invoice.LineItems[0].Quantity = 99
	assert.Equal(t, 2.0, quote.LineItems[0].Quantity, "seeded invoice must not share line items")

	_, _, err = ConvertToInvoice(converted)
	require.ErrorIs(t, err, ErrCannotConvert)

	_, _, err = ConvertToInvoice(sampleDoc(KindQuote, StatusDraft))
	require.ErrorIs(t, err, ErrCannotConvert)

	_, _, err = ConvertToInvoice(sampleDoc(KindInvoice, StatusIssued))
	require.ErrorIs(t, err, ErrWrongKind)
}

func TestCheckSubmittable(t *testing.T) {
	doc := sampleDoc(KindInvoice, StatusDraft)
	require.NoError(t, CheckSubmittable(doc))

	doc.LineItems = nil
	assert.ErrorIs(t, CheckSubmittable(doc), ErrEmptyLines)

	receipt := Document{Kind: KindReceipt, Status: StatusDraft, Customer: CustomerRef{CompanyName: "Acme Ltd"}}
	assert.ErrorIs(t, CheckSubmittable(receipt), ErrInvalidAmount)
	receipt.Amount = 10
	assert.NoError(t, CheckSubmittable(receipt))

	anonymous := Document{Kind: KindQuote, LineItems: []LineItem{{Description: "x", Quantity: 1}}}
	assert.ErrorIs(t, CheckSubmittable(anonymous), ErrMissingClient)
}

func TestActionsFor(t *testing.T) {
	draft := ActionsFor(sampleDoc(KindQuote, StatusDraft))
	assert.Equal(t, Actions{Edit: true, Delete: true, Issue: true, Send: true, ViewPDF: true}, draft)

	issued := ActionsFor(sampleDoc(KindQuote, StatusIssued))
	assert.Equal(t, Actions{Cancel: true, Convert: true, Send: true, ViewPDF: true}, issued)

	cancelled := ActionsFor(sampleDoc(KindInvoice, StatusCancelled))
	assert.Equal(t, Actions{ViewPDF: true}, cancelled)

	receipt := ActionsFor(sampleDoc(KindReceipt, StatusIssued))
	assert.Equal(t, Actions{Cancel: true, ViewPDF: true}, receipt)

	invoice := ActionsFor(sampleDoc(KindInvoice, StatusIssued))
	assert.False(t, invoice.Convert)
}

func TestParseStatusAndBadges(t *testing.T) {
	assert.Equal(t, StatusIssued, ParseStatus(" ISSUED "))
	assert.Equal(t, StatusSent, ParseStatus("sent"))
	assert.Equal(t, StatusUnknown, ParseStatus("voided"))
	assert.Equal(t, StatusUnknown, ParseStatus(""))

	assert.Equal(t, "Unknown", BadgeFor(ParseStatus("archived")).Label)
	assert.Equal(t, ToneDanger, BadgeFor(StatusCancelled).Tone)
	assert.Equal(t, "Invoiced", BadgeFor(StatusInvoiced).Label)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("Invoices")
	require.True(t, ok)
	assert.Equal(t, KindInvoice, k)
	assert.Equal(t, "invoices", k.Collection())

	_, ok = ParseKind("orders")
	assert.False(t, ok)
}
