package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

func invoice(id int64, status billing.Status) billing.Document {
	return billing.Document{
		ID: id, Kind: billing.KindInvoice, Status: status,
		LineItems: []billing.LineItem{{Description: "Work", Quantity: 1, UnitPrice: 10}},
	}
}

func TestPut_ReturnsNewSnapshot(t *testing.T) {
	s0 := New()
	s1 := s0.Put(invoice(1, billing.StatusDraft), invoice(2, billing.StatusIssued))

	assert.Empty(t, s0.Documents(billing.KindInvoice))
	require.Len(t, s1.Documents(billing.KindInvoice), 2)
	assert.Equal(t, int64(2), s1.Documents(billing.KindInvoice)[0].ID, "newest first")
	assert.Greater(t, s1.Version(), s0.Version())

	s2 := s1.Put(invoice(1, billing.StatusIssued))
	before, _ := s1.Document(billing.KindInvoice, 1)
	after, _ := s2.Document(billing.KindInvoice, 1)
	assert.Equal(t, billing.StatusDraft, before.Status)
	assert.Equal(t, billing.StatusIssued, after.Status)
}

func TestDocument_ReturnsCopies(t *testing.T) {
	s := New().Put(invoice(1, billing.StatusDraft))

	doc, ok := s.Document(billing.KindInvoice, 1)
	require.True(t, ok)
	doc.LineItems[0].Quantity = 50

	again, _ := s.Document(billing.KindInvoice, 1)
	assert.Equal(t, 1.0, again.LineItems[0].Quantity)

	_, ok = s.Document(billing.KindQuote, 1)
	assert.False(t, ok, "keys are per kind")
}

func TestReplaceAndRemove(t *testing.T) {
	quote := billing.Document{ID: 1, Kind: billing.KindQuote}
	s := New().Put(invoice(1, billing.StatusDraft), invoice(2, billing.StatusDraft), quote)

	s2 := s.Replace(billing.KindInvoice, []billing.Document{invoice(3, billing.StatusIssued)})
	assert.Len(t, s2.Documents(billing.KindInvoice), 1)
	assert.Len(t, s2.Documents(billing.KindQuote), 1, "other kinds untouched")

	s3 := s2.Remove(billing.KindInvoice, 3)
	assert.Empty(t, s3.Documents(billing.KindInvoice))
	assert.Len(t, s2.Documents(billing.KindInvoice), 1)
}

func TestCustomers(t *testing.T) {
	s := New().PutCustomers(
		billing.Customer{ID: 2, Name: "Zeta"},
		billing.Customer{ID: 1, CompanyName: "Acme Ltd"},
	)
	list := s.Customers()
	require.Len(t, list, 2)
	assert.Equal(t, "Acme Ltd", list[0].DisplayName())

	c, ok := s.Customer(2)
	require.True(t, ok)
	assert.Equal(t, "Zeta", c.Name)

	s2 := s.ReplaceCustomers([]billing.Customer{{ID: 5, Name: "Only"}})
	assert.Len(t, s2.Customers(), 1)
	assert.Len(t, s.Customers(), 2)

	s3 := s.RemoveCustomer(2)
	_, ok = s3.Customer(2)
	assert.False(t, ok)
	_, ok = s.Customer(2)
	assert.True(t, ok, "older snapshot keeps the customer")
}
