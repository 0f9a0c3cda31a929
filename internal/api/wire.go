package api

import (
	"time"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

// wireLineItem is a line item as the backend sends and accepts it.
type wireLineItem struct {
	ID          int64   `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total,omitempty"`
}

// wireDocument is the flat document shape shared by the quote, invoice and
// receipt resources. Each kind only fills the fields it owns.
type wireDocument struct {
	ID            int64  `json:"id,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	QuoteNumber   string `json:"quote_number,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	Status        string `json:"status,omitempty"`

	CustomerID    *int64 `json:"customer_id,omitempty"`
	ClientName    string `json:"client_name"`
	CompanyName   string `json:"company_name,omitempty"`
	ClientEmail   string `json:"client_email,omitempty"`
	Telephone1    string `json:"telephone1,omitempty"`
	Telephone2    string `json:"telephone2,omitempty"`
	ClientAddress string `json:"client_address,omitempty"`
	ClientRegNo   string `json:"client_reg_no,omitempty"`
	ClientTaxID   string `json:"client_tax_id,omitempty"`

	Discount  float64        `json:"discount"`
	Tax       float64        `json:"tax"`
	Notes     string         `json:"notes,omitempty"`
	LineItems []wireLineItem `json:"line_items,omitempty"`
	Subtotal  float64        `json:"subtotal,omitempty"`
	Total     float64        `json:"total,omitempty"`

	Amount           float64 `json:"amount,omitempty"`
	PaymentMethod    string  `json:"payment_method,omitempty"`
	PaymentReference string  `json:"payment_reference,omitempty"`
	InvoiceID        *int64  `json:"invoice_id,omitempty"`

	ProjectID            *int64 `json:"project_id,omitempty"`
	MilestoneID          *int64 `json:"milestone_id,omitempty"`
	ConvertedToInvoiceID *int64 `json:"converted_to_invoice_id,omitempty"`
	CancelReason         string `json:"cancel_reason,omitempty"`
	VoidReason           string `json:"void_reason,omitempty"`

	IssueDate   *time.Time `json:"issue_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (w wireDocument) toDocument(kind billing.Kind) billing.Document {
	doc := billing.Document{
		ID:     w.ID,
		Kind:   kind,
		Status: billing.ParseStatus(w.Status),
		Customer: billing.CustomerRef{
			CustomerID:  w.CustomerID,
			ClientName:  w.ClientName,
			CompanyName: w.CompanyName,
			Email:       w.ClientEmail,
			Telephone1:  w.Telephone1,
			Telephone2:  w.Telephone2,
			Address:     w.ClientAddress,
			RegNo:       w.ClientRegNo,
			TaxID:       w.ClientTaxID,
		},
		Discount:             w.Discount,
		Tax:                  w.Tax,
		Notes:                w.Notes,
		Total:                w.Total,
		Amount:               w.Amount,
		PaymentMethod:        billing.PaymentMethod(w.PaymentMethod),
		PaymentReference:     w.PaymentReference,
		InvoiceID:            w.InvoiceID,
		ProjectID:            w.ProjectID,
		MilestoneID:          w.MilestoneID,
		ConvertedToInvoiceID: w.ConvertedToInvoiceID,
		CancelReason:         w.CancelReason,
		IssueDate:            w.IssueDate,
		DueDate:              w.DueDate,
		ValidUntil:           w.ValidUntil,
		CancelledAt:          w.CancelledAt,
	}
	switch kind {
	case billing.KindInvoice:
		doc.Number = w.InvoiceNumber
	case billing.KindQuote:
		doc.Number = w.QuoteNumber
	case billing.KindReceipt:
		doc.Number = w.ReceiptNumber
	}
	if doc.CancelReason == "" {
		doc.CancelReason = w.VoidReason
	}
	if len(w.LineItems) > 0 {
		doc.LineItems = make([]billing.LineItem, len(w.LineItems))
		for i, li := range w.LineItems {
			doc.LineItems[i] = billing.LineItem{
				Description: li.Description,
				Quantity:    li.Quantity,
				UnitPrice:   li.UnitPrice,
				Discount:    li.Discount,
			}
		}
	}
	return doc
}

// documentPayload builds the create/update body. Server owned fields
// (number, totals, dates set on transition) are never sent.
func documentPayload(doc billing.Document) wireDocument {
	c := doc.Customer
	w := wireDocument{
		Status:        string(doc.Status),
		CustomerID:    c.CustomerID,
		ClientName:    c.ClientName,
		CompanyName:   c.CompanyName,
		ClientEmail:   c.Email,
		Telephone1:    c.Telephone1,
		Telephone2:    c.Telephone2,
		ClientAddress: c.Address,
		ClientRegNo:   c.RegNo,
		ClientTaxID:   c.TaxID,
		Discount:      doc.Discount,
		Tax:           doc.Tax,
		Notes:         doc.Notes,
		ProjectID:     doc.ProjectID,
		MilestoneID:   doc.MilestoneID,
		DueDate:       doc.DueDate,
		ValidUntil:    doc.ValidUntil,
	}
	if doc.Kind == billing.KindReceipt {
		w.Amount = doc.Amount
		w.PaymentMethod = string(doc.PaymentMethod)
		w.PaymentReference = doc.PaymentReference
		w.InvoiceID = doc.InvoiceID
		return w
	}
	w.LineItems = make([]wireLineItem, len(doc.LineItems))
	for i, li := range doc.LineItems {
		w.LineItems[i] = wireLineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Discount:    li.Discount,
		}
	}
	return w
}
