package billing

import (
	"strings"
	"time"
)

// ============================================================================
// DOCUMENT KINDS
// ============================================================================

// Kind identifies the document family a record belongs to.
type Kind string

const (
	KindQuote   Kind = "quote"
	KindInvoice Kind = "invoice"
	KindReceipt Kind = "receipt"
)

// Kinds lists every supported document kind in display order.
var Kinds = []Kind{KindQuote, KindInvoice, KindReceipt}

// ParseKind accepts singular or plural forms ("quotes", "invoice").
func ParseKind(s string) (Kind, bool) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "quote":
		return KindQuote, true
	case "invoice":
		return KindInvoice, true
	case "receipt":
		return KindReceipt, true
	}
	return "", false
}

// Collection returns the REST collection segment for the kind.
func (k Kind) Collection() string {
	return string(k) + "s"
}

// Label returns a human readable name.
func (k Kind) Label() string {
	switch k {
	case KindQuote:
		return "Quote"
	case KindInvoice:
		return "Invoice"
	case KindReceipt:
		return "Receipt"
	}
	return "Document"
}

// ============================================================================
// PAYMENT METHOD
// ============================================================================

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentOther        PaymentMethod = "other"
)

// PaymentMethods lists the accepted receipt payment methods.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentBankTransfer, PaymentCard, PaymentCheque, PaymentOther}

// Valid reports whether m is one of PaymentMethods.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Label renders the payment method for tables.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Cash"
	case PaymentBankTransfer:
		return "Bank Transfer"
	case PaymentCard:
		return "Card"
	case PaymentCheque:
		return "Cheque"
	case PaymentOther:
		return "Other"
	}
	return string(m)
}

// ============================================================================
// CUSTOMER
// ============================================================================

// Customer mirrors the backend customer record.
type Customer struct {
	ID          int64     `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name" validate:"required_without=CompanyName,max=200"`
	CompanyName string    `json:"company_name,omitempty" yaml:"company_name,omitempty" validate:"max=200"`
	Email       string    `json:"email,omitempty" yaml:"email,omitempty" validate:"billing_email"`
	Telephone1  string    `json:"telephone1" yaml:"telephone1" validate:"required,billing_phone"`
	Telephone2  string    `json:"telephone2,omitempty" yaml:"telephone2,omitempty" validate:"billing_phone"`
	Address     string    `json:"address,omitempty" yaml:"address,omitempty"`
	RegNo       string    `json:"client_reg_no,omitempty" yaml:"client_reg_no,omitempty"`
	TaxID       string    `json:"client_tax_id,omitempty" yaml:"client_tax_id,omitempty"`
	IsActive    bool      `json:"is_active" yaml:"is_active"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// DisplayName prefers the person name and falls back to the company.
func (c Customer) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.CompanyName
}

// ActiveCustomers filters out customers that cannot be selected on new documents.
func ActiveCustomers(all []Customer) []Customer {
	out := make([]Customer, 0, len(all))
	for _, c := range all {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// CustomerRef is the customer block copied onto a document.
type CustomerRef struct {
	CustomerID  *int64 `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	ClientName  string `json:"client_name" yaml:"client_name"`
	CompanyName string `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	Email       string `json:"client_email,omitempty" yaml:"client_email,omitempty" validate:"billing_email"`
	Telephone1  string `json:"telephone1,omitempty" yaml:"telephone1,omitempty" validate:"billing_phone"`
	Telephone2  string `json:"telephone2,omitempty" yaml:"telephone2,omitempty" validate:"billing_phone"`
	Address     string `json:"client_address,omitempty" yaml:"client_address,omitempty"`
	RegNo       string `json:"client_reg_no,omitempty" yaml:"client_reg_no,omitempty"`
	TaxID       string `json:"client_tax_id,omitempty" yaml:"client_tax_id,omitempty"`
}

// RefFor builds the document customer block from a customer record.
func RefFor(c Customer) CustomerRef {
	id := c.ID
	return CustomerRef{
		CustomerID:  &id,
		ClientName:  c.Name,
		CompanyName: c.CompanyName,
		Email:       c.Email,
		Telephone1:  c.Telephone1,
		Telephone2:  c.Telephone2,
		Address:     c.Address,
		RegNo:       c.RegNo,
		TaxID:       c.TaxID,
	}
}

// ============================================================================
// DOCUMENT
// ============================================================================

// LineItem is one billable row of a quote or invoice.
type LineItem struct {
	Description string  `json:"description" yaml:"description" validate:"required"`
	Quantity    float64 `json:"quantity" yaml:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" yaml:"unit_price" validate:"gte=0"`
	Discount    float64 `json:"discount" yaml:"discount" validate:"gte=0,lte=100"`
}

// Document is a quote, invoice or receipt moving through its lifecycle.
type Document struct {
	ID                   int64         `json:"id,omitempty" yaml:"id,omitempty"`
	Number               string        `json:"number,omitempty" yaml:"number,omitempty"`
	Kind                 Kind          `json:"kind" yaml:"kind"`
	Status               Status        `json:"status" yaml:"status"`
	Customer             CustomerRef   `json:"customer" yaml:"customer"`
	Discount             float64       `json:"discount" yaml:"discount" validate:"gte=0,lte=100"`
	Tax                  float64       `json:"tax" yaml:"tax" validate:"gte=0,lte=100"`
	Notes                string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	LineItems            []LineItem    `json:"line_items" yaml:"line_items" validate:"dive"`
	Total                float64       `json:"total" yaml:"total"`
	Amount               float64       `json:"amount,omitempty" yaml:"amount,omitempty" validate:"gte=0"`
	PaymentMethod        PaymentMethod `json:"payment_method,omitempty" yaml:"payment_method,omitempty" validate:"omitempty,billing_payment"`
	PaymentReference     string        `json:"payment_reference,omitempty" yaml:"payment_reference,omitempty"`
	InvoiceID            *int64        `json:"invoice_id,omitempty" yaml:"invoice_id,omitempty"`
	ProjectID            *int64        `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	MilestoneID          *int64        `json:"milestone_id,omitempty" yaml:"milestone_id,omitempty"`
	ConvertedToInvoiceID *int64        `json:"converted_to_invoice_id,omitempty" yaml:"converted_to_invoice_id,omitempty"`
	CancelReason         string        `json:"cancel_reason,omitempty" yaml:"cancel_reason,omitempty"`
	IssueDate            *time.Time    `json:"issue_date,omitempty" yaml:"issue_date,omitempty"`
	DueDate              *time.Time    `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	ValidUntil           *time.Time    `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty" yaml:"cancelled_at,omitempty"`
}

// NewDraft starts a document in draft state.
func NewDraft(kind Kind, customer CustomerRef) Document {
	return Document{Kind: kind, Status: StatusDraft, Customer: customer}
}

// Clone returns a deep copy so callers can derive new states freely.
func (d Document) Clone() Document {
	out := d
	if d.LineItems != nil {
		out.LineItems = append([]LineItem(nil), d.LineItems...)
	}
	out.Customer.CustomerID = clonePtr(d.Customer.CustomerID)
	out.InvoiceID = clonePtr(d.InvoiceID)
	out.ProjectID = clonePtr(d.ProjectID)
	out.MilestoneID = clonePtr(d.MilestoneID)
	out.ConvertedToInvoiceID = clonePtr(d.ConvertedToInvoiceID)
	out.IssueDate = clonePtr(d.IssueDate)
	out.DueDate = clonePtr(d.DueDate)
	out.ValidUntil = clonePtr(d.ValidUntil)
	out.CancelledAt = clonePtr(d.CancelledAt)
	return out
}

// Totals recomputes the document totals from its line items.
func (d Document) Totals() Totals {
	return ComputeTotals(d.LineItems, d.Discount, d.Tax)
}

// Payable returns the figure shown in list views: the receipt amount or
// the server total, recomputed locally while a draft carries its lines.
func (d Document) Payable() float64 {
	if d.Kind == KindReceipt {
		return d.Amount
	}
	if d.Status == StatusDraft && len(d.LineItems) > 0 {
		return d.Totals().Total
	}
	return d.Total
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
