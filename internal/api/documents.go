package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

// ListDocuments returns every document of kind visible to the user.
func (c *Client) ListDocuments(ctx context.Context, kind billing.Kind) ([]billing.Document, error) {
	var rows []wireDocument
	if err := c.do(ctx, http.MethodGet, "/"+kind.Collection(), nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Collection(), err)
	}
	docs := make([]billing.Document, len(rows))
	for i, row := range rows {
		docs[i] = row.toDocument(kind)
	}
	return docs, nil
}

// GetDocument fetches a single document.
func (c *Client) GetDocument(ctx context.Context, kind billing.Kind, id int64) (billing.Document, error) {
	return c.documentCall(ctx, http.MethodGet, kind, id, "", nil)
}

// CreateDocument posts a new draft and returns the stored document with its
// server computed total.
func (c *Client) CreateDocument(ctx context.Context, doc billing.Document) (billing.Document, error) {
	var row wireDocument
	if err := c.do(ctx, http.MethodPost, "/"+doc.Kind.Collection(), nil, documentPayload(doc), &row); err != nil {
		return billing.Document{}, fmt.Errorf("create %s: %w", doc.Kind, err)
	}
	return row.toDocument(doc.Kind), nil
}

// UpdateDocument replaces the editable fields of a draft.
func (c *Client) UpdateDocument(ctx context.Context, doc billing.Document) (billing.Document, error) {
	return c.documentCall(ctx, http.MethodPut, doc.Kind, doc.ID, "", documentPayload(doc))
}

// DeleteDocument removes a draft.
func (c *Client) DeleteDocument(ctx context.Context, kind billing.Kind, id int64) error {
	if err := c.do(ctx, http.MethodDelete, documentPath(kind, id, ""), nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	return nil
}

// IssueDocument moves a draft to issued. The endpoint takes no body.
func (c *Client) IssueDocument(ctx context.Context, kind billing.Kind, id int64) (billing.Document, error) {
	return c.documentCall(ctx, http.MethodPost, kind, id, "issue", nil)
}

// CancelDocument cancels an issued document with the given reason.
func (c *Client) CancelDocument(ctx context.Context, kind billing.Kind, id int64, reason string) (billing.Document, error) {
	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}
	return c.documentCall(ctx, http.MethodPost, kind, id, "cancel", body)
}

// ConvertQuote turns an issued quote into a draft invoice and returns the
// new invoice.
func (c *Client) ConvertQuote(ctx context.Context, quoteID int64) (billing.Document, error) {
	var row wireDocument
	path := documentPath(billing.KindQuote, quoteID, "convert-to-invoice")
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &row); err != nil {
		return billing.Document{}, fmt.Errorf("convert quote %d: %w", quoteID, err)
	}
	return row.toDocument(billing.KindInvoice), nil
}

// PDF is the result of a PDF generation request.
type PDF struct {
	Message string `json:"message" yaml:"message"`
	URL     string `json:"pdf_url" yaml:"pdf_url"`
}

// GeneratePDF asks the backend to render the document.
func (c *Client) GeneratePDF(ctx context.Context, kind billing.Kind, id int64) (PDF, error) {
	var out PDF
	if err := c.do(ctx, http.MethodPost, documentPath(kind, id, "generate-pdf"), nil, nil, &out); err != nil {
		return PDF{}, fmt.Errorf("generate pdf for %s %d: %w", kind, id, err)
	}
	return out, nil
}

// Email is the payload of a send-email request.
type Email struct {
	Recipient string `json:"recipient_email" validate:"required,billing_email"`
	Subject   string `json:"subject" validate:"required"`
	Message   string `json:"message,omitempty"`
}

// SendEmail mails the document PDF to a recipient.
func (c *Client) SendEmail(ctx context.Context, kind billing.Kind, id int64, email Email) error {
	if err := c.do(ctx, http.MethodPost, documentPath(kind, id, "send-email"), nil, email, nil); err != nil {
		return fmt.Errorf("email %s %d: %w", kind, id, err)
	}
	return nil
}

func (c *Client) documentCall(ctx context.Context, method string, kind billing.Kind, id int64, action string, body any) (billing.Document, error) {
	var row wireDocument
	if err := c.do(ctx, method, documentPath(kind, id, action), nil, body, &row); err != nil {
		verb := action
		if verb == "" {
			verb = map[string]string{http.MethodGet: "get", http.MethodPut: "update"}[method]
		}
		return billing.Document{}, fmt.Errorf("%s %s %d: %w", verb, kind, id, err)
	}
	return row.toDocument(kind), nil
}

func documentPath(kind billing.Kind, id int64, action string) string {
	p := "/" + kind.Collection() + "/" + strconv.FormatInt(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}
