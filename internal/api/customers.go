package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

// ListCustomers returns customers, optionally filtered by a search term
// matched against names, email and phones.
func (c *Client) ListCustomers(ctx context.Context, search string) ([]billing.Customer, error) {
	var q url.Values
	if s := strings.TrimSpace(search); s != "" {
		q = url.Values{"search": {s}}
	}
	var out []billing.Customer
	if err := c.do(ctx, http.MethodGet, "/customers", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

// SearchCustomers collapses identical in-flight searches into one request.
// The shared request is detached from any single caller, so one caller
// giving up does not fail the others; each caller still returns as soon as
// its own ctx is done.
func (c *Client) SearchCustomers(ctx context.Context, term string) ([]billing.Customer, error) {
	key := strings.ToLower(strings.TrimSpace(term))
	ch := c.searches.DoChan(key, func() (any, error) {
		return c.ListCustomers(context.WithoutCancel(ctx), key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]billing.Customer), nil
	}
}

// GetCustomer fetches one customer.
func (c *Client) GetCustomer(ctx context.Context, id int64) (billing.Customer, error) {
	var out billing.Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return billing.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return out, nil
}

// SaveCustomer creates the customer when it has no ID, otherwise updates it.
func (c *Client) SaveCustomer(ctx context.Context, cust billing.Customer) (billing.Customer, error) {
	method, path := http.MethodPost, "/customers"
	if cust.ID != 0 {
		method, path = http.MethodPut, "/customers/"+strconv.FormatInt(cust.ID, 10)
	}
	var out billing.Customer
	if err := c.do(ctx, method, path, nil, cust, &out); err != nil {
		return billing.Customer{}, fmt.Errorf("save customer: %w", err)
	}
	return out, nil
}

// ToggleCustomerStatus flips the customer's active flag and returns the
// updated record.
func (c *Client) ToggleCustomerStatus(ctx context.Context, id int64) (billing.Customer, error) {
	var out billing.Customer
	if err := c.do(ctx, http.MethodPatch, "/customers/"+strconv.FormatInt(id, 10)+"/toggle-status", nil, nil, &out); err != nil {
		return billing.Customer{}, fmt.Errorf("toggle customer %d: %w", id, err)
	}
	return out, nil
}

// DeleteCustomer removes a customer. Only administrators may do so.
func (c *Client) DeleteCustomer(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/customers/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	return nil
}

// ============================================================================
// EMAIL HISTORY
// ============================================================================

// EmailLog is one document email sent by the backend. Entries are linked to
// a customer through the document's telephone number.
type EmailLog struct {
	ID             int64        `json:"id" yaml:"id"`
	Kind           billing.Kind `json:"email_type" yaml:"email_type"`
	DocumentID     int64        `json:"document_id" yaml:"document_id"`
	DocumentNumber string       `json:"document_number" yaml:"document_number"`
	Recipient      string       `json:"recipient_email" yaml:"recipient_email"`
	Subject        string       `json:"subject" yaml:"subject"`
	Message        string       `json:"message,omitempty" yaml:"message,omitempty"`
	PDFURL         string       `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	SentAt         time.Time    `json:"sent_at" yaml:"sent_at"`
	CustomerID     *int64       `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	Telephone1     string       `json:"telephone1,omitempty" yaml:"telephone1,omitempty"`
	ClientName     string       `json:"client_name,omitempty" yaml:"client_name,omitempty"`
	CompanyName    string       `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	TotalAmount    float64      `json:"total_amount" yaml:"total_amount"`
}

// EmailHistory lists the emails sent for one customer's documents.
func (c *Client) EmailHistory(ctx context.Context, customerID int64) ([]EmailLog, error) {
	var out []EmailLog
	if err := c.do(ctx, http.MethodGet, "/customers/"+strconv.FormatInt(customerID, 10)+"/email-history", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("customer %d email history: %w", customerID, err)
	}
	return out, nil
}

// AllEmailHistory lists every sent email, newest first.
func (c *Client) AllEmailHistory(ctx context.Context) ([]EmailLog, error) {
	var out []EmailLog
	if err := c.do(ctx, http.MethodGet, "/customers/email-history/all", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("email history: %w", err)
	}
	return out, nil
}

// ============================================================================
// DUPLICATE CHECK
// ============================================================================

// DuplicateQuery names the fields to look up. Empty fields are not sent.
type DuplicateQuery struct {
	Phone     string
	VatTIC    string
	RegNo     string
	Email     string
	ExcludeID int64
}

// Empty reports whether there is nothing to check.
func (q DuplicateQuery) Empty() bool {
	return strings.TrimSpace(q.Phone) == "" && strings.TrimSpace(q.VatTIC) == "" &&
		strings.TrimSpace(q.RegNo) == "" && strings.TrimSpace(q.Email) == ""
}

func (q DuplicateQuery) values() url.Values {
	v := url.Values{}
	add := func(k, s string) {
		if s = strings.TrimSpace(s); s != "" {
			v.Set(k, s)
		}
	}
	add("phone", q.Phone)
	add("vat_tic", q.VatTIC)
	add("reg_no", q.RegNo)
	add("email", q.Email)
	if q.ExcludeID > 0 {
		v.Set("exclude_id", strconv.FormatInt(q.ExcludeID, 10))
	}
	return v
}

// DuplicateIssue flags one field that matches another customer.
type DuplicateIssue struct {
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}

// DuplicateResult holds the outcome of a duplicate check. Warnings may be
// overridden by the user; errors block the save.
type DuplicateResult struct {
	Warnings []DuplicateIssue `json:"warnings" yaml:"warnings"`
	Errors   []DuplicateIssue `json:"errors" yaml:"errors"`
}

// Clean reports whether neither warnings nor errors were found.
func (r DuplicateResult) Clean() bool {
	return len(r.Warnings) == 0 && len(r.Errors) == 0
}

// CheckDuplicates never fails: any transport, status or decode problem
// yields an empty result so the save can proceed.
func (c *Client) CheckDuplicates(ctx context.Context, q DuplicateQuery) DuplicateResult {
	empty := DuplicateResult{Warnings: []DuplicateIssue{}, Errors: []DuplicateIssue{}}
	if q.Empty() {
		return empty
	}
	ctx, cancel := context.WithTimeout(ctx, c.dupTimeout)
	defer cancel()

	var out DuplicateResult
	if err := c.do(ctx, http.MethodGet, "/customers/check-duplicates", q.values(), nil, &out); err != nil {
		c.logger.Warn("duplicate check unavailable, continuing without it", slog.Any("error", err))
		return empty
	}
	if out.Warnings == nil {
		out.Warnings = []DuplicateIssue{}
	}
	if out.Errors == nil {
		out.Errors = []DuplicateIssue{}
	}
	return out
}
