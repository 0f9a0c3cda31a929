package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/api/apitest"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/cli"
	"github.com/odyssey-erp/billingdesk/internal/confirm"
	"github.com/odyssey-erp/billingdesk/internal/desk"
	"github.com/odyssey-erp/billingdesk/internal/session"
)

type harness struct {
	srv    *apitest.Server
	tokens *session.MemoryStore
	// answer is what confirmations return when --yes is not given.
	answer bool
	built  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return &harness{srv: srv, tokens: session.NewMemoryStore(srv.IssueToken())}
}

func (h *harness) factory(ctx context.Context, opts cli.Options) (*cli.Runtime, error) {
	h.built++
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := api.New(api.Params{BaseURL: h.srv.URL, Tokens: h.tokens, Logger: logger})
	if err != nil {
		return nil, err
	}
	var c confirm.Confirmer = confirm.Static(h.answer)
	if opts.Yes {
		c = confirm.Static(true)
	}
	return &cli.Runtime{
		Client: client,
		Desk:   desk.New(desk.Params{Backend: client, Confirmer: c, Logger: logger, SearchDelay: 20 * time.Millisecond}),
		Prompt: &confirm.Prompt{In: strings.NewReader("admin\nsecret\n"), Out: io.Discard},
		Logger: logger,
	}, nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return h.runIn(t, "", args...)
}

// runIn runs the command with stdin set to in.
func (h *harness) runIn(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd(h.factory)
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(in))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), cli.Explain(err)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const quoteYAML = `
customer:
  client_name: Sofia Michael
  telephone1: "97123456"
tax: 19
line_items:
  - description: Logo design
    quantity: 1
    unit_price: 400
  - description: Business cards
    quantity: 2
    unit_price: 50
    discount: 10
`

func TestTotalsOffline(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "totals", "-i", "Design:2:150", "-i", "Hosting:1:60:10", "--tax", "19", "-o", "json")
	require.NoError(t, err)
	var got billing.Totals
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.InDelta(t, 354, got.Subtotal, 1e-9)
	assert.InDelta(t, 421.26, got.Total, 1e-9)
	assert.Zero(t, h.built, "offline command must not build a runtime")

	out, err = h.run(t, "totals", "-i", "Design:2:150", "--discount", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "270.00")

	_, err = h.run(t, "totals", "-i", "Design:two:150")
	assert.ErrorContains(t, err, "not a number")
}

func TestQuoteWorkflow(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, "quote.yaml", quoteYAML)

	out, err := h.run(t, "quotes", "save", "-f", file, "-o", "yaml")
	require.NoError(t, err)
	var quote billing.Document
	require.NoError(t, yaml.Unmarshal([]byte(out), &quote))
	require.NotZero(t, quote.ID)
	assert.Equal(t, billing.StatusDraft, quote.Status)
	id := strconv.FormatInt(quote.ID, 10)

	out, err = h.run(t, "quotes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Sofia Michael")
	assert.Contains(t, out, "Draft")

	_, err = h.run(t, "quotes", "issue", id)
	assert.EqualError(t, err, "cancelled", "declined confirmation")

	out, err = h.run(t, "--yes", "quotes", "issue", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Issued")

	out, err = h.run(t, "-y", "quotes", "convert", id, "-o", "json")
	require.NoError(t, err)
	var invoice billing.Document
	require.NoError(t, json.Unmarshal([]byte(out), &invoice))
	assert.Equal(t, billing.KindInvoice, invoice.Kind)
	assert.Equal(t, "Sofia Michael", invoice.Customer.ClientName)
	assert.Len(t, invoice.LineItems, 2)

	out, err = h.run(t, "quotes", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Invoiced")

	_, err = h.run(t, "-y", "quotes", "delete", id)
	assert.ErrorIs(t, err, billing.ErrCannotDelete)
}

func TestInvoiceCancelAndEmail(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, "invoice.yaml", quoteYAML)

	out, err := h.run(t, "invoices", "save", "-f", file, "-o", "json")
	require.NoError(t, err)
	var inv billing.Document
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	id := strconv.FormatInt(inv.ID, 10)

	_, err = h.run(t, "-y", "invoices", "issue", id)
	require.NoError(t, err)

	_, err = h.run(t, "invoices", "email", id, "--to", "sofia@example.com")
	require.NoError(t, err)
	require.Len(t, h.srv.Emails(), 1)

	_, err = h.run(t, "-y", "invoices", "cancel", id, "--reason", "other")
	assert.ErrorIs(t, err, billing.ErrOtherReason)

	out, err = h.run(t, "invoices", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Next:     Cancelled")

	out, err = h.run(t, "-y", "invoices", "cancel", id, "--reason", "issued in error")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, out, "Reason:   Issued in error\n")
	assert.NotContains(t, out, "Next:")

	_, err = h.run(t, "invoices", "email", id, "--to", "sofia@example.com")
	assert.ErrorIs(t, err, billing.ErrCannotSend)
}

func TestSaveValidationError(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, "bad.yaml", "customer:\n  client_name: X\n  telephone1: \"123\"\nline_items:\n  - description: Work\n    quantity: 1\n    unit_price: 10\n")

	_, err := h.run(t, "invoices", "save", "-f", file)
	require.Error(t, err)
	var fields billing.FieldErrors
	assert.ErrorAs(t, err, &fields)
	assert.Contains(t, err.Error(), "customer.telephone1")
}

func TestCustomersCommands(t *testing.T) {
	h := newHarness(t)
	h.srv.AddCustomer(billing.Customer{Name: "Existing", Telephone1: "99001122", IsActive: true})

	out, err := h.run(t, "customers", "check-duplicates", "--phone", "99001122", "-o", "json")
	require.NoError(t, err)
	var res api.DuplicateResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Warnings, 1)

	_, err = h.run(t, "customers", "check-duplicates", "--phone", "12")
	assert.ErrorContains(t, err, "not a valid number")

	file := writeFile(t, "c.yaml", "name: New Person\ntelephone1: \"99001122\"\n")
	_, err = h.run(t, "customers", "save", "-f", file)
	assert.EqualError(t, err, "cancelled")

	out, err = h.run(t, "-y", "customers", "save", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "New Person")

	out, err = h.run(t, "customers", "list", "--search", "new")
	require.NoError(t, err)
	assert.Contains(t, out, "New Person")
	assert.NotContains(t, out, "Existing")
}

func TestLoginLogoutAndExpiredSession(t *testing.T) {
	h := newHarness(t)
	h.tokens = session.NewMemoryStore("")

	out, err := h.run(t, "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as admin")

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@example.com")

	h.srv.RevokeTokens()
	_, err = h.run(t, "invoices", "list")
	assert.ErrorContains(t, err, "billingdesk login")

	_, err = h.run(t, "logout")
	require.NoError(t, err)
}

func TestUnknownOutput(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "-o", "xml", "totals")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestCancelledDetailShowsOtherReason(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, "quote.yaml", quoteYAML)

	out, err := h.run(t, "quotes", "save", "-f", file, "-o", "json")
	require.NoError(t, err)
	var quote billing.Document
	require.NoError(t, json.Unmarshal([]byte(out), &quote))
	id := strconv.FormatInt(quote.ID, 10)

	out, err = h.run(t, "-y", "quotes", "issue", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Next:     Invoiced, Converted, Cancelled")

	_, err = h.run(t, "-y", "quotes", "cancel", id, "--reason", "Other", "--detail", "client went elsewhere")
	require.NoError(t, err)

	out, err = h.run(t, "quotes", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Reason:   Other (client went elsewhere)")
}

func TestCustomerLifecycleCommands(t *testing.T) {
	h := newHarness(t)
	id := h.srv.AddCustomer(billing.Customer{Name: "Sofia Michael", Telephone1: "97123456", IsActive: true})
	cid := strconv.FormatInt(id, 10)

	_, err := h.run(t, "customers", "disable", cid)
	assert.EqualError(t, err, "cancelled")

	out, err := h.run(t, "-y", "customers", "disable", cid)
	require.NoError(t, err)
	assert.Contains(t, out, "Inactive")

	out, err = h.run(t, "customers", "list", "--active")
	require.NoError(t, err)
	assert.Contains(t, out, "No customers found")

	out, err = h.run(t, "-y", "customers", "enable", cid)
	require.NoError(t, err)
	assert.Contains(t, out, "Active")

	file := writeFile(t, "invoice.yaml", quoteYAML)
	out, err = h.run(t, "invoices", "save", "-f", file, "-o", "json")
	require.NoError(t, err)
	var inv billing.Document
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	invID := strconv.FormatInt(inv.ID, 10)
	_, err = h.run(t, "-y", "invoices", "issue", invID)
	require.NoError(t, err)
	_, err = h.run(t, "invoices", "email", invID, "--to", "sofia@example.com")
	require.NoError(t, err)

	out, err = h.run(t, "customers", "emails", cid)
	require.NoError(t, err)
	assert.Contains(t, out, "sofia@example.com")
	assert.Contains(t, out, "Invoice "+inv.Number)

	out, err = h.run(t, "customers", "emails", "-o", "json")
	require.NoError(t, err)
	var logs []api.EmailLog
	require.NoError(t, json.Unmarshal([]byte(out), &logs))
	require.Len(t, logs, 1)

	out, err = h.run(t, "-y", "customers", "delete", cid)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted customer "+cid)

	_, err = h.run(t, "customers", "emails", cid)
	assert.EqualError(t, err, "Customer not found")
}

func TestCustomerLiveSearch(t *testing.T) {
	h := newHarness(t)
	h.srv.AddCustomer(billing.Customer{Name: "Andreas", Telephone1: "99000001", IsActive: true})
	h.srv.AddCustomer(billing.Customer{CompanyName: "Blue Ltd", Telephone1: "22000001", IsActive: true})

	out, err := h.runIn(t, "blu\nblue\n", "customers", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "> blue")
	assert.Contains(t, out, "Blue Ltd")
	assert.NotContains(t, out, "Andreas")

	out, err = h.runIn(t, "", "customers", "search")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestProjectCommands(t *testing.T) {
	h := newHarness(t)
	customerID := h.srv.AddCustomer(billing.Customer{Name: "Shop Owner", Telephone1: "99003344", IsActive: true})

	project := writeFile(t, "project.yaml", fmt.Sprintf(`
customer_id: %d
title: Shop front
total_budget: 5000
milestones:
  - label: Advance
    milestone_type: advance
    expected_amount: 2000
`, customerID))
	out, err := h.run(t, "projects", "save", "-f", project, "-o", "json")
	require.NoError(t, err)
	var saved []api.Project
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	require.Len(t, saved, 1)
	pid := strconv.FormatInt(saved[0].ID, 10)

	bad := writeFile(t, "bad.yaml", "title: Missing customer\nstatus: paused\n")
	_, err = h.run(t, "projects", "save", "-f", bad)
	assert.ErrorContains(t, err, "customer_id")

	milestone := writeFile(t, "m.yaml", "label: Final\nmilestone_type: final\nexpected_amount: 3000\n")
	out, err = h.run(t, "projects", "add-milestone", pid, "-f", milestone)
	require.NoError(t, err)
	assert.Contains(t, out, `Added milestone 2 "Final"`)

	out, err = h.run(t, "projects", "milestones", pid)
	require.NoError(t, err)
	assert.Contains(t, out, "Advance")
	assert.Contains(t, out, "Final")
	assert.Contains(t, out, "open")

	out, err = h.run(t, "projects", "list", "--search", "shop")
	require.NoError(t, err)
	assert.Contains(t, out, "Shop front")
	assert.Contains(t, out, "Shop Owner")

	invoice := writeFile(t, "invoice.yaml", quoteYAML+"project_id: "+pid+"\n")
	_, err = h.run(t, "invoices", "save", "-f", invoice)
	require.NoError(t, err)

	out, err = h.run(t, "projects", "show", pid)
	require.NoError(t, err)
	assert.Contains(t, out, "Shop front")
	assert.Contains(t, out, "Customer: Shop Owner")
	assert.Contains(t, out, "Issued:   0.00")
	assert.Contains(t, out, "Final")
	assert.Contains(t, out, "INV-")

	_, err = h.run(t, "-y", "projects", "delete", pid)
	assert.EqualError(t, err, "Cannot delete project. 1 invoice(s) are linked to it.")
}
