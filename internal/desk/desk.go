// Package desk drives the document and customer workflows: local checks
// first, then confirmation, then the API call, then a new store snapshot.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/confirm"
	"github.com/odyssey-erp/billingdesk/internal/store"
)

// Workflow errors.
var (
	ErrDeclined          = errors.New("action declined")
	ErrDuplicateBlocked  = errors.New("customer duplicates another record")
	ErrDuplicateDeclined = errors.New("save cancelled after duplicate warning")
	ErrCustomerInactive  = errors.New("customer is inactive or no longer exists")
)

// Backend is the subset of the REST client used by the desk.
type Backend interface {
	ListDocuments(ctx context.Context, kind billing.Kind) ([]billing.Document, error)
	GetDocument(ctx context.Context, kind billing.Kind, id int64) (billing.Document, error)
	CreateDocument(ctx context.Context, doc billing.Document) (billing.Document, error)
	UpdateDocument(ctx context.Context, doc billing.Document) (billing.Document, error)
	DeleteDocument(ctx context.Context, kind billing.Kind, id int64) error
	IssueDocument(ctx context.Context, kind billing.Kind, id int64) (billing.Document, error)
	CancelDocument(ctx context.Context, kind billing.Kind, id int64, reason string) (billing.Document, error)
	ConvertQuote(ctx context.Context, quoteID int64) (billing.Document, error)
	GeneratePDF(ctx context.Context, kind billing.Kind, id int64) (api.PDF, error)
	SendEmail(ctx context.Context, kind billing.Kind, id int64, email api.Email) error

	ListCustomers(ctx context.Context, search string) ([]billing.Customer, error)
	SearchCustomers(ctx context.Context, term string) ([]billing.Customer, error)
	GetCustomer(ctx context.Context, id int64) (billing.Customer, error)
	SaveCustomer(ctx context.Context, c billing.Customer) (billing.Customer, error)
	ToggleCustomerStatus(ctx context.Context, id int64) (billing.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	CheckDuplicates(ctx context.Context, q api.DuplicateQuery) api.DuplicateResult
	EmailHistory(ctx context.Context, customerID int64) ([]api.EmailLog, error)
	AllEmailHistory(ctx context.Context) ([]api.EmailLog, error)
	LoadFormOptions(ctx context.Context, projectID int64) (api.FormOptions, error)

	ListProjects(ctx context.Context, f api.ProjectFilter) ([]api.Project, error)
	GetProject(ctx context.Context, id int64) (api.Project, error)
	SaveProject(ctx context.Context, p api.Project) (api.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ProjectSummary(ctx context.Context, id int64) (api.ProjectSummary, error)
	ProjectInvoices(ctx context.Context, projectID int64) ([]api.ProjectInvoice, error)
	Milestones(ctx context.Context, projectID int64) ([]billing.Milestone, error)
	AddMilestone(ctx context.Context, projectID int64, m billing.Milestone) (billing.Milestone, error)
}

var _ Backend = (*api.Client)(nil)

// Params groups the desk dependencies.
type Params struct {
	Backend   Backend
	Confirmer confirm.Confirmer
	Validator *billing.Validator
	Money     *billing.MoneyFormatter
	Logger    *slog.Logger
	// SearchDelay is the debounce applied to customer search.
	SearchDelay time.Duration
}

// Desk coordinates workflows and owns the current store snapshot.
type Desk struct {
	backend     Backend
	confirmer   confirm.Confirmer
	validator   *billing.Validator
	money       *billing.MoneyFormatter
	logger      *slog.Logger
	searchDelay time.Duration

	mu    sync.Mutex
	state *store.Store
}

// New constructs a Desk with an empty store.
func New(p Params) *Desk {
	d := &Desk{
		backend:     p.Backend,
		confirmer:   p.Confirmer,
		validator:   p.Validator,
		money:       p.Money,
		logger:      p.Logger,
		searchDelay: p.SearchDelay,
		state:       store.New(),
	}
	if d.confirmer == nil {
		d.confirmer = confirm.Static(false)
	}
	if d.validator == nil {
		d.validator = billing.NewValidator()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// State returns the current snapshot.
func (d *Desk) State() *store.Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Desk) apply(fn func(*store.Store) *store.Store) *store.Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = fn(d.state)
	return d.state
}

func (d *Desk) ask(ctx context.Context, req confirm.Request) error {
	ok, err := d.confirmer.Confirm(ctx, req)
	if err != nil {
		return fmt.Errorf("confirm %q: %w", req.Title, err)
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

// document returns the stored document, fetching it when not loaded yet.
func (d *Desk) document(ctx context.Context, kind billing.Kind, id int64) (billing.Document, error) {
	if doc, ok := d.State().Document(kind, id); ok {
		return doc, nil
	}
	doc, err := d.backend.GetDocument(ctx, kind, id)
	if err != nil {
		return billing.Document{}, err
	}
	d.apply(func(s *store.Store) *store.Store { return s.Put(doc) })
	return doc, nil
}

// ============================================================================
// DOCUMENTS
// ============================================================================

// Refresh reloads every document of kind into the store.
func (d *Desk) Refresh(ctx context.Context, kind billing.Kind) ([]billing.Document, error) {
	docs, err := d.backend.ListDocuments(ctx, kind)
	if err != nil {
		return nil, err
	}
	return d.apply(func(s *store.Store) *store.Store { return s.Replace(kind, docs) }).Documents(kind), nil
}

// Open fetches a fresh copy of one document.
func (d *Desk) Open(ctx context.Context, kind billing.Kind, id int64) (billing.Document, error) {
	doc, err := d.backend.GetDocument(ctx, kind, id)
	if err != nil {
		return billing.Document{}, err
	}
	d.apply(func(s *store.Store) *store.Store { return s.Put(doc) })
	return doc, nil
}

// SaveDraft validates locally and then creates or updates the draft. A
// milestone mismatch asks for confirmation before saving.
func (d *Desk) SaveDraft(ctx context.Context, doc billing.Document) (billing.Document, error) {
	if doc.ID != 0 {
		current, err := d.document(ctx, doc.Kind, doc.ID)
		if err != nil {
			return doc, err
		}
		if err := billing.CheckEditable(current); err != nil {
			return doc, err
		}
		doc.Status = current.Status
	}
	if doc.Status == "" {
		doc.Status = billing.StatusDraft
	}
	if err := billing.CheckEditable(doc); err != nil {
		return doc, err
	}
	opts, err := d.formOptions(ctx, &doc)
	if err != nil {
		return doc, err
	}
	if err := d.validator.Document(doc); err != nil {
		return doc, err
	}
	if err := d.checkMilestone(ctx, doc, opts.Milestones); err != nil {
		return doc, err
	}

	var saved billing.Document
	if doc.ID == 0 {
		saved, err = d.backend.CreateDocument(ctx, doc)
	} else {
		saved, err = d.backend.UpdateDocument(ctx, doc)
	}
	if err != nil {
		return doc, err
	}
	if local := doc.Totals().Total; !billing.WithinTolerance(local, saved.Total) {
		d.logger.Warn("server total differs from local total",
			slog.String("kind", string(saved.Kind)),
			slog.Int64("id", saved.ID),
			slog.Float64("local", local),
			slog.Float64("server", saved.Total),
		)
	}
	d.apply(func(s *store.Store) *store.Store { return s.Put(saved) })
	return saved, nil
}

// formOptions loads what the draft refers to: the customer behind
// customer_id and, for a milestone invoice, the project milestones. Blank
// customer fields are filled from the customer record. Only a customer that
// cannot be resolved fails the save; a milestone lookup failure just skips
// the amount check.
func (d *Desk) formOptions(ctx context.Context, doc *billing.Document) (api.FormOptions, error) {
	var projectID int64
	if doc.Kind == billing.KindInvoice && doc.ProjectID != nil && doc.MilestoneID != nil {
		projectID = *doc.ProjectID
	}
	customerID := doc.Customer.CustomerID
	if customerID == nil && projectID == 0 {
		return api.FormOptions{}, nil
	}
	opts, err := d.backend.LoadFormOptions(ctx, projectID)
	if err != nil {
		if customerID != nil {
			return opts, fmt.Errorf("resolve customer %d: %w", *customerID, err)
		}
		d.logger.Warn("milestone lookup failed, skipping amount check", slog.Any("error", err))
		return api.FormOptions{}, nil
	}
	if customerID == nil {
		return opts, nil
	}
	for _, c := range opts.Customers {
		if c.ID == *customerID {
			fillCustomer(&doc.Customer, billing.RefFor(c))
			return opts, nil
		}
	}
	return opts, fmt.Errorf("%w: customer %d", ErrCustomerInactive, *customerID)
}

func fillCustomer(dst *billing.CustomerRef, src billing.CustomerRef) {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&dst.ClientName, src.ClientName},
		{&dst.CompanyName, src.CompanyName},
		{&dst.Email, src.Email},
		{&dst.Telephone1, src.Telephone1},
		{&dst.Telephone2, src.Telephone2},
		{&dst.Address, src.Address},
		{&dst.RegNo, src.RegNo},
		{&dst.TaxID, src.TaxID},
	} {
		if strings.TrimSpace(*f.dst) == "" {
			*f.dst = f.src
		}
	}
}

func (d *Desk) checkMilestone(ctx context.Context, doc billing.Document, milestones []billing.Milestone) error {
	if doc.MilestoneID == nil {
		return nil
	}
	for _, m := range milestones {
		if m.ID != *doc.MilestoneID {
			continue
		}
		msg, mismatch := billing.MilestoneWarning(m, doc.Totals().Total, d.money)
		if !mismatch {
			return nil
		}
		return d.ask(ctx, confirm.Request{
			Title:   "Milestone Amount Mismatch",
			Message: msg,
			Accept:  "Save Anyway",
			Decline: "Cancel",
		})
	}
	return nil
}

// Issue confirms and then issues a draft.
func (d *Desk) Issue(ctx context.Context, kind billing.Kind, id int64) (billing.Document, error) {
	doc, err := d.document(ctx, kind, id)
	if err != nil {
		return billing.Document{}, err
	}
	if _, err := billing.Issue(doc); err != nil {
		return doc, err
	}
	if err := d.ask(ctx, confirm.Request{
		Title:   "Issue " + kind.Label(),
		Message: fmt.Sprintf("Issue %s? It can no longer be edited afterwards.", label(doc)),
		Accept:  "Issue",
	}); err != nil {
		return doc, err
	}
	issued, err := d.backend.IssueDocument(ctx, kind, id)
	if err != nil {
		return doc, err
	}
	d.apply(func(s *store.Store) *store.Store { return s.Put(issued) })
	return issued, nil
}

// Cancel composes the reason, confirms and cancels an issued document.
func (d *Desk) Cancel(ctx context.Context, kind billing.Kind, id int64, reason billing.CancelReason, detail string) (billing.Document, error) {
	text, err := billing.ComposeCancelReason(reason, detail)
	if err != nil {
		return billing.Document{}, err
	}
	doc, err := d.document(ctx, kind, id)
	if err != nil {
		return billing.Document{}, err
	}
	if _, err := billing.Cancel(doc, text); err != nil {
		return doc, err
	}
	if err := d.ask(ctx, confirm.Request{
		Title:   "Cancel " + kind.Label(),
		Message: fmt.Sprintf("Cancel %s (%s)? This cannot be undone.", label(doc), text),
		Accept:  "Cancel " + kind.Label(),
		Decline: "Keep",
	}); err != nil {
		return doc, err
	}
	cancelled, err := d.backend.CancelDocument(ctx, kind, id, text)
	if err != nil {
		return doc, err
	}
	d.apply(func(s *store.Store) *store.Store { return s.Put(cancelled) })
	return cancelled, nil
}

// Delete confirms and removes a draft.
func (d *Desk) Delete(ctx context.Context, kind billing.Kind, id int64) error {
	doc, err := d.document(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := billing.CheckDelete(doc); err != nil {
		return err
	}
	if err := d.ask(ctx, confirm.Request{
		Title:   "Delete " + kind.Label(),
		Message: fmt.Sprintf("Delete %s permanently?", label(doc)),
		Accept:  "Delete",
	}); err != nil {
		return err
	}
	if err := d.backend.DeleteDocument(ctx, kind, id); err != nil {
		return err
	}
	d.apply(func(s *store.Store) *store.Store { return s.Remove(kind, id) })
	return nil
}

// ConvertQuote confirms and converts an issued quote, returning the new
// draft invoice. The store receives both the invoiced quote and the invoice.
func (d *Desk) ConvertQuote(ctx context.Context, quoteID int64) (billing.Document, error) {
	quote, err := d.document(ctx, billing.KindQuote, quoteID)
	if err != nil {
		return billing.Document{}, err
	}
	converted, _, err := billing.ConvertToInvoice(quote)
	if err != nil {
		return billing.Document{}, err
	}
	if err := d.ask(ctx, confirm.Request{
		Title:   "Convert to Invoice",
		Message: fmt.Sprintf("Create a draft invoice from %s?", label(quote)),
		Accept:  "Convert",
	}); err != nil {
		return billing.Document{}, err
	}
	invoice, err := d.backend.ConvertQuote(ctx, quoteID)
	if err != nil {
		return billing.Document{}, err
	}
	converted.ConvertedToInvoiceID = &invoice.ID
	d.apply(func(s *store.Store) *store.Store { return s.Put(converted, invoice) })
	return invoice, nil
}

// GeneratePDF renders the document on the server.
func (d *Desk) GeneratePDF(ctx context.Context, kind billing.Kind, id int64) (api.PDF, error) {
	return d.backend.GeneratePDF(ctx, kind, id)
}

// SendEmail validates the recipient and mails the document.
func (d *Desk) SendEmail(ctx context.Context, kind billing.Kind, id int64, email api.Email) error {
	doc, err := d.document(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := billing.CheckSendable(doc); err != nil {
		return err
	}
	if strings.TrimSpace(email.Subject) == "" {
		email.Subject = fmt.Sprintf("%s %s", kind.Label(), doc.Number)
	}
	if err := d.validator.Struct(email); err != nil {
		return err
	}
	return d.backend.SendEmail(ctx, kind, id, email)
}

func label(doc billing.Document) string {
	if doc.Number != "" {
		return strings.ToLower(doc.Kind.Label()) + " " + doc.Number
	}
	return fmt.Sprintf("%s #%d", strings.ToLower(doc.Kind.Label()), doc.ID)
}
