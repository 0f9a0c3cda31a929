package desk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/confirm"
	"github.com/odyssey-erp/billingdesk/internal/search"
	"github.com/odyssey-erp/billingdesk/internal/store"
)

// ============================================================================
// CUSTOMERS
// ============================================================================

// LoadCustomers reloads the customer list into the store.
func (d *Desk) LoadCustomers(ctx context.Context) ([]billing.Customer, error) {
	all, err := d.backend.ListCustomers(ctx, "")
	if err != nil {
		return nil, err
	}
	return d.apply(func(s *store.Store) *store.Store { return s.ReplaceCustomers(all) }).Customers(), nil
}

// CustomerSearch returns a debounced search over the backend.
func (d *Desk) CustomerSearch() *search.Live[billing.Customer] {
	return search.NewLive(d.searchDelay, d.backend.SearchCustomers)
}

// DuplicateError carries the blocking duplicate findings.
type DuplicateError struct {
	Issues []api.DuplicateIssue
}

func (e *DuplicateError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.Message
	}
	return ErrDuplicateBlocked.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicateBlocked }

// SaveCustomer validates the form, runs the duplicate check and saves.
// Duplicate errors block; warnings ask the user whether to save anyway.
// An unreachable duplicate service never blocks the save.
func (d *Desk) SaveCustomer(ctx context.Context, c billing.Customer) (billing.Customer, error) {
	if err := d.validator.Customer(c); err != nil {
		return c, err
	}
	dup := d.backend.CheckDuplicates(ctx, api.DuplicateQuery{
		Phone:     c.Telephone1,
		VatTIC:    c.TaxID,
		RegNo:     c.RegNo,
		Email:     c.Email,
		ExcludeID: c.ID,
	})
	if len(dup.Errors) > 0 {
		return c, &DuplicateError{Issues: dup.Errors}
	}
	if len(dup.Warnings) > 0 {
		lines := make([]string, len(dup.Warnings))
		for i, w := range dup.Warnings {
			lines[i] = "  - " + w.Message
		}
		err := d.ask(ctx, confirm.Request{
			Title:   "Possible Duplicate Found",
			Message: "The following potential duplicates were detected:\n" + strings.Join(lines, "\n"),
			Accept:  "Save Anyway",
			Decline: "Cancel",
		})
		if errors.Is(err, ErrDeclined) {
			return c, ErrDuplicateDeclined
		}
		if err != nil {
			return c, err
		}
	}
	saved, err := d.backend.SaveCustomer(ctx, c)
	if err != nil {
		return c, err
	}
	d.apply(func(s *store.Store) *store.Store { return s.PutCustomers(saved) })
	return saved, nil
}

// customer returns the stored customer, fetching it when not loaded yet.
func (d *Desk) customer(ctx context.Context, id int64) (billing.Customer, error) {
	if c, ok := d.State().Customer(id); ok {
		return c, nil
	}
	c, err := d.backend.GetCustomer(ctx, id)
	if err != nil {
		return billing.Customer{}, err
	}
	d.apply(func(s *store.Store) *store.Store { return s.PutCustomers(c) })
	return c, nil
}

// SetCustomerActive confirms and then enables or disables a customer.
// Inactive customers cannot be picked on new documents. A customer already
// in the requested state is returned without a call.
func (d *Desk) SetCustomerActive(ctx context.Context, id int64, active bool) (billing.Customer, error) {
	c, err := d.customer(ctx, id)
	if err != nil {
		return billing.Customer{}, err
	}
	if c.IsActive == active {
		return c, nil
	}
	verb := "Disable"
	if active {
		verb = "Enable"
	}
	if err := d.ask(ctx, confirm.Request{
		Title:   verb + " Customer",
		Message: fmt.Sprintf("Are you sure you want to %s %s?", strings.ToLower(verb), c.DisplayName()),
		Accept:  verb,
	}); err != nil {
		return c, err
	}
	updated, err := d.backend.ToggleCustomerStatus(ctx, id)
	if err != nil {
		return c, err
	}
	d.apply(func(s *store.Store) *store.Store { return s.PutCustomers(updated) })
	return updated, nil
}

// DeleteCustomer confirms and removes a customer.
func (d *Desk) DeleteCustomer(ctx context.Context, id int64) error {
	c, err := d.customer(ctx, id)
	if err != nil {
		return err
	}
	if err := d.ask(ctx, confirm.Request{
		Title:   "Delete Customer",
		Message: fmt.Sprintf("Delete %s permanently? Existing documents keep their copy of the customer details.", c.DisplayName()),
		Accept:  "Delete",
	}); err != nil {
		return err
	}
	if err := d.backend.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	d.apply(func(s *store.Store) *store.Store { return s.RemoveCustomer(id) })
	return nil
}

// EmailHistory lists the emails sent for a customer's documents, or every
// sent email when customerID is zero.
func (d *Desk) EmailHistory(ctx context.Context, customerID int64) ([]api.EmailLog, error) {
	if customerID == 0 {
		return d.backend.AllEmailHistory(ctx)
	}
	return d.backend.EmailHistory(ctx, customerID)
}
