package desk_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/desk"
)

func newCustomer() billing.Customer {
	return billing.Customer{Name: "Giorgos Demetriou", Telephone1: "99112233", TaxID: "CY10203040X"}
}

func TestSaveCustomer_Clean(t *testing.T) {
	f := setup(t)

	saved, err := f.desk.SaveCustomer(context.Background(), newCustomer())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Empty(t, f.answers.titles())

	c, ok := f.desk.State().Customer(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "Giorgos Demetriou", c.Name)
}

func TestSaveCustomer_WarningAskedAndDeclined(t *testing.T) {
	f := setup(t)
	f.srv.AddCustomer(billing.Customer{Name: "Existing", Telephone1: "99112233", IsActive: true})

	f.answers.answer = false
	_, err := f.desk.SaveCustomer(context.Background(), newCustomer())
	require.ErrorIs(t, err, desk.ErrDuplicateDeclined)
	assert.Equal(t, []string{"Possible Duplicate Found"}, f.answers.titles())
	assert.Equal(t, "Save Anyway", f.answers.requests[0].Accept)
	assert.Contains(t, f.answers.requests[0].Message, "99112233")

	all, err := f.client.ListCustomers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1, "declined save must not create the customer")
}

func TestSaveCustomer_WarningAccepted(t *testing.T) {
	f := setup(t)
	f.srv.AddCustomer(billing.Customer{Name: "Existing", Telephone1: "99112233", IsActive: true})

	saved, err := f.desk.SaveCustomer(context.Background(), newCustomer())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
}

func TestSaveCustomer_ErrorsBlock(t *testing.T) {
	f := setup(t)
	f.srv.AddCustomer(billing.Customer{Name: "Registered", Telephone1: "22000000", RegNo: "HE555"})

	c := newCustomer()
	c.RegNo = "HE555"
	_, err := f.desk.SaveCustomer(context.Background(), c)
	require.ErrorIs(t, err, desk.ErrDuplicateBlocked)
	assert.Contains(t, err.Error(), "HE555")

	var dupErr *desk.DuplicateError
	require.ErrorAs(t, err, &dupErr)
	require.Len(t, dupErr.Issues, 1)
	assert.Equal(t, "reg_no", dupErr.Issues[0].Field)
	assert.Empty(t, f.answers.titles(), "blocking duplicates are not offered an override")
}

func TestSaveCustomer_DuplicateServiceDownStillSaves(t *testing.T) {
	f := setup(t)
	f.srv.AddCustomer(billing.Customer{Name: "Existing", Telephone1: "99112233"})
	f.srv.FailDuplicateCheck.Store(true)

	saved, err := f.desk.SaveCustomer(context.Background(), newCustomer())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Empty(t, f.answers.titles())
	assert.Equal(t, 1, f.srv.Hits(dupCheckRoute))
}

func TestSaveCustomer_InvalidSkipsDuplicateCheck(t *testing.T) {
	f := setup(t)

	c := newCustomer()
	c.Telephone1 = "55512345"
	c.Email = "bad@"
	_, err := f.desk.SaveCustomer(context.Background(), c)
	var fields billing.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "telephone1")
	assert.Contains(t, fields, "email")
	assert.Zero(t, f.srv.Hits(dupCheckRoute))
}

func TestLoadCustomersAndSearch(t *testing.T) {
	f := setup(t)
	f.srv.AddCustomer(billing.Customer{Name: "Andreas", Telephone1: "99000001", IsActive: true})
	f.srv.AddCustomer(billing.Customer{CompanyName: "Blue Ltd", Telephone1: "22000001", IsActive: true})

	all, err := f.desk.LoadCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Andreas", all[0].DisplayName())

	live := f.desk.CustomerSearch()
	defer live.Close()
	live.Type(context.Background(), "blue")
	select {
	case res := <-live.Results():
		require.NoError(t, res.Err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "Blue Ltd", res.Items[0].CompanyName)
	case <-time.After(2 * time.Second):
		t.Fatal("search produced no result")
	}
}

func TestSetCustomerActive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.srv.AddCustomer(billing.Customer{Name: "Marios", Telephone1: "99000009", IsActive: true})

	f.answers.answer = false
	_, err := f.desk.SetCustomerActive(ctx, id, false)
	require.ErrorIs(t, err, desk.ErrDeclined)
	assert.Zero(t, f.srv.Hits("PATCH /api/customers/{id}/toggle-status"))

	f.answers.answer = true
	c, err := f.desk.SetCustomerActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, c.IsActive)
	assert.Equal(t, []string{"Disable Customer", "Disable Customer"}, f.answers.titles())
	assert.Equal(t, "Are you sure you want to disable Marios?", f.answers.requests[1].Message)

	again, err := f.desk.SetCustomerActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
	assert.Equal(t, 1, f.srv.Hits("PATCH /api/customers/{id}/toggle-status"), "already disabled needs no call")

	c, err = f.desk.SetCustomerActive(ctx, id, true)
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Equal(t, "Enable Customer", f.answers.titles()[2])
}

func TestDeleteCustomer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.srv.AddCustomer(billing.Customer{Name: "Leaving", Telephone1: "99000010", IsActive: true})
	_, err := f.desk.LoadCustomers(ctx)
	require.NoError(t, err)

	require.NoError(t, f.desk.DeleteCustomer(ctx, id))
	assert.Equal(t, []string{"Delete Customer"}, f.answers.titles())
	_, ok := f.desk.State().Customer(id)
	assert.False(t, ok)

	_, err = f.client.GetCustomer(ctx, id)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.ErrorIs(t, f.desk.DeleteCustomer(ctx, id), api.ErrNotFound)
}

func TestEmailHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.srv.AddCustomer(billing.Customer{Name: "Christina Pavlou", Telephone1: "99445566", IsActive: true})
	other := f.srv.AddCustomer(billing.Customer{Name: "Nobody", Telephone1: "99000011", IsActive: true})

	quote, err := f.desk.SaveDraft(ctx, newQuote())
	require.NoError(t, err)
	_, err = f.desk.Issue(ctx, billing.KindQuote, quote.ID)
	require.NoError(t, err)
	require.NoError(t, f.desk.SendEmail(ctx, billing.KindQuote, quote.ID, api.Email{Recipient: "christina@example.com"}))

	logs, err := f.desk.EmailHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, billing.KindQuote, logs[0].Kind)
	assert.Equal(t, quote.ID, logs[0].DocumentID)
	assert.Equal(t, "christina@example.com", logs[0].Recipient)
	require.NotNil(t, logs[0].CustomerID)
	assert.Equal(t, id, *logs[0].CustomerID)

	none, err := f.desk.EmailHistory(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.desk.EmailHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
