package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/search"
)

func (r *root) customersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Manage customers",
	}
	cmd.AddCommand(
		r.customersListCmd(),
		r.customersSearchCmd(),
		r.customersSaveCmd(),
		r.customersActiveCmd(true),
		r.customersActiveCmd(false),
		r.customersDeleteCmd(),
		r.customersEmailsCmd(),
		r.customersCheckCmd(),
	)
	return cmd
}

func (r *root) customersListCmd() *cobra.Command {
	var term string
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			var list []billing.Customer
			if term != "" {
				list, err = rt.Client.SearchCustomers(cmd.Context(), term)
			} else {
				list, err = rt.Desk.LoadCustomers(cmd.Context())
			}
			if err != nil {
				return err
			}
			if activeOnly {
				list = billing.ActiveCustomers(list)
			}
			return r.printer(cmd, rt.Money).customers(list)
		},
	}
	cmd.Flags().StringVarP(&term, "search", "s", "", "filter by name, company, email or phone")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active customers")
	return cmd
}

func (r *root) customersSaveCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "save [id]",
		Short: "Create a customer, or update customer <id>, from a YAML or JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c billing.Customer
			if err := readFile(cmd.InOrStdin(), file, &c); err != nil {
				return err
			}
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				c.ID = id
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			saved, err := rt.Desk.SaveCustomer(cmd.Context(), c)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).customers([]billing.Customer{saved})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "customer file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (r *root) customersCheckCmd() *cobra.Command {
	var q api.DuplicateQuery
	cmd := &cobra.Command{
		Use:   "check-duplicates",
		Short: "Look for customers sharing a phone, VAT/TIC, registration number or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Phone != "" && !billing.ValidatePhone(q.Phone) {
				return fmt.Errorf("phone %q is not a valid number", q.Phone)
			}
			if q.Email != "" && !billing.ValidateEmail(q.Email) {
				return fmt.Errorf("email %q is not a valid address", q.Email)
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			res := rt.Client.CheckDuplicates(cmd.Context(), q)
			p := r.printer(cmd, rt.Money)
			if ok, err := p.structured(res); ok {
				return err
			}
			if res.Clean() {
				p.muted("No duplicates found")
				return nil
			}
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "error   %-8s %s\n", e.Field, e.Message)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning %-8s %s\n", w.Field, w.Message)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Phone, "phone", "", "telephone number")
	f.StringVar(&q.VatTIC, "vat", "", "VAT/TIC number")
	f.StringVar(&q.RegNo, "reg-no", "", "company registration number")
	f.StringVar(&q.Email, "email", "", "email address")
	f.Int64Var(&q.ExcludeID, "exclude", 0, "customer id to ignore (when editing)")
	return cmd
}

func (r *root) customersActiveCmd(active bool) *cobra.Command {
	use, short := "disable <id>", "Disable a customer so it cannot be picked on new documents"
	if active {
		use, short = "enable <id>", "Enable a disabled customer"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			c, err := rt.Desk.SetCustomerActive(cmd.Context(), id, active)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).customers([]billing.Customer{c})
		},
	}
}

func (r *root) customersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a customer (administrators only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			if err := rt.Desk.DeleteCustomer(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted customer %d\n", id)
			return nil
		},
	}
}

func (r *root) customersEmailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "emails [id]",
		Short: "Show the emails sent for a customer's documents, or all emails",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			logs, err := rt.Desk.EmailHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).emailLogs(logs)
		},
	}
}

func (r *root) customersSearchCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search customers as you type, one term per line on stdin",
		Long: `search reads terms line by line and looks each one up after the
configured debounce (SEARCH_DEBOUNCE). Terms typed faster than the debounce
only search for the latest one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			live := rt.Desk.CustomerSearch()
			defer live.Close()
			p := r.printer(cmd, rt.Money)
			return liveSearch(cmd.Context(), cmd.InOrStdin(), live, wait, func(res search.Result[billing.Customer]) error {
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "search %q failed: %v\n", res.Term, Explain(res.Err))
					return nil
				}
				p.heading("> " + res.Term)
				return p.customers(res.Items)
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for the last result after input ends")
	return cmd
}

// liveSearch feeds lines from in to live and hands every delivered result to
// show. At end of input it waits up to wait for the latest term's result.
func liveSearch(ctx context.Context, in io.Reader, live *search.Live[billing.Customer], wait time.Duration, show func(search.Result[billing.Customer]) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := make(chan string)
	go func() {
		defer close(feed)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case feed <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		lines   <-chan string = feed
		pending string
		expired <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if pending == "" {
					return nil
				}
				lines = nil
				timer := time.NewTimer(wait)
				defer timer.Stop()
				expired = timer.C
				continue
			}
			pending = strings.TrimSpace(line)
			live.Type(ctx, pending)
		case res := <-live.Results():
			if err := show(res); err != nil {
				return err
			}
			if res.Term == pending {
				pending = ""
				if lines == nil {
					return nil
				}
			}
		case <-expired:
			return fmt.Errorf("no result for %q within %s", pending, wait)
		}
	}
}
