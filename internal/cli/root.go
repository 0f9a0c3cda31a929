// Package cli implements the billingdesk command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/confirm"
	"github.com/odyssey-erp/billingdesk/internal/desk"
)

// Options are the global flags passed to the runtime factory.
type Options struct {
	Profile string
	Yes     bool
	Output  string
}

// Runtime carries the wired dependencies a command needs.
type Runtime struct {
	Client *api.Client
	Desk   *desk.Desk
	Prompt *confirm.Prompt
	Money  *billing.MoneyFormatter
	Logger *slog.Logger
	Close  func() error
}

// Factory builds a Runtime from the global options.
type Factory func(ctx context.Context, opts Options) (*Runtime, error)

type root struct {
	factory Factory
	opts    Options
	rt      *Runtime
}

// runtime builds the Runtime on first use so pure commands never touch the
// token store or the network.
func (r *root) runtime(cmd *cobra.Command) (*Runtime, error) {
	if r.rt != nil {
		return r.rt, nil
	}
	rt, err := r.factory(cmd.Context(), r.opts)
	if err != nil {
		return nil, err
	}
	r.rt = rt
	return rt, nil
}

func (r *root) printer(cmd *cobra.Command, money *billing.MoneyFormatter) *printer {
	return newPrinter(cmd.OutOrStdout(), r.opts.Output, money)
}

// NewRootCmd assembles the command tree.
func NewRootCmd(factory Factory) *cobra.Command {
	r := &root{factory: factory}
	cmd := &cobra.Command{
		Use:   "billingdesk",
		Short: "Quotes, invoices and receipts from the terminal",
		Long: `billingdesk talks to the billing backend to create quotes, invoices and
receipts, move them through their lifecycle and manage customers.

Log in once with "billingdesk login"; the token is kept in the configured
token store (system keyring by default).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch r.opts.Output {
			case OutputTable, OutputJSON, OutputYAML:
				return nil
			}
			return fmt.Errorf("unknown output format %q (table, json or yaml)", r.opts.Output)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if r.rt != nil && r.rt.Close != nil {
				return r.rt.Close()
			}
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&r.opts.Profile, "profile", "default", "credential profile")
	flags.BoolVarP(&r.opts.Yes, "yes", "y", false, "answer yes to every confirmation")
	flags.StringVarP(&r.opts.Output, "output", "o", OutputTable, "output format: table, json or yaml")

	cmd.AddCommand(
		r.loginCmd(),
		r.logoutCmd(),
		r.whoamiCmd(),
		r.customersCmd(),
		r.projectsCmd(),
		r.totalsCmd(),
	)
	for _, kind := range billing.Kinds {
		cmd.AddCommand(r.documentsCmd(kind))
	}
	return cmd
}

// Execute runs the command tree and maps known errors to friendly text.
func Execute(ctx context.Context, factory Factory, args []string) error {
	cmd := NewRootCmd(factory)
	cmd.SetArgs(args)
	return Explain(cmd.ExecuteContext(ctx))
}

// Explain rewrites workflow errors into messages suitable for the terminal.
func Explain(err error) error {
	var apiErr *api.Error
	var fields billing.FieldErrors
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("not logged in or session expired; run \"billingdesk login\"")
	case errors.Is(err, desk.ErrDeclined), errors.Is(err, desk.ErrDuplicateDeclined):
		return errors.New("cancelled")
	case errors.Is(err, confirm.ErrNotInteractive):
		return errors.New("confirmation required; re-run with --yes")
	case errors.As(err, &fields):
		return fields
	case errors.As(err, &apiErr):
		return errors.New(apiErr.Message)
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
