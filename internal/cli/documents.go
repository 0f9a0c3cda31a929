package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
)

func (r *root) documentsCmd(kind billing.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.Collection(),
		Short: "Manage " + kind.Collection(),
	}
	cmd.AddCommand(
		r.docListCmd(kind),
		r.docShowCmd(kind),
		r.docSaveCmd(kind),
		r.docIssueCmd(kind),
		r.docCancelCmd(kind),
		r.docDeleteCmd(kind),
		r.docPDFCmd(kind),
	)
	if kind != billing.KindReceipt {
		cmd.AddCommand(r.docEmailCmd(kind))
	}
	if kind == billing.KindQuote {
		cmd.AddCommand(r.convertCmd())
	}
	return cmd
}

func (r *root) docListCmd(kind billing.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List " + kind.Collection(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			docs, err := rt.Desk.Refresh(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).documents(kind, docs)
		},
	}
}

func (r *root) docShowCmd(kind billing.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one " + string(kind),
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
			doc, err := rt.Desk.Open(cmd.Context(), kind, id)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).document(doc)
		},
	}
}

func (r *root) docSaveCmd(kind billing.Kind) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "save [id]",
		Short: "Create a draft " + string(kind) + ", or update draft <id>, from a YAML or JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), file, kind)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if doc.ID, err = parseID(args[0]); err != nil {
					return err
				}
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			saved, err := rt.Desk.SaveDraft(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).document(saved)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "document file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (r *root) docIssueCmd(kind billing.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <id>",
		Short: "Issue a draft " + string(kind),
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
			doc, err := rt.Desk.Issue(cmd.Context(), kind, id)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).document(doc)
		},
	}
}

func (r *root) docCancelCmd(kind billing.Kind) *cobra.Command {
	var reason, detail string
	reasons := make([]string, len(billing.CancelReasons))
	for i, cr := range billing.CancelReasons {
		reasons[i] = string(cr)
	}
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an issued " + string(kind),
		Long:  "Cancel an issued " + string(kind) + ". Reasons: " + strings.Join(reasons, ", ") + ".",
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
			doc, err := rt.Desk.Cancel(cmd.Context(), kind, id, matchReason(reason), detail)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).document(doc)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	cmd.Flags().StringVar(&detail, "detail", "", "free text, required with --reason Other")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

// matchReason accepts a reason case-insensitively; unknown text passes
// through and is rejected by ComposeCancelReason.
func matchReason(s string) billing.CancelReason {
	for _, cr := range billing.CancelReasons {
		if strings.EqualFold(strings.TrimSpace(s), string(cr)) {
			return cr
		}
	}
	return billing.CancelReason(s)
}

func (r *root) docDeleteCmd(kind billing.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft " + string(kind),
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
			if err := rt.Desk.Delete(cmd.Context(), kind, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %d\n", kind, id)
			return nil
		},
	}
}

func (r *root) docPDFCmd(kind billing.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "pdf <id>",
		Short: "Generate the " + string(kind) + " PDF",
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
			pdf, err := rt.Desk.GeneratePDF(cmd.Context(), kind, id)
			if err != nil {
				return err
			}
			p := r.printer(cmd, rt.Money)
			if ok, err := p.structured(pdf); ok {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pdf.URL)
			return nil
		},
	}
}

func (r *root) docEmailCmd(kind billing.Kind) *cobra.Command {
	var email api.Email
	cmd := &cobra.Command{
		Use:   "email <id>",
		Short: "Email the " + string(kind) + " PDF",
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
			if err := rt.Desk.SendEmail(cmd.Context(), kind, id, email); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s %d to %s\n", kind, id, email.Recipient)
			return nil
		},
	}
	cmd.Flags().StringVar(&email.Recipient, "to", "", "recipient email")
	cmd.Flags().StringVar(&email.Subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&email.Message, "message", "", "message body")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (r *root) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <id>",
		Short: "Convert an issued quote into a draft invoice",
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
			invoice, err := rt.Desk.ConvertQuote(cmd.Context(), id)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).document(invoice)
		},
	}
}

// readDocument decodes a document file. JSON input works too since YAML is
// a superset.
func readDocument(stdin io.Reader, path string, kind billing.Kind) (billing.Document, error) {
	var doc billing.Document
	if err := readFile(stdin, path, &doc); err != nil {
		return doc, err
	}
	doc.Kind = kind
	if doc.Status != "" {
		doc.Status = billing.ParseStatus(string(doc.Status))
	}
	return doc, nil
}

func readFile(stdin io.Reader, path string, out any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
