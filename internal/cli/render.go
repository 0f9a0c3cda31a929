package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/desk"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

var toneColors = map[string]lipgloss.Color{
	billing.ToneMuted:   lipgloss.Color("241"),
	billing.ToneSuccess: lipgloss.Color("76"),
	billing.ToneDanger:  lipgloss.Color("196"),
	billing.ToneInfo:    lipgloss.Color("39"),
	billing.ToneWarning: lipgloss.Color("214"),
}

// printer renders values for one command invocation.
type printer struct {
	w        io.Writer
	format   string
	renderer *lipgloss.Renderer
	money    *billing.MoneyFormatter
}

func newPrinter(w io.Writer, format string, money *billing.MoneyFormatter) *printer {
	return &printer{w: w, format: format, renderer: lipgloss.NewRenderer(w), money: money}
}

// structured writes v as JSON or YAML. It reports false for table output.
func (p *printer) structured(v any) (bool, error) {
	switch p.format {
	case OutputJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func (p *printer) badge(st billing.Status) string {
	b := billing.BadgeFor(st)
	return p.renderer.NewStyle().Bold(true).Foreground(toneColors[b.Tone]).Render(b.Label)
}

func (p *printer) amount(v float64) string {
	if p.money == nil {
		return strconv.FormatFloat(billing.Round2(v), 'f', 2, 64)
	}
	return p.money.Format(v)
}

func (p *printer) table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.renderer.NewStyle().Foreground(toneColors[billing.ToneMuted])).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(p.w, t.Render())
}

func (p *printer) heading(s string) {
	fmt.Fprintln(p.w, p.renderer.NewStyle().Bold(true).Foreground(toneColors[billing.ToneInfo]).Render(s))
}

func (p *printer) muted(s string) {
	fmt.Fprintln(p.w, p.renderer.NewStyle().Foreground(toneColors[billing.ToneMuted]).Render(s))
}

func (p *printer) documents(kind billing.Kind, docs []billing.Document) error {
	if ok, err := p.structured(docs); ok {
		return err
	}
	if len(docs) == 0 {
		p.muted("No " + kind.Collection() + " found")
		return nil
	}
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			d.Number,
			customerName(d.Customer),
			p.amount(d.Payable()),
			p.badge(d.Status),
			actionList(billing.ActionsFor(d)),
		})
	}
	p.table([]string{"ID", "Number", "Customer", "Total", "Status", "Actions"}, rows)
	fmt.Fprintf(p.w, "Total: %d %s\n", len(docs), kind.Collection())
	return nil
}

func (p *printer) document(d billing.Document) error {
	if ok, err := p.structured(d); ok {
		return err
	}
	title := d.Kind.Label()
	if d.Number != "" {
		title += " " + d.Number
	}
	p.heading(title)
	fmt.Fprintf(p.w, "Status:   %s\n", p.badge(d.Status))
	fmt.Fprintf(p.w, "Customer: %s\n", customerName(d.Customer))
	if d.Customer.Email != "" {
		fmt.Fprintf(p.w, "Email:    %s\n", d.Customer.Email)
	}
	if d.CancelReason != "" {
		reason, detail := billing.ParseCancelReason(d.CancelReason)
		text := string(reason)
		if detail != "" {
			text += " (" + detail + ")"
		}
		fmt.Fprintf(p.w, "Reason:   %s\n", text)
	}

	if d.Kind == billing.KindReceipt {
		fmt.Fprintf(p.w, "Amount:   %s (%s)\n", p.amount(d.Amount), d.PaymentMethod.Label())
	} else {
		rows := make([][]string, 0, len(d.LineItems))
		for _, li := range d.LineItems {
			rows = append(rows, []string{
				li.Description,
				strconv.FormatFloat(li.Quantity, 'f', -1, 64),
				p.amount(li.UnitPrice),
				strconv.FormatFloat(li.Discount, 'f', -1, 64) + "%",
				p.amount(billing.LineTotal(li)),
			})
		}
		p.table([]string{"Description", "Qty", "Unit price", "Disc.", "Line total"}, rows)
		p.totals(d.Totals(), d.Discount, d.Tax)
		if !billing.WithinTolerance(d.Totals().Total, d.Total) && d.Status != billing.StatusDraft {
			fmt.Fprintf(p.w, "Invoiced: %s\n", p.amount(d.Total))
		}
	}
	if next := billing.NextStatuses(d.Kind, d.Status); len(next) > 0 {
		labels := make([]string, len(next))
		for i, st := range next {
			labels[i] = billing.BadgeFor(st).Label
		}
		fmt.Fprintf(p.w, "Next:     %s\n", strings.Join(labels, ", "))
	}
	fmt.Fprintf(p.w, "Actions:  %s\n", actionList(billing.ActionsFor(d)))
	return nil
}

func (p *printer) totals(t billing.Totals, discount, tax float64) {
	fmt.Fprintf(p.w, "Subtotal: %s\n", p.amount(t.Subtotal))
	if discount != 0 {
		fmt.Fprintf(p.w, "Discount: %s%% -> %s\n", strconv.FormatFloat(discount, 'f', -1, 64), p.amount(t.AfterDiscount))
	}
	if tax != 0 {
		fmt.Fprintf(p.w, "Tax:      %s%%\n", strconv.FormatFloat(tax, 'f', -1, 64))
	}
	fmt.Fprintf(p.w, "Total:    %s\n", p.amount(t.Total))
}

func (p *printer) customers(list []billing.Customer) error {
	if ok, err := p.structured(list); ok {
		return err
	}
	if len(list) == 0 {
		p.muted("No customers found")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		state := "Active"
		if !c.IsActive {
			state = "Inactive"
		}
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.DisplayName(), c.Telephone1, c.Email, state})
	}
	p.table([]string{"ID", "Name", "Phone", "Email", "State"}, rows)
	return nil
}

func (p *printer) projects(list []api.Project) error {
	if ok, err := p.structured(list); ok {
		return err
	}
	if len(list) == 0 {
		p.muted("No projects found")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, pr := range list {
		customer := pr.CustomerName
		if pr.CompanyName != "" {
			customer = strings.TrimSpace(customer + " (" + pr.CompanyName + ")")
		}
		rows = append(rows, []string{
			strconv.FormatInt(pr.ID, 10),
			pr.Code,
			pr.Title,
			customer,
			p.amount(pr.TotalBudget),
			p.amount(pr.InvoicedAmount),
			strconv.Itoa(pr.MilestonesCount),
			pr.Status,
		})
	}
	p.table([]string{"ID", "Code", "Title", "Customer", "Budget", "Invoiced", "Milestones", "Status"}, rows)
	return nil
}

func (p *printer) milestones(list []desk.MilestoneView) {
	rows := make([][]string, 0, len(list))
	for _, m := range list {
		state := "open"
		if m.Reconciliation.FullyInvoiced {
			state = "invoiced"
		}
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			strconv.Itoa(m.No),
			m.Label,
			p.amount(m.ExpectedAmount),
			p.amount(m.InvoicedAmount),
			p.amount(m.Reconciliation.ToInvoice),
			fmt.Sprintf("%.0f%%", m.Reconciliation.ProgressPercent),
			state,
		})
	}
	p.table([]string{"ID", "#", "Milestone", "Expected", "Invoiced", "To invoice", "Progress", "State"}, rows)
}

func (p *printer) emailLogs(logs []api.EmailLog) error {
	if ok, err := p.structured(logs); ok {
		return err
	}
	if len(logs) == 0 {
		p.muted("No emails sent yet")
		return nil
	}
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			l.SentAt.Local().Format("2006-01-02 15:04"),
			l.Kind.Label() + " " + l.DocumentNumber,
			l.Recipient,
			l.Subject,
			p.amount(l.TotalAmount),
		})
	}
	p.table([]string{"Sent", "Document", "Recipient", "Subject", "Total"}, rows)
	return nil
}

func customerName(c billing.CustomerRef) string {
	switch {
	case c.ClientName != "" && c.CompanyName != "":
		return c.ClientName + " (" + c.CompanyName + ")"
	case c.ClientName != "":
		return c.ClientName
	}
	return c.CompanyName
}

func actionList(a billing.Actions) string {
	var out []string
	for _, it := range []struct {
		on   bool
		name string
	}{
		{a.Edit, "edit"}, {a.Delete, "delete"}, {a.Issue, "issue"}, {a.Cancel, "cancel"},
		{a.Convert, "convert"}, {a.Send, "email"}, {a.ViewPDF, "pdf"},
	} {
		if it.on {
			out = append(out, it.name)
		}
	}
	return strings.Join(out, ", ")
}
