package billing

import (
	"fmt"
	"time"
)

// ============================================================================
// PROJECT & MILESTONE
// ============================================================================

type MilestoneType string

const (
	MilestoneAdvance  MilestoneType = "advance"
	MilestoneProgress MilestoneType = "progress"
	MilestoneFinal    MilestoneType = "final"
)

type MilestoneStatus string

const (
	MilestonePlanned       MilestoneStatus = "planned"
	MilestoneInvoiced      MilestoneStatus = "invoiced"
	MilestonePartiallyPaid MilestoneStatus = "partially_paid"
	MilestonePaid          MilestoneStatus = "paid"
)

// Milestone is a project sub-payment target.
type Milestone struct {
	ID             int64           `json:"id" yaml:"id"`
	ProjectID      int64           `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	No             int             `json:"milestone_no" yaml:"milestone_no"`
	Type           MilestoneType   `json:"milestone_type,omitempty" yaml:"milestone_type,omitempty" validate:"omitempty,oneof=advance progress final"`
	Label          string          `json:"label" yaml:"label" validate:"required,max=200"`
	ExpectedAmount float64         `json:"expected_amount" yaml:"expected_amount" validate:"gte=0"`
	InvoicedAmount float64         `json:"invoiced_amount" yaml:"invoiced_amount"`
	ReceivedAmount float64         `json:"received_amount" yaml:"received_amount"`
	InvoicesCount  int             `json:"invoices_count" yaml:"invoices_count"`
	Status         MilestoneStatus `json:"status" yaml:"status"`
	DueDate        *time.Time      `json:"due_date,omitempty" yaml:"due_date,omitempty"`
}

// Reconciliation compares a milestone's expected amount with what has been
// invoiced and received.
type Reconciliation struct {
	Expected        float64 `json:"expected" yaml:"expected"`
	Invoiced        float64 `json:"invoiced" yaml:"invoiced"`
	Received        float64 `json:"received" yaml:"received"`
	ToInvoice       float64 `json:"to_invoice" yaml:"to_invoice"`
	Outstanding     float64 `json:"outstanding" yaml:"outstanding"`
	ProgressPercent float64 `json:"progress_percent" yaml:"progress_percent"`
	FullyInvoiced   bool    `json:"fully_invoiced" yaml:"fully_invoiced"`
	FullyPaid       bool    `json:"fully_paid" yaml:"fully_paid"`
}

// ReconcileMilestone derives the reconciliation figures for m.
func ReconcileMilestone(m Milestone) Reconciliation {
	r := Reconciliation{
		Expected:    m.ExpectedAmount,
		Invoiced:    m.InvoicedAmount,
		Received:    m.ReceivedAmount,
		ToInvoice:   m.ExpectedAmount - m.InvoicedAmount,
		Outstanding: m.InvoicedAmount - m.ReceivedAmount,
	}
	if m.ExpectedAmount > 0 {
		r.ProgressPercent = m.InvoicedAmount / m.ExpectedAmount * 100
	}
	r.FullyInvoiced = m.InvoicedAmount >= m.ExpectedAmount || WithinTolerance(m.ExpectedAmount, m.InvoicedAmount)
	r.FullyPaid = m.InvoicedAmount > 0 && (m.ReceivedAmount >= m.InvoicedAmount || WithinTolerance(m.InvoicedAmount, m.ReceivedAmount))
	return r
}

// MilestoneWarning returns a message when a document total does not match
// the milestone's expected amount within Tolerance.
func MilestoneWarning(m Milestone, total float64, money *MoneyFormatter) (string, bool) {
	if m.ExpectedAmount <= 0 || WithinTolerance(m.ExpectedAmount, total) {
		return "", false
	}
	expected, actual := fmt.Sprintf("%.2f", m.ExpectedAmount), fmt.Sprintf("%.2f", Round2(total))
	if money != nil {
		expected, actual = money.Format(m.ExpectedAmount), money.Format(total)
	}
	return fmt.Sprintf("Milestone %q expects %s but this document totals %s", m.Label, expected, actual), true
}

// ProjectFinancials summarises invoicing progress against a budget.
type ProjectFinancials struct {
	TotalBudget     float64 `json:"total_budget" yaml:"total_budget"`
	InvoicedTotal   float64 `json:"invoiced_total" yaml:"invoiced_total"`
	IssuedTotal     float64 `json:"issued_total" yaml:"issued_total"`
	Remaining       float64 `json:"remaining" yaml:"remaining"`
	ProgressPercent float64 `json:"progress_percent" yaml:"progress_percent"`
}

// ComputeProjectFinancials sums every non-cancelled invoice against budget.
func ComputeProjectFinancials(budget float64, invoices []Document) ProjectFinancials {
	pf := ProjectFinancials{TotalBudget: budget}
	for _, inv := range invoices {
		if inv.Kind != KindInvoice || inv.Status == StatusCancelled {
			continue
		}
		pf.InvoicedTotal += inv.Payable()
		if inv.Status == StatusIssued {
			pf.IssuedTotal += inv.Payable()
		}
	}
	pf.Remaining = budget - pf.InvoicedTotal
	if budget > 0 {
		pf.ProgressPercent = pf.InvoicedTotal / budget * 100
	}
	return pf
}
