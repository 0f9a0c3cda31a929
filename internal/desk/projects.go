package desk

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/confirm"
)

// ============================================================================
// PROJECTS
// ============================================================================

// Projects lists projects matching f.
func (d *Desk) Projects(ctx context.Context, f api.ProjectFilter) ([]api.Project, error) {
	return d.backend.ListProjects(ctx, f)
}

// SaveProject validates the form and creates or updates the project.
func (d *Desk) SaveProject(ctx context.Context, p api.Project) (api.Project, error) {
	if err := d.validator.Struct(p); err != nil {
		return p, err
	}
	return d.backend.SaveProject(ctx, p)
}

// DeleteProject confirms and removes a project without linked invoices.
func (d *Desk) DeleteProject(ctx context.Context, id int64) error {
	p, err := d.backend.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := d.ask(ctx, confirm.Request{
		Title:   "Delete Project",
		Message: fmt.Sprintf("Delete project %s %q? This cannot be undone.", p.Code, p.Title),
		Accept:  "Delete",
	}); err != nil {
		return err
	}
	return d.backend.DeleteProject(ctx, id)
}

// AddMilestone validates and appends a milestone to a project.
func (d *Desk) AddMilestone(ctx context.Context, projectID int64, m billing.Milestone) (billing.Milestone, error) {
	if err := d.validator.Struct(m); err != nil {
		return m, err
	}
	return d.backend.AddMilestone(ctx, projectID, m)
}

// MilestoneView pairs a milestone with its reconciliation.
type MilestoneView struct {
	billing.Milestone `yaml:",inline"`
	Reconciliation    billing.Reconciliation `json:"reconciliation" yaml:"reconciliation"`
}

// Milestones lists the milestones of a project with their reconciliation.
func (d *Desk) Milestones(ctx context.Context, projectID int64) ([]MilestoneView, error) {
	ms, err := d.backend.Milestones(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return reconcile(ms), nil
}

func reconcile(ms []billing.Milestone) []MilestoneView {
	out := make([]MilestoneView, 0, len(ms))
	for _, m := range ms {
		out = append(out, MilestoneView{Milestone: m, Reconciliation: billing.ReconcileMilestone(m)})
	}
	return out
}

// ProjectOverview is a project summary with reconciled milestones and the
// invoices billed against it.
type ProjectOverview struct {
	Project    api.Project               `json:"project" yaml:"project"`
	Customer   billing.Customer          `json:"customer" yaml:"customer"`
	Financial  billing.ProjectFinancials `json:"financial" yaml:"financial"`
	Milestones []MilestoneView           `json:"milestones" yaml:"milestones"`
	Invoices   []api.ProjectInvoice      `json:"invoices" yaml:"invoices"`
}

// ProjectOverview loads the summary and the invoice list in parallel. The
// financials are recomputed from the invoices so issued and draft amounts
// can be told apart.
func (d *Desk) ProjectOverview(ctx context.Context, id int64) (ProjectOverview, error) {
	var (
		sum      api.ProjectSummary
		invoices []api.ProjectInvoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum, err = d.backend.ProjectSummary(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = d.backend.ProjectInvoices(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return ProjectOverview{}, err
	}

	docs := make([]billing.Document, len(invoices))
	for i, inv := range invoices {
		docs[i] = inv.Document()
	}
	out := ProjectOverview{
		Project:    sum.Project,
		Customer:   sum.Customer,
		Financial:  billing.ComputeProjectFinancials(sum.Project.TotalBudget, docs),
		Invoices:   invoices,
		Milestones: reconcile(sum.Milestones),
	}
	return out, nil
}
