package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

// Project statuses accepted by the backend.
const (
	ProjectActive    = "active"
	ProjectClosed    = "closed"
	ProjectCancelled = "cancelled"
)

// Project is a customer engagement that invoices are billed against. The
// list-only fields are filled by ListProjects and ignored on save.
type Project struct {
	ID          int64      `json:"id,omitempty" yaml:"id,omitempty"`
	Code        string     `json:"project_code,omitempty" yaml:"project_code,omitempty"`
	CustomerID  int64      `json:"customer_id" yaml:"customer_id" validate:"required"`
	Title       string     `json:"title" yaml:"title" validate:"required,max=200"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string     `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=active closed cancelled"`
	TotalBudget float64    `json:"total_budget" yaml:"total_budget" validate:"gte=0"`
	StartDate   *time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Notes       string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`

	// Milestones created together with a new project.
	Milestones []billing.Milestone `json:"milestones,omitempty" yaml:"milestones,omitempty" validate:"dive"`

	CustomerName    string  `json:"customer_name,omitempty" yaml:"customer_name,omitempty"`
	CompanyName     string  `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	MilestonesCount int     `json:"milestones_count,omitempty" yaml:"milestones_count,omitempty"`
	InvoicedAmount  float64 `json:"invoiced_amount,omitempty" yaml:"invoiced_amount,omitempty"`
}

// ProjectFilter narrows ListProjects. Zero fields are not sent.
type ProjectFilter struct {
	Search     string
	Status     string
	CustomerID int64
}

func (f ProjectFilter) values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		v.Set("search", s)
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		v.Set("status_filter", s)
	}
	if f.CustomerID > 0 {
		v.Set("customer_id", strconv.FormatInt(f.CustomerID, 10))
	}
	return v
}

// ProjectSummary is the project dashboard payload.
type ProjectSummary struct {
	Project    Project                   `json:"project" yaml:"project"`
	Customer   billing.Customer          `json:"customer" yaml:"customer"`
	Financial  billing.ProjectFinancials `json:"financial" yaml:"financial"`
	Milestones []billing.Milestone       `json:"milestones" yaml:"milestones"`
}

// ProjectInvoice is an invoice as listed under its project.
type ProjectInvoice struct {
	ID        int64          `json:"id" yaml:"id"`
	Number    string         `json:"invoice_number" yaml:"invoice_number"`
	Status    billing.Status `json:"status" yaml:"status"`
	Total     float64        `json:"total" yaml:"total"`
	IssueDate *time.Time     `json:"issue_date,omitempty" yaml:"issue_date,omitempty"`
	Milestone *MilestoneRef  `json:"milestone,omitempty" yaml:"milestone,omitempty"`
}

// MilestoneRef names the milestone an invoice bills.
type MilestoneRef struct {
	ID    int64  `json:"id" yaml:"id"`
	No    int    `json:"milestone_no" yaml:"milestone_no"`
	Label string `json:"label" yaml:"label"`
}

// Document projects the listing onto a billing document without lines.
func (pi ProjectInvoice) Document() billing.Document {
	doc := billing.Document{
		ID:        pi.ID,
		Number:    pi.Number,
		Kind:      billing.KindInvoice,
		Status:    billing.ParseStatus(string(pi.Status)),
		Total:     pi.Total,
		IssueDate: pi.IssueDate,
	}
	if pi.Milestone != nil {
		id := pi.Milestone.ID
		doc.MilestoneID = &id
	}
	return doc
}

func projectPath(id int64, rest ...string) string {
	return "/projects/" + strconv.FormatInt(id, 10) + strings.Join(rest, "")
}

// ListProjects returns projects, newest first.
func (c *Client) ListProjects(ctx context.Context, f ProjectFilter) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, http.MethodGet, "/projects", f.values(), nil, &out); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, id int64) (Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodGet, projectPath(id), nil, nil, &out); err != nil {
		return Project{}, fmt.Errorf("get project %d: %w", id, err)
	}
	return out, nil
}

// SaveProject creates the project when it has no ID, otherwise updates it.
func (c *Client) SaveProject(ctx context.Context, p Project) (Project, error) {
	method, path := http.MethodPost, "/projects"
	if p.ID != 0 {
		method, path = http.MethodPut, projectPath(p.ID)
		p.Milestones = nil
	}
	var out Project
	if err := c.do(ctx, method, path, nil, p, &out); err != nil {
		return Project{}, fmt.Errorf("save project: %w", err)
	}
	return out, nil
}

// DeleteProject removes a project. The backend refuses while invoices are
// linked to it.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, projectPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return nil
}

// ProjectSummary fetches a project with its financials and milestones.
func (c *Client) ProjectSummary(ctx context.Context, id int64) (ProjectSummary, error) {
	var out ProjectSummary
	if err := c.do(ctx, http.MethodGet, projectPath(id, "/summary"), nil, nil, &out); err != nil {
		return ProjectSummary{}, fmt.Errorf("project %d summary: %w", id, err)
	}
	return out, nil
}

// ProjectInvoices lists the invoices billed against a project.
func (c *Client) ProjectInvoices(ctx context.Context, projectID int64) ([]ProjectInvoice, error) {
	var out []ProjectInvoice
	if err := c.do(ctx, http.MethodGet, projectPath(projectID, "/invoices"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("project %d invoices: %w", projectID, err)
	}
	return out, nil
}

// Milestones lists the milestones of a project.
func (c *Client) Milestones(ctx context.Context, projectID int64) ([]billing.Milestone, error) {
	var out []billing.Milestone
	if err := c.do(ctx, http.MethodGet, projectPath(projectID, "/milestones"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("project %d milestones: %w", projectID, err)
	}
	return out, nil
}

// AddMilestone appends a milestone to a project.
func (c *Client) AddMilestone(ctx context.Context, projectID int64, m billing.Milestone) (billing.Milestone, error) {
	var out billing.Milestone
	if err := c.do(ctx, http.MethodPost, projectPath(projectID, "/milestones"), nil, m, &out); err != nil {
		return billing.Milestone{}, fmt.Errorf("project %d add milestone: %w", projectID, err)
	}
	return out, nil
}
