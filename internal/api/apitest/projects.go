package apitest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/platform/httpx"
)

// ProjectRecord is a stored project in backend JSON form. Milestones are
// only read on create.
type ProjectRecord struct {
	ID          int64               `json:"id"`
	Code        string              `json:"project_code"`
	CustomerID  int64               `json:"customer_id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Status      string              `json:"status"`
	TotalBudget float64             `json:"total_budget"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	Milestones  []billing.Milestone `json:"milestones,omitempty"`
}

type project struct {
	rec        ProjectRecord
	milestones []billing.Milestone
}

// AddProject seeds an active project with milestones and returns its ID.
func (s *Server) AddProject(title string, budget float64, milestones []billing.Milestone) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addProject(ProjectRecord{Title: title, TotalBudget: budget, Milestones: milestones}).ID
}

// addProject assigns identity to rec and its milestones. Callers hold s.mu.
func (s *Server) addProject(rec ProjectRecord) ProjectRecord {
	s.nextID++
	rec.ID = s.nextID
	rec.Code = fmt.Sprintf("PRJ-%d-%06d", time.Now().Year(), rec.ID)
	rec.CreatedAt = time.Now().UTC()
	if rec.Status == "" {
		rec.Status = "active"
	}
	p := &project{}
	for _, m := range rec.Milestones {
		p.milestones = append(p.milestones, s.newMilestone(rec.ID, len(p.milestones), m))
	}
	rec.Milestones = nil
	p.rec = rec
	s.projects[rec.ID] = p
	return rec
}

// newMilestone fills server fields of m. Callers hold s.mu.
func (s *Server) newMilestone(projectID int64, existing int, m billing.Milestone) billing.Milestone {
	s.nextID++
	m.ID, m.ProjectID = s.nextID, projectID
	if m.No == 0 {
		m.No = existing + 1
	}
	if m.Status == "" {
		m.Status = billing.MilestonePlanned
	}
	m.InvoicedAmount, m.ReceivedAmount, m.InvoicesCount = 0, 0, 0
	return m
}

// findProject resolves {id}; it writes the 404 itself. Callers hold s.mu.
func (s *Server) findProject(w http.ResponseWriter, r *http.Request) (*project, bool) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	p, ok := s.projects[id]
	if !ok {
		httpx.Detail(w, http.StatusNotFound, "Project not found")
	}
	return p, ok
}

// linkedInvoices returns the non-cancelled invoices of a project, or of one
// milestone when milestoneID is set. Callers hold s.mu.
func (s *Server) linkedInvoices(projectID, milestoneID int64) []*Record {
	var out []*Record
	for _, rec := range s.docs[billing.KindInvoice] {
		if rec.Status == string(billing.StatusCancelled) {
			continue
		}
		if milestoneID != 0 {
			if rec.MilestoneID != nil && *rec.MilestoneID == milestoneID {
				out = append(out, rec)
			}
			continue
		}
		if rec.ProjectID != nil && *rec.ProjectID == projectID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func sumTotals(recs []*Record) float64 {
	var total float64
	for _, rec := range recs {
		total += rec.Total
	}
	return total
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.ToLower(q.Get("search"))
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)

	type row struct {
		ProjectRecord
		CustomerName    string  `json:"customer_name"`
		CompanyName     string  `json:"company_name,omitempty"`
		MilestonesCount int     `json:"milestones_count"`
		InvoicedAmount  float64 `json:"invoiced_amount"`
	}
	s.mu.Lock()
	out := []row{}
	for _, p := range s.projects {
		if st := q.Get("status_filter"); st != "" && p.rec.Status != st {
			continue
		}
		if customerID != 0 && p.rec.CustomerID != customerID {
			continue
		}
		it := row{ProjectRecord: p.rec, MilestonesCount: len(p.milestones)}
		if c, ok := s.customers[p.rec.CustomerID]; ok {
			it.CustomerName, it.CompanyName = c.Name, c.CompanyName
		}
		hay := strings.ToLower(strings.Join([]string{it.Title, it.Code, it.CustomerName, it.CompanyName}, " "))
		if term != "" && !strings.Contains(hay, term) {
			continue
		}
		it.InvoicedAmount = sumTotals(s.linkedInvoices(p.rec.ID, 0))
		out = append(out, it)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	httpx.JSON(w, http.StatusOK, out)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var rec ProjectRecord
	if err := httpx.DecodeJSON(r, &rec); err != nil || strings.TrimSpace(rec.Title) == "" {
		httpx.Detail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[rec.CustomerID]; !ok {
		httpx.Detail(w, http.StatusNotFound, "Customer not found")
		return
	}
	httpx.JSON(w, http.StatusCreated, s.addProject(rec))
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.findProject(w, r); ok {
		httpx.JSON(w, http.StatusOK, p.rec)
	}
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	var in ProjectRecord
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Detail(w, http.StatusUnprocessableEntity, "Invalid project payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProject(w, r)
	if !ok {
		return
	}
	if in.CustomerID == 0 {
		in.CustomerID = p.rec.CustomerID
	}
	if _, ok := s.customers[in.CustomerID]; !ok {
		httpx.Detail(w, http.StatusNotFound, "Customer not found")
		return
	}
	if in.Status == "" {
		in.Status = p.rec.Status
	}
	in.ID, in.Code, in.CreatedAt, in.Milestones = p.rec.ID, p.rec.Code, p.rec.CreatedAt, nil
	p.rec = in
	httpx.JSON(w, http.StatusOK, p.rec)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProject(w, r)
	if !ok {
		return
	}
	linked := 0
	for _, rec := range s.docs[billing.KindInvoice] {
		if rec.ProjectID != nil && *rec.ProjectID == p.rec.ID {
			linked++
		}
	}
	if linked > 0 {
		httpx.Detail(w, http.StatusBadRequest, fmt.Sprintf("Cannot delete project. %d invoice(s) are linked to it.", linked))
		return
	}
	delete(s.projects, p.rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

// withInvoiced returns the milestones with their invoiced figures. Callers
// hold s.mu.
func (s *Server) withInvoiced(p *project) []billing.Milestone {
	out := make([]billing.Milestone, len(p.milestones))
	for i, m := range p.milestones {
		linked := s.linkedInvoices(p.rec.ID, m.ID)
		m.InvoicedAmount, m.InvoicesCount = sumTotals(linked), len(linked)
		out[i] = m
	}
	return out
}

func (s *Server) projectSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProject(w, r)
	if !ok {
		return
	}
	invoiced := sumTotals(s.linkedInvoices(p.rec.ID, 0))
	budget := p.rec.TotalBudget
	progress := 0.0
	if budget > 0 {
		progress = invoiced / budget * 100
	}
	var customer any = map[string]any{}
	if c, ok := s.customers[p.rec.CustomerID]; ok {
		customer = c
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"project":  p.rec,
		"customer": customer,
		"financial": map[string]any{
			"total_budget": budget, "invoiced_total": invoiced,
			"remaining": budget - invoiced, "progress_percent": progress,
		},
		"milestones": s.withInvoiced(p),
	})
}

func (s *Server) projectInvoices(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProject(w, r)
	if !ok {
		return
	}
	type milestoneRef struct {
		ID    int64  `json:"id"`
		No    int    `json:"milestone_no"`
		Label string `json:"label"`
	}
	type row struct {
		ID        int64         `json:"id"`
		Number    string        `json:"invoice_number"`
		Status    string        `json:"status"`
		Total     float64       `json:"total"`
		IssueDate time.Time     `json:"issue_date"`
		Milestone *milestoneRef `json:"milestone,omitempty"`
	}
	out := []row{}
	for _, rec := range s.docs[billing.KindInvoice] {
		if rec.ProjectID == nil || *rec.ProjectID != p.rec.ID {
			continue
		}
		it := row{ID: rec.ID, Number: rec.InvoiceNumber, Status: rec.Status, Total: rec.Total, IssueDate: rec.IssueDate}
		if rec.MilestoneID != nil {
			for _, m := range p.milestones {
				if m.ID == *rec.MilestoneID {
					it.Milestone = &milestoneRef{ID: m.ID, No: m.No, Label: m.Label}
				}
			}
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	httpx.JSON(w, http.StatusOK, out)
}

func (s *Server) projectMilestones(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.findProject(w, r); ok {
		httpx.JSON(w, http.StatusOK, s.withInvoiced(p))
	}
}

func (s *Server) addMilestone(w http.ResponseWriter, r *http.Request) {
	var m billing.Milestone
	if err := httpx.DecodeJSON(r, &m); err != nil || strings.TrimSpace(m.Label) == "" {
		httpx.Detail(w, http.StatusUnprocessableEntity, "label is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProject(w, r)
	if !ok {
		return
	}
	m = s.newMilestone(p.rec.ID, len(p.milestones), m)
	p.milestones = append(p.milestones, m)
	httpx.JSON(w, http.StatusCreated, m)
}
