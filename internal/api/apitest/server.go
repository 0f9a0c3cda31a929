// Package apitest runs an in-memory billing backend for client tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/platform/httpx"
)

// Default credentials accepted by the fake backend.
const (
	Username = "admin"
	Password = "secret"
)

// LineItem is a stored line item.
type LineItem struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// Record is a stored quote, invoice or receipt in backend JSON form.
type Record struct {
	ID            int64  `json:"id"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	QuoteNumber   string `json:"quote_number,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	Status        string `json:"status"`

	CustomerID    *int64 `json:"customer_id,omitempty"`
	ClientName    string `json:"client_name"`
	CompanyName   string `json:"company_name,omitempty"`
	ClientEmail   string `json:"client_email,omitempty"`
	Telephone1    string `json:"telephone1,omitempty"`
	Telephone2    string `json:"telephone2,omitempty"`
	ClientAddress string `json:"client_address,omitempty"`
	ClientRegNo   string `json:"client_reg_no,omitempty"`
	ClientTaxID   string `json:"client_tax_id,omitempty"`

	Discount  float64    `json:"discount"`
	Tax       float64    `json:"tax"`
	Notes     string     `json:"notes,omitempty"`
	LineItems []LineItem `json:"line_items"`
	Subtotal  float64    `json:"subtotal"`
	Total     float64    `json:"total"`

	Amount           float64 `json:"amount,omitempty"`
	PaymentMethod    string  `json:"payment_method,omitempty"`
	PaymentReference string  `json:"payment_reference,omitempty"`
	InvoiceID        *int64  `json:"invoice_id,omitempty"`

	ProjectID            *int64 `json:"project_id,omitempty"`
	MilestoneID          *int64 `json:"milestone_id,omitempty"`
	ConvertedToInvoiceID *int64 `json:"converted_to_invoice_id,omitempty"`
	CancelReason         string `json:"cancel_reason,omitempty"`
	PDFURL               string `json:"pdf_url,omitempty"`

	IssueDate   time.Time  `json:"issue_date"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// SentEmail records a send-email call.
type SentEmail struct {
	Kind      billing.Kind
	ID        int64
	Recipient string `json:"recipient_email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// Server is the fake backend. Its exported knobs may be changed between
// requests.
type Server struct {
	*httptest.Server

	// FailDuplicateCheck makes check-duplicates answer 500.
	FailDuplicateCheck atomic.Bool

	mu         sync.Mutex
	tokens     map[string]bool
	docs       map[billing.Kind]map[int64]*Record
	customers  map[int64]*billing.Customer
	projects   map[int64]*project
	emails     []SentEmail
	emailLogs  []emailLog
	nextID     int64
	hits       map[string]int
	dupQueries []string
}

// NewServer starts the fake backend; it is closed with t.Cleanup by the caller.
func NewServer() *Server {
	s := &Server{
		tokens:    map[string]bool{},
		docs:      map[billing.Kind]map[int64]*Record{},
		customers: map[int64]*billing.Customer{},
		projects:  map[int64]*project{},
		hits:      map[string]int{},
	}
	for _, k := range billing.Kinds {
		s.docs[k] = map[int64]*Record{}
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// IssueToken registers and returns a valid bearer token.
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.tokens[tok] = true
	return tok
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]bool{}
}

// Hits returns how many requests reached the route pattern.
func (s *Server) Hits(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[pattern]
}

// DuplicateQueries returns the encoded query strings of every duplicate check.
func (s *Server) DuplicateQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dupQueries...)
}

// Emails returns the send-email calls received so far.
func (s *Server) Emails() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentEmail(nil), s.emails...)
}

// Document returns a copy of a stored record.
func (s *Server) Document(kind billing.Kind, id int64) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[kind][id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// AddCustomer seeds a customer and returns its ID.
func (s *Server) AddCustomer(c billing.Customer) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now().UTC()
	s.customers[c.ID] = &c
	return c.ID
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/users/me", s.me)

			r.Get("/customers", s.listCustomers)
			r.Post("/customers", s.saveCustomer)
			r.Get("/customers/check-duplicates", s.checkDuplicates)
			r.Get("/customers/email-history/all", s.allEmailHistory)
			r.Get("/customers/{id}", s.getCustomer)
			r.Put("/customers/{id}", s.saveCustomer)
			r.Delete("/customers/{id}", s.deleteCustomer)
			r.Patch("/customers/{id}/toggle-status", s.toggleCustomer)
			r.Get("/customers/{id}/email-history", s.customerEmailHistory)

			r.Get("/projects", s.listProjects)
			r.Post("/projects", s.createProject)
			r.Get("/projects/{id}", s.getProject)
			r.Put("/projects/{id}", s.updateProject)
			r.Delete("/projects/{id}", s.deleteProject)
			r.Get("/projects/{id}/summary", s.projectSummary)
			r.Get("/projects/{id}/invoices", s.projectInvoices)
			r.Get("/projects/{id}/milestones", s.projectMilestones)
			r.Post("/projects/{id}/milestones", s.addMilestone)

			r.Route("/{kind}", func(r chi.Router) {
				r.Get("/", s.listDocuments)
				r.Post("/", s.createDocument)
				r.Get("/{id}", s.getDocument)
				r.Put("/{id}", s.updateDocument)
				r.Delete("/{id}", s.deleteDocument)
				r.Post("/{id}/issue", s.issueDocument)
				r.Post("/{id}/cancel", s.cancelDocument)
				r.Post("/{id}/generate-pdf", s.generatePDF)
				r.Post("/{id}/send-email", s.sendEmail)
				r.Post("/{id}/convert-to-invoice", s.convertQuote)
			})
		})
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
			s.mu.Lock()
			s.hits[r.Method+" "+pattern]++
			s.mu.Unlock()
		}
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		valid := ok && s.tokens[tok]
		s.mu.Unlock()
		if !valid {
			httpx.Detail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil || body.Username != Username || body.Password != Password {
		httpx.Detail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"access_token": s.IssueToken(), "token_type": "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id": 1, "email": Username + "@example.com", "role": "admin", "created_at": time.Unix(0, 0).UTC(),
	})
}

// ============================================================================
// CUSTOMERS
// ============================================================================

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(r.URL.Query().Get("search"))
	s.mu.Lock()
	out := make([]billing.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		hay := strings.ToLower(strings.Join([]string{c.Name, c.CompanyName, c.Email, c.Telephone1, c.Telephone2}, " "))
		if term == "" || strings.Contains(hay, term) {
			out = append(out, *c)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	httpx.JSON(w, http.StatusOK, out)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	c, ok := s.customers[id]
	s.mu.Unlock()
	if !ok {
		httpx.Detail(w, http.StatusNotFound, "Customer not found")
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (s *Server) saveCustomer(w http.ResponseWriter, r *http.Request) {
	var c billing.Customer
	if err := httpx.DecodeJSON(r, &c); err != nil {
		httpx.Detail(w, http.StatusUnprocessableEntity, "Invalid customer payload")
		return
	}
	if idParam := chi.URLParam(r, "id"); idParam != "" {
		id, _ := strconv.ParseInt(idParam, 10, 64)
		s.mu.Lock()
		existing, ok := s.customers[id]
		if ok {
			c.ID, c.CreatedAt = id, existing.CreatedAt
			s.customers[id] = &c
		}
		s.mu.Unlock()
		if !ok {
			httpx.Detail(w, http.StatusNotFound, "Customer not found")
			return
		}
		httpx.JSON(w, http.StatusOK, c)
		return
	}
	c.IsActive = true
	c.ID = s.AddCustomer(c)
	httpx.JSON(w, http.StatusCreated, c)
}

func (s *Server) toggleCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		httpx.Detail(w, http.StatusNotFound, "Customer not found")
		return
	}
	c.IsActive = !c.IsActive
	httpx.JSON(w, http.StatusOK, c)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		httpx.Detail(w, http.StatusNotFound, "Customer not found")
		return
	}
	delete(s.customers, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkDuplicates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	s.dupQueries = append(s.dupQueries, q.Encode())
	s.mu.Unlock()
	if s.FailDuplicateCheck.Load() {
		httpx.Detail(w, http.StatusInternalServerError, "duplicate service down")
		return
	}
	exclude, _ := strconv.ParseInt(q.Get("exclude_id"), 10, 64)
	type issue struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	warnings, errs := []issue{}, []issue{}

	s.mu.Lock()
	for _, c := range s.customers {
		if c.ID == exclude {
			continue
		}
		if p := q.Get("phone"); p != "" && (c.Telephone1 == p || c.Telephone2 == p) {
			warnings = append(warnings, issue{"phone", "Phone " + p + " is already used by " + c.DisplayName()})
		}
		if v := q.Get("vat_tic"); v != "" && c.TaxID == v {
			warnings = append(warnings, issue{"vat_tic", "VAT/TIC " + v + " is already used by " + c.DisplayName()})
		}
		if e := q.Get("email"); e != "" && strings.EqualFold(c.Email, e) {
			warnings = append(warnings, issue{"email", "Email " + e + " is already used by " + c.DisplayName()})
		}
		if reg := q.Get("reg_no"); reg != "" && c.RegNo == reg {
			errs = append(errs, issue{"reg_no", "Registration number " + reg + " belongs to " + c.DisplayName()})
		}
	}
	s.mu.Unlock()
	httpx.JSON(w, http.StatusOK, map[string]any{"warnings": warnings, "errors": errs})
}
