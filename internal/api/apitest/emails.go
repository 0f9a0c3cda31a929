package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/platform/httpx"
)

type emailLog struct {
	ID             int64        `json:"id"`
	Kind           billing.Kind `json:"email_type"`
	DocumentID     int64        `json:"document_id"`
	DocumentNumber string       `json:"document_number"`
	Recipient      string       `json:"recipient_email"`
	Subject        string       `json:"subject"`
	Message        string       `json:"message,omitempty"`
	PDFURL         string       `json:"pdf_url,omitempty"`
	SentAt         time.Time    `json:"sent_at"`
	CustomerID     *int64       `json:"customer_id,omitempty"`
	Telephone1     string       `json:"telephone1,omitempty"`
	ClientName     string       `json:"client_name,omitempty"`
	CompanyName    string       `json:"company_name,omitempty"`
	TotalAmount    float64      `json:"total_amount"`
}

// logEmail snapshots the document at send time. Callers hold s.mu.
func (s *Server) logEmail(kind billing.Kind, rec *Record, mail SentEmail) {
	s.nextID++
	s.emailLogs = append(s.emailLogs, emailLog{
		ID:             s.nextID,
		Kind:           kind,
		DocumentID:     rec.ID,
		DocumentNumber: rec.InvoiceNumber + rec.QuoteNumber + rec.ReceiptNumber,
		Recipient:      mail.Recipient,
		Subject:        mail.Subject,
		Message:        mail.Message,
		PDFURL:         rec.PDFURL,
		SentAt:         time.Now().UTC(),
		Telephone1:     rec.Telephone1,
		ClientName:     rec.ClientName,
		CompanyName:    rec.CompanyName,
		TotalAmount:    rec.Total,
	})
}

// history returns the logs accepted by keep, newest first, each linked to
// the customer owning its telephone number. Callers hold s.mu.
func (s *Server) history(keep func(emailLog) bool) []emailLog {
	out := []emailLog{}
	for _, l := range s.emailLogs {
		if !keep(l) {
			continue
		}
		l.CustomerID = nil
		for _, c := range s.customers {
			if l.Telephone1 != "" && c.Telephone1 == l.Telephone1 {
				id := c.ID
				l.CustomerID = &id
				break
			}
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Server) customerEmailHistory(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		httpx.Detail(w, http.StatusNotFound, "Customer not found")
		return
	}
	httpx.JSON(w, http.StatusOK, s.history(func(l emailLog) bool {
		return c.Telephone1 != "" && l.Telephone1 == c.Telephone1
	}))
}

func (s *Server) allEmailHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	httpx.JSON(w, http.StatusOK, s.history(func(emailLog) bool { return true }))
}
