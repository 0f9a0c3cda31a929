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

// lookup resolves {kind} and {id}; it writes the error response itself.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (billing.Kind, *Record, bool) {
	kind, ok := billing.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		httpx.Detail(w, http.StatusNotFound, "Not Found")
		return "", nil, false
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	rec, ok := s.docs[kind][id]
	if !ok {
		httpx.Detail(w, http.StatusNotFound, kind.Label()+" not found")
		return kind, nil, false
	}
	return kind, rec, true
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	kind, ok := billing.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		httpx.Detail(w, http.StatusNotFound, "Not Found")
		return
	}
	s.mu.Lock()
	out := make([]Record, 0, len(s.docs[kind]))
	for _, rec := range s.docs[kind] {
		out = append(out, *rec)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	httpx.JSON(w, http.StatusOK, out)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, rec, ok := s.lookup(w, r); ok {
		httpx.JSON(w, http.StatusOK, rec)
	}
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	kind, ok := billing.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		httpx.Detail(w, http.StatusNotFound, "Not Found")
		return
	}
	var rec Record
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.Detail(w, http.StatusUnprocessableEntity, "Invalid document payload")
		return
	}
	if msg := checkRecord(kind, rec); msg != "" {
		httpx.Detail(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(kind, &rec)
	httpx.JSON(w, http.StatusCreated, rec)
}

// store assigns identity and server computed fields. Callers hold s.mu.
func (s *Server) store(kind billing.Kind, rec *Record) {
	s.nextID++
	rec.ID = s.nextID
	number := fmt.Sprintf("%s-%04d", strings.ToUpper(string(kind)[:3]), rec.ID)
	rec.InvoiceNumber, rec.QuoteNumber, rec.ReceiptNumber = "", "", ""
	switch kind {
	case billing.KindInvoice:
		rec.InvoiceNumber = number
	case billing.KindQuote:
		rec.QuoteNumber = number
	case billing.KindReceipt:
		rec.ReceiptNumber = number
	}
	rec.Status = string(billing.StatusDraft)
	rec.IssueDate = time.Now().UTC()
	recompute(kind, rec)
	s.docs[kind][rec.ID] = rec
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rec.Status != string(billing.StatusDraft) {
		httpx.Detail(w, http.StatusBadRequest, "Only draft "+string(kind)+"s can be edited.")
		return
	}
	var in Record
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Detail(w, http.StatusUnprocessableEntity, "Invalid document payload")
		return
	}
	if msg := checkRecord(kind, in); msg != "" {
		httpx.Detail(w, http.StatusBadRequest, msg)
		return
	}
	in.ID, in.InvoiceNumber, in.QuoteNumber, in.ReceiptNumber = rec.ID, rec.InvoiceNumber, rec.QuoteNumber, rec.ReceiptNumber
	in.Status, in.IssueDate = rec.Status, rec.IssueDate
	recompute(kind, &in)
	*rec = in
	httpx.JSON(w, http.StatusOK, rec)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rec.Status != string(billing.StatusDraft) {
		httpx.Detail(w, http.StatusBadRequest, "Only draft "+string(kind)+"s can be deleted. Use cancel to cancel issued "+string(kind)+"s.")
		return
	}
	delete(s.docs[kind], rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !billing.CanTransition(kind, billing.ParseStatus(rec.Status), billing.StatusIssued) {
		httpx.Detail(w, http.StatusBadRequest, "Only draft "+string(kind)+"s can be issued.")
		return
	}
	rec.Status = string(billing.StatusIssued)
	rec.IssueDate = time.Now().UTC()
	httpx.JSON(w, http.StatusOK, rec)
}

func (s *Server) cancelDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = httpx.DecodeJSON(r, &body)
	label := kind.Label()
	switch billing.ParseStatus(rec.Status) {
	case billing.StatusDraft:
		httpx.Detail(w, http.StatusBadRequest, "Draft "+string(kind)+"s should be deleted, not cancelled.")
		return
	case billing.StatusCancelled:
		httpx.Detail(w, http.StatusBadRequest, label+" is already cancelled.")
		return
	}
	if strings.TrimSpace(body.Reason) == "" {
		httpx.Detail(w, http.StatusBadRequest, "Cancellation reason is required.")
		return
	}
	now := time.Now().UTC()
	rec.Status = string(billing.StatusCancelled)
	rec.CancelReason = body.Reason
	rec.CancelledAt = &now
	httpx.JSON(w, http.StatusOK, rec)
}

func (s *Server) convertQuote(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, quote, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if kind != billing.KindQuote {
		httpx.Detail(w, http.StatusNotFound, "Not Found")
		return
	}
	if quote.ConvertedToInvoiceID != nil || quote.Status == string(billing.StatusInvoiced) {
		httpx.Detail(w, http.StatusBadRequest, "Quote already converted to invoice")
		return
	}
	if quote.Status != string(billing.StatusIssued) {
		httpx.Detail(w, http.StatusBadRequest, "Only issued quotes can be converted.")
		return
	}
	inv := *quote
	inv.LineItems = append([]LineItem(nil), quote.LineItems...)
	inv.DueDate, inv.ValidUntil = quote.ValidUntil, nil
	inv.ConvertedToInvoiceID, inv.CancelReason, inv.PDFURL = nil, "", ""
	s.store(billing.KindInvoice, &inv)

	quote.Status = string(billing.StatusInvoiced)
	quote.ConvertedToInvoiceID = &inv.ID
	httpx.JSON(w, http.StatusOK, inv)
}

func (s *Server) generatePDF(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rec.Status == string(billing.StatusCancelled) && rec.PDFURL == "" {
		httpx.Detail(w, http.StatusBadRequest, "Cancelled "+string(kind)+" PDF not available. Contact support.")
		return
	}
	if rec.PDFURL == "" {
		rec.PDFURL = fmt.Sprintf("/static/pdfs/%s_%d.pdf", kind, rec.ID)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "PDF generated successfully", "pdf_url": rec.PDFURL})
}

func (s *Server) sendEmail(w http.ResponseWriter, r *http.Request) {
	var mail SentEmail
	if err := httpx.DecodeJSON(r, &mail); err != nil || mail.Recipient == "" {
		httpx.Detail(w, http.StatusUnprocessableEntity, "recipient_email is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	mail.Kind, mail.ID = kind, rec.ID
	s.emails = append(s.emails, mail)
	s.logEmail(kind, rec, mail)
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Email sent successfully"})
}

func checkRecord(kind billing.Kind, rec Record) string {
	if strings.TrimSpace(rec.ClientName) == "" && strings.TrimSpace(rec.CompanyName) == "" && rec.CustomerID == nil {
		return "client_name is required"
	}
	if kind == billing.KindReceipt {
		if rec.Amount <= 0 {
			return "Amount must be greater than zero"
		}
		return ""
	}
	if len(rec.LineItems) == 0 {
		return "At least one line item is required"
	}
	return ""
}

func recompute(kind billing.Kind, rec *Record) {
	if kind == billing.KindReceipt {
		rec.Subtotal, rec.Total = rec.Amount, rec.Amount
		return
	}
	items := make([]billing.LineItem, len(rec.LineItems))
	for i, li := range rec.LineItems {
		items[i] = billing.LineItem{Quantity: li.Quantity, UnitPrice: li.UnitPrice, Discount: li.Discount}
		rec.LineItems[i].ID = int64(i + 1)
		rec.LineItems[i].Total = billing.Round2(billing.LineTotal(items[i]))
	}
	t := billing.ComputeTotals(items, rec.Discount, rec.Tax)
	rec.Subtotal, rec.Total = billing.Round2(t.Subtotal), billing.Round2(t.Total)
}
