package http

import (
	"fmt"
	"net/http"
	"strings"

	"finanzas/internal/budget"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/middleware/trace"
)

type (
	weeksResponse struct {
		Month   string               `json:"month"`
		Weeks   []budget.WeekSummary `json:"weeks"`
		Current *budget.WeekSummary  `json:"current,omitempty"`
	}

	recordsResponse struct {
		Stream  core.Stream   `json:"stream"`
		Records []core.Record `json:"records"`
	}

	cutoffResponse struct {
		CutoffDay int `json:"cutoff_day"`
	}

	statusResponse struct {
		WeekCache          cache.Stats   `json:"week_cache"`
		RateLimitedClients int64         `json:"rate_limited_clients"`
		RateLimitHits      int64         `json:"rate_limit_hits"`
		SuspiciousRequests int64         `json:"suspicious_requests"`
		RequestIDs         trace.Metrics `json:"request_ids"`
	}
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	m := s.limiter.GetMetrics()
	writeJSON(w, http.StatusOK, statusResponse{
		WeekCache:          s.weeks.Stats(),
		RateLimitedClients: m.ClientCount,
		RateLimitHits:      m.TotalHits,
		SuspiciousRequests: s.detector.SuspiciousRequests(),
		RequestIDs:         s.tracer.GetMetrics(),
	})
}

// handleWeeks serves the weekly budget of ?month=YYYY-MM, the current month
// by default. Results are memoized per user, month and store revision.
func (s *Server) handleWeeks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := s.ledger.Today()
	year, month, err := ParseMonthParam(r.URL.Query(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := s.ledger.User(ctx)
	cacheable := user != "" && s.revisions != nil
	var rev uint64
	if cacheable {
		// taken before the load; a racing write only strands an old key
		rev = s.revisions.Revision(user)
	}

	var (
		weeks []budget.WeekSummary
		ok    bool
	)
	if cacheable {
		weeks, ok = s.weeks.Get(user, year, month, rev)
	}
	if !ok {
		weeks, err = s.ledger.WeekSummaries(ctx, year, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if cacheable {
			s.weeks.Set(user, year, month, rev, weeks)
		}
	}

	resp := weeksResponse{
		Month: fmt.Sprintf("%04d-%02d", year, month),
		Weeks: weeks,
	}
	for i := range weeks {
		if weeks[i].Bucket.Contains(today) {
			resp.Current = &weeks[i]
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	window, err := ParseMonthWindow(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := s.ledger.MonthSummaries(r.Context(), window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}

func (s *Server) handleOutlook(w http.ResponseWriter, r *http.Request) {
	outlook, err := s.ledger.InstallmentOutlook(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": outlook})
}

func (s *Server) handleRecentExpenses(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ledger.RecentExpenses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Stream: core.Expense, Records: recs})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	stream, err := core.ParseStream(r.PathValue("stream"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := s.ledger.Records(r.Context(), stream)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Stream: stream, Records: recs})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	stream, err := core.ParseStream(r.PathValue("stream"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.ledger.Add(r.Context(), stream, p.RecordForm())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetWeeks(r)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	stream, err := core.ParseStream(r.PathValue("stream"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Update(r.Context(), stream, r.PathValue("id"), p.PatchForm()); err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetWeeks(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	stream, err := core.ParseStream(r.PathValue("stream"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), stream, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetWeeks(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := s.ledger.RegisterPurchase(r.Context(), p.PurchaseForm())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetWeeks(r)
	writeJSON(w, http.StatusCreated, recordsResponse{Stream: core.Installment, Records: recs})
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	description := strings.TrimSpace(sanitizeInput(r.URL.Query().Get("description")))
	n, err := s.ledger.DeletePurchase(r.Context(), description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetWeeks(r)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleGetCutoff(w http.ResponseWriter, r *http.Request) {
	day, err := s.ledger.Cutoff(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cutoffResponse{CutoffDay: day})
}

func (s *Server) handleSetCutoff(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	day, err := p.CutoffDay()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.SetCutoff(r.Context(), day); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cutoffResponse{CutoffDay: day})
}

// forgetWeeks drops the acting user's memoized weeks. Entries are keyed by
// revision and would never be read again anyway.
func (s *Server) forgetWeeks(r *http.Request) {
	if user := s.ledger.User(r.Context()); user != "" {
		s.weeks.Forget(user)
	}
}
