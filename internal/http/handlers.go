package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"shareledger/internal/core"
	"shareledger/internal/log"
	"shareledger/internal/report"
)

const (
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	contentTypeHTML     = "text/html; charset=utf-8"

	// readTimeout bounds a reconciliation triggered by a request.
	readTimeout = 20 * time.Second
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Text("text/plain; charset=utf-8", "ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.errors.LogError(r.Context(), "Readiness check failed", err, log.OpReady, nil)
			ServiceUnavailableError("backend not ready").Write(w)
			return
		}
	}
	NewResponse().Text("text/plain; charset=utf-8", "ready").Write(w)
}

type periodsResponse struct {
	Periods []string `json:"periods"`
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	periods, err := s.reports.Periods(ctx)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	if periods == nil {
		periods = []string{}
	}
	NewResponse().JSON(periodsResponse{Periods: periods}).Write(w)
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.loadPeriod(w, r)
	if !ok {
		return
	}
	NewResponse().JSON(summary).Write(w)
}

func (s *Server) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.loadPeriod(w, r)
	if !ok {
		return
	}
	md, err := report.RenderPeriod(summary)
	if err != nil {
		s.writeError(w, r, err, log.OpRender)
		return
	}
	s.writeReport(w, r, "Expense Report "+summary.Period, md)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, ok := s.loadOverview(w, r)
	if !ok {
		return
	}
	NewResponse().JSON(overview).Write(w)
}

func (s *Server) handleOverviewReport(w http.ResponseWriter, r *http.Request) {
	overview, ok := s.loadOverview(w, r)
	if !ok {
		return
	}
	md, err := report.RenderOverview(overview)
	if err != nil {
		s.writeError(w, r, err, log.OpRender)
		return
	}
	s.writeReport(w, r, "Expense Overview", md)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		ErrorResponse(http.StatusMethodNotAllowed, "recording is disabled").Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	e, err := ParseExpense(p)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	receipt, err := s.recorder.AddExpense(r.Context(), e)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/periods/"+receipt.Period).
		JSON(receipt).
		Write(w)
}

func (s *Server) handleCreateContribution(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		ErrorResponse(http.StatusMethodNotAllowed, "recording is disabled").Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	c, err := ParseContribution(p)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	receipt, err := s.recorder.AddContribution(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/periods/"+receipt.Period).
		JSON(receipt).
		Write(w)
}

// loadPeriod resolves {period} through the cache, writing an error
// response and returning false on failure.
func (s *Server) loadPeriod(w http.ResponseWriter, r *http.Request) (core.PeriodSummary, bool) {
	period, err := periodParam(r)
	if err != nil {
		s.writeError(w, r, err, log.OpReconcile)
		return core.PeriodSummary{}, false
	}
	if summary, found := s.summaryCache.Get(period); found {
		s.logger.DebugContext(r.Context(), "Summary cache hit", log.FieldPeriod, period)
		return summary, true
	}

	gen := s.summaryGeneration(period)
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	summary, err := s.reports.PeriodSummary(ctx, period)
	if err != nil {
		s.writeError(w, r, err, log.OpReconcile)
		return core.PeriodSummary{}, false
	}
	s.storeSummary(period, gen, summary)
	return summary, true
}

func (s *Server) loadOverview(w http.ResponseWriter, r *http.Request) (core.OverviewSummary, bool) {
	if overview, found := s.overviewCache.Get(overviewKey); found {
		s.logger.DebugContext(r.Context(), "Overview cache hit")
		return overview, true
	}

	gen := s.overviewGeneration()
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	overview, err := s.reports.Overview(ctx)
	if err != nil {
		s.writeError(w, r, err, log.OpAggregate)
		return core.OverviewSummary{}, false
	}
	s.storeOverview(gen, overview)
	return overview, true
}

// writeReport sends markdown, or an HTML page when ?format=html.
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, title, md string) {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "md", "markdown":
		NewResponse().Text(contentTypeMarkdown, md).Write(w)
	case "html":
		body, err := report.ToHTML(md)
		if err != nil {
			s.writeError(w, r, err, log.OpRender)
			return
		}
		NewResponse().Text(contentTypeHTML, htmlPage(title, body)).Write(w)
	default:
		BadRequestError("unknown format, want md or html").Write(w)
	}
}

func htmlPage(title, body string) string {
	return fmt.Sprintf("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n"+
		"<style>body{font-family:sans-serif;max-width:60rem;margin:2rem auto}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.25rem .5rem}</style>\n"+
		"</head>\n<body>\n%s</body>\n</html>\n", template.HTMLEscapeString(title), body)
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, errBadBody):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrInvalidPeriod):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrMissingPeriodData):
		NotFoundError(err.Error()).Write(w)
	case core.IsValidationError(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		s.errors.LogError(r.Context(), "Request timed out", err, op, nil)
		ErrorResponse(http.StatusGatewayTimeout, "request timed out").Write(w)
	default:
		s.errors.LogError(r.Context(), "Request failed", err, op, nil)
		InternalServerError("internal error").Write(w)
	}
}
