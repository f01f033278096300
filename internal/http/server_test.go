package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shareledger/internal/core"
	"shareledger/internal/records/memory"
	"shareledger/internal/services"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	for _, e := range []core.ExpenseRecord{
		{Date: "2025-06-01", Category: "Rent", PaidBy: "Both", Amount: core.MustAmount("1200")},
		{Date: "2025-06-03", Category: "Groceries", PaidBy: "PersonA", Amount: core.MustAmount("350")},
		{Date: "2025-06-05", Category: "Dining Out", PaidBy: "PersonB", Amount: core.MustAmount("220")},
	} {
		if _, err := store.AppendExpense(ctx, "2025-06", e); err != nil {
			t.Fatalf("seed expense: %v", err)
		}
	}
	for _, c := range []core.ContributionRecord{
		{Date: "2025-06-01", Name: "PersonA", Amount: core.MustAmount("1000")},
		{Date: "2025-06-01", Name: "PersonB", Amount: core.MustAmount("1000")},
	} {
		if _, err := store.AppendContribution(ctx, "2025-06", c); err != nil {
			t.Fatalf("seed contribution: %v", err)
		}
	}
	return store
}

func newTestServer(t *testing.T, store *memory.Store, ready func(context.Context) error) *Server {
	t.Helper()
	clock := func() time.Time { return time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC) }
	srv := NewServer(":0", Deps{
		Reports:  services.NewReportService(store, services.WithSkipMissing(true)),
		Recorder: services.NewRecordingService(store, services.WithClock(clock)),
		Ready:    ready,
		CacheTTL: time.Minute,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, "", ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down := newTestServer(t, memory.New(), func(context.Context) error { return errors.New("db gone") })
	if rr := do(t, down, http.MethodGet, "/readyz", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)
	rr := do(t, srv, http.MethodGet, "/healthz", "", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers: %v", rr.Header())
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id")
	}
}

func TestListPeriods(t *testing.T) {
	srv := newTestServer(t, seedStore(t), nil)
	rr := do(t, srv, http.MethodGet, "/api/periods", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var body periodsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Periods) != 1 || body.Periods[0] != "2025-06" {
		t.Fatalf("periods = %v", body.Periods)
	}

	empty := newTestServer(t, memory.New(), nil)
	rr = do(t, empty, http.MethodGet, "/api/periods", "", "")
	if strings.TrimSpace(rr.Body.String()) != `{"periods":[]}` {
		t.Fatalf("empty body = %s", rr.Body)
	}
}

func TestGetPeriod(t *testing.T) {
	srv := newTestServer(t, seedStore(t), nil)

	rr := do(t, srv, http.MethodGet, "/api/periods/2025-06", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var summary core.PeriodSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !summary.AccountBalance.Equal(core.MustAmount("800")) || !summary.Balances.Get("PersonA").Equal(core.MustAmount("465")) {
		t.Fatalf("unexpected summary: balance %s, PersonA %s", summary.AccountBalance, summary.Balances.Get("PersonA"))
	}
	if got := summary.Balances.Keys(); len(got) != 2 || got[0] != "PersonA" {
		t.Fatalf("balance keys = %v", got)
	}
}

func TestGetPeriodErrors(t *testing.T) {
	srv := newTestServer(t, seedStore(t), nil)
	tests := []struct {
		path string
		want int
	}{
		{"/api/periods/2025-13x", http.StatusBadRequest},
		{"/api/periods/2024-01", http.StatusNotFound},
		{"/api/periods/2024-01/report", http.StatusNotFound},
		{"/api/periods/2025-06/report?format=pdf", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.path, "", "")
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
		})
	}
}

func TestPeriodReportFormats(t *testing.T) {
	srv := newTestServer(t, seedStore(t), nil)

	rr := do(t, srv, http.MethodGet, "/api/periods/2025-06/report", "", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != contentTypeMarkdown {
		t.Fatalf("markdown: status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "| PersonA | 465.00 | overpaid |") {
		t.Fatalf("markdown report missing balance row:\n%s", rr.Body)
	}

	rr = do(t, srv, http.MethodGet, "/api/periods/2025-06/report?format=html", "", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != contentTypeHTML {
		t.Fatalf("html: status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "<table>") || !strings.Contains(rr.Body.String(), "<title>Expense Report 2025-06</title>") {
		t.Fatalf("html report malformed:\n%s", rr.Body)
	}
}

func TestOverview(t *testing.T) {
	srv := newTestServer(t, seedStore(t), nil)

	rr := do(t, srv, http.MethodGet, "/api/overview", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var ov core.OverviewSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ov.TotalAccountBalance.Equal(core.MustAmount("800")) || !ov.CategoryTotals.Get("Rent").Equal(core.MustAmount("1200")) {
		t.Fatalf("unexpected overview: %s / %s", ov.TotalAccountBalance, ov.CategoryTotals.Get("Rent"))
	}

	rr = do(t, srv, http.MethodGet, "/api/overview/report", "", "")
	if !strings.Contains(rr.Body.String(), "| **Total** | $800.00 |") {
		t.Fatalf("overview report missing total:\n%s", rr.Body)
	}
}

func TestCreateExpenseInvalidatesCache(t *testing.T) {
	srv := newTestServer(t, seedStore(t), nil)

	// warm both caches
	do(t, srv, http.MethodGet, "/api/periods/2025-06", "", "")
	do(t, srv, http.MethodGet, "/api/overview", "", "")

	rr := do(t, srv, http.MethodPost, "/api/expenses", "application/json",
		`{"date":"2025-06-20","category":"Rent","paid_by":"Both","amount":"100"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if got := rr.Header().Get("Location"); got != "/api/periods/2025-06" {
		t.Fatalf("Location = %q", got)
	}

	rr = do(t, srv, http.MethodGet, "/api/periods/2025-06", "", "")
	var summary core.PeriodSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !summary.TotalShared.Equal(core.MustAmount("1870")) {
		t.Fatalf("stale summary served: total %s", summary.TotalShared)
	}

	rr = do(t, srv, http.MethodGet, "/api/overview", "", "")
	var ov core.OverviewSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ov.CategoryTotals.Get("Rent").Equal(core.MustAmount("1300")) {
		t.Fatalf("stale overview served: rent %s", ov.CategoryTotals.Get("Rent"))
	}
}

// A read that computed its result before a write must not cache it after
// the write invalidated the period.
func TestReadRacingWriteDoesNotCacheStaleSummary(t *testing.T) {
	srv := newTestServer(t, seedStore(t), nil)
	ctx := context.Background()

	summaryGen := srv.summaryGeneration("2025-06")
	overviewGen := srv.overviewGeneration()
	staleSummary, err := srv.reports.PeriodSummary(ctx, "2025-06")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	staleOverview, err := srv.reports.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	rr := do(t, srv, http.MethodPost, "/api/expenses", "application/json",
		`{"date":"2025-06-20","category":"Rent","paid_by":"Both","amount":"100"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}

	if srv.storeSummary("2025-06", summaryGen, staleSummary) {
		t.Fatalf("stale summary stored after invalidation")
	}
	if srv.storeOverview(overviewGen, staleOverview) {
		t.Fatalf("stale overview stored after invalidation")
	}

	rr = do(t, srv, http.MethodGet, "/api/periods/2025-06", "", "")
	var summary core.PeriodSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !summary.TotalShared.Equal(core.MustAmount("1870")) {
		t.Fatalf("stale summary served: total %s", summary.TotalShared)
	}

	// an untouched period still caches normally
	if !srv.storeSummary("2025-05", srv.summaryGeneration("2025-05"), staleSummary) {
		t.Fatalf("summary for an untouched period should be cached")
	}
}

func TestCreateRecordsValidation(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)
	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"expense ok, date defaults to today", "/api/expenses", "application/x-www-form-urlencoded", "paid_by=Ann&amount=12.5&category=Food", http.StatusCreated},
		{"expense bad amount", "/api/expenses", "application/x-www-form-urlencoded", "paid_by=Ann&amount=abc", http.StatusUnprocessableEntity},
		{"expense missing payer", "/api/expenses", "application/json", `{"amount":"1"}`, http.StatusUnprocessableEntity},
		{"expense negative", "/api/expenses", "application/json", `{"paid_by":"Ann","amount":"-1"}`, http.StatusUnprocessableEntity},
		{"expense bad date", "/api/expenses", "application/json", `{"paid_by":"Ann","amount":"1","date":"2025-02-30"}`, http.StatusUnprocessableEntity},
		{"expense broken json", "/api/expenses", "application/json", `{"paid_by":`, http.StatusBadRequest},
		{"contribution ok", "/api/contributions", "application/json", `{"name":"Ann","amount":50,"virtual":true}`, http.StatusCreated},
		{"contribution reserved name", "/api/contributions", "application/json", `{"name":"Both","amount":"5"}`, http.StatusUnprocessableEntity},
		{"contribution empty name", "/api/contributions", "", "amount=5", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, tt.contentType, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/periods/2025-07", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("record dated today should land in 2025-07: status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)
	if rr := do(t, srv, http.MethodDelete, "/api/expenses", "", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestWriteRateLimit(t *testing.T) {
	store := memory.New()
	srv := NewServer(":0", Deps{
		Reports:         services.NewReportService(store),
		Recorder:        services.NewRecordingService(store),
		WritesPerMinute: 1,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	body := `{"paid_by":"Ann","amount":"1","date":"2025-06-01"}`
	if rr := do(t, srv, http.MethodPost, "/api/expenses", "application/json", body); rr.Code != http.StatusCreated {
		t.Fatalf("first write status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/expenses", "application/json", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("second write status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/periods", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited: status=%d", rr.Code)
	}
}
