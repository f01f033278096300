package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"shareledger/internal/cache"
	"shareledger/internal/core"
	"shareledger/internal/log"
	"shareledger/internal/middleware/ratelimit"
	"shareledger/internal/middleware/security"
	"shareledger/internal/middleware/trace"
	"shareledger/internal/services"
)

const overviewKey = "overview"

// Deps are the collaborators a Server needs.
type Deps struct {
	Reports  *services.ReportService
	Recorder *services.RecordingService
	// Ready reports backend health for /readyz; nil means always ready.
	Ready    func(ctx context.Context) error
	Logger   *log.Logger
	CacheTTL time.Duration
	// WritesPerMinute limits POST requests per client; zero uses the default.
	WritesPerMinute int
}

// Server is the HTTP API. Reconciled periods and the overview are cached
// until a write touches them or the TTL passes.
type Server struct {
	http.Server
	reports  *services.ReportService
	recorder *services.RecordingService
	ready    func(ctx context.Context) error
	logger   *log.Logger
	errors   *log.StructuredLogger

	summaryCache  *cache.LRUCache[core.PeriodSummary]
	overviewCache *cache.LRUCache[core.OverviewSummary]
	cacheManager  *cache.Manager
	// generations count invalidations so a read that started before a
	// write never stores its result after the write invalidated it.
	genMu         sync.Mutex
	periodGen     map[string]uint64
	overviewGen   uint64
	limiter       *ratelimit.Limiter
	tracer        *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		reports:       deps.Reports,
		recorder:      deps.Recorder,
		ready:         deps.Ready,
		logger:        logger,
		errors:        log.NewStructuredLogger(logger),
		summaryCache:  cache.NewLRUCache[core.PeriodSummary](120, deps.CacheTTL),
		overviewCache: cache.NewLRUCache[core.OverviewSummary](1, deps.CacheTTL),
		cacheManager:  cache.NewManager(logger),
		periodGen:     make(map[string]uint64),
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.WritesPerMinute}),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.overviewCache)
	if deps.CacheTTL > 0 {
		s.cacheManager.StartCleanup(deps.CacheTTL)
	}
	if s.recorder != nil {
		s.recorder.OnChange(s.invalidate)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/periods", s.handleListPeriods)
	mux.HandleFunc("GET /api/periods/{period}", s.handlePeriod)
	mux.HandleFunc("GET /api/periods/{period}/report", s.handlePeriodReport)
	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/overview/report", s.handleOverviewReport)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /api/contributions", s.handleCreateContribution)

	ips := security.NewClientIPResolver()
	s.tracer = trace.NewMiddleware(logger, ips.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	}, http.MethodPost)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = security.NoStore(handler)
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// invalidate drops everything derived from period.
func (s *Server) invalidate(period string) {
	s.genMu.Lock()
	s.periodGen[period]++
	s.overviewGen++
	s.summaryCache.Delete(period)
	s.overviewCache.Purge()
	s.genMu.Unlock()
	s.logger.Debug("Cache invalidated", log.FieldPeriod, period)
}

func (s *Server) summaryGeneration(period string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.periodGen[period]
}

// storeSummary caches summary unless period was invalidated since gen.
func (s *Server) storeSummary(period string, gen uint64, summary core.PeriodSummary) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.periodGen[period] != gen {
		return false
	}
	s.summaryCache.Set(period, summary)
	return true
}

func (s *Server) overviewGeneration() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.overviewGen
}

func (s *Server) storeOverview(gen uint64, overview core.OverviewSummary) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.overviewGen != gen {
		return false
	}
	s.overviewCache.Set(overviewKey, overview)
	return true
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request counters from the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
