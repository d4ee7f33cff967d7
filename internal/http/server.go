// Package http exposes the planning services as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finplan/internal/cache"
	"finplan/internal/core"
	flog "finplan/internal/log"
	"finplan/internal/middleware/ratelimit"
	"finplan/internal/middleware/security"
	"finplan/internal/middleware/trace"
	"finplan/internal/services"
)

// Pinger reports whether the store can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server routes requests to.
type Deps struct {
	Users     *services.UserService
	Goals     *services.GoalService
	Ledger    *services.LedgerService
	Reports   *services.ReportCache
	Store     Pinger
	Formatter *core.Formatter
	Logger    *flog.Logger

	// RateLimit caps mutating requests per client per minute. Zero uses the
	// limiter default.
	RateLimit int
	// CacheCleanupInterval drives expired report eviction. Zero disables it.
	CacheCleanupInterval time.Duration
}

type Server struct {
	http.Server
	users   *services.UserService
	goals   *services.GoalService
	ledger  *services.LedgerService
	store   Pinger
	present presenter
	logger  *flog.Logger

	resolver    *security.Resolver
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	caches      *cache.Manager

	shutdownOnce sync.Once
}

// NewServer builds the router and middleware chain. The caller owns the
// listener through ListenAndServe and must call Shutdown.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = flog.New(flog.DefaultConfig()).WithComponent(flog.ComponentHTTP)
	}
	formatter := d.Formatter
	if formatter == nil {
		formatter = core.MustFormatter("en-US", "")
	}

	s := &Server{
		users:    d.Users,
		goals:    d.Goals,
		ledger:   d.Ledger,
		store:    d.Store,
		present:  presenter{f: formatter},
		logger:   logger,
		resolver: security.NewResolver(),
		caches:   cache.NewManager(),
	}
	rlCfg := ratelimit.DefaultConfig()
	if d.RateLimit > 0 {
		rlCfg.RequestsPerMinute = d.RateLimit
	}
	s.rateLimiter = ratelimit.NewLimiter(rlCfg)
	s.tracer = trace.NewMiddleware(logger, s.resolver.ClientIP)

	if d.Reports != nil {
		s.caches.Register(d.Reports.Cleaner())
		if d.CacheCleanupInterval > 0 {
			s.caches.StartCleanup(d.CacheCleanupInterval)
		}
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limitMutations(handler)
	handler = s.flagSuspicious(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Handler(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/methods", s.handleMethods)

	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("GET /api/users/{userID}", s.handleGetUser)
	mux.HandleFunc("DELETE /api/users/{userID}", s.handleDeleteUser)

	mux.HandleFunc("POST /api/users/{userID}/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/users/{userID}/transactions", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/users/{userID}/bills", s.handleCreateBill)
	mux.HandleFunc("GET /api/users/{userID}/bills", s.handleListBills)
	mux.HandleFunc("DELETE /api/bills/{id}", s.handleDeleteBill)
	mux.HandleFunc("POST /api/users/{userID}/incomes", s.handleCreateIncome)
	mux.HandleFunc("GET /api/users/{userID}/incomes", s.handleListIncomes)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.handleDeleteIncome)

	mux.HandleFunc("POST /api/users/{userID}/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/users/{userID}/goals", s.handleListGoals)
	mux.HandleFunc("GET /api/goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PATCH /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("PUT /api/goals/{id}/classifications", s.handleSetClassification)
	mux.HandleFunc("POST /api/goals/{id}/classifications/auto", s.handleAutoClassify)
	mux.HandleFunc("GET /api/goals/{id}/report", s.handleReport)
	mux.HandleFunc("POST /api/goals/{id}/months/{month}/savings", s.handleLogSavings)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
}

// limitMutations applies the rate limiter to writes only; reads stay
// unthrottled.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.resolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		flog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			flog.FieldClientIP, s.resolver.ClientIP(r),
			flog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// flagSuspicious logs requests that look like scanner traffic. They are still
// served.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.resolver.Suspicious(r) {
			flog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				flog.FieldClientIP, s.resolver.ClientIP(r),
				flog.FieldPath, r.URL.Path,
				flog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(methodViews()).Write(w)
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.caches.Stop()
		slog.InfoContext(ctx, "HTTP server shutting down",
			"requests_served", s.tracer.GetMetrics().TotalRequests,
			"rate_limited", s.rateLimiter.Rejected())
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
