package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"subtrack/internal/cache"
	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/middleware/ratelimit"
	"subtrack/internal/middleware/security"
	"subtrack/internal/middleware/trace"
	"subtrack/internal/services"
	"subtrack/internal/store"
)

// Deps are the services the handlers delegate to.
type Deps struct {
	Subscriptions *services.SubscriptionService
	Expenses      *services.ExpenseService
	Settings      *services.SettingsService
	Notifications *services.NotificationService
	Analytics     *services.AnalyticsService
	Data          *services.DataService
	Store         store.Store
}

// NewDeps wires every service over st. pub may be nil.
func NewDeps(st store.Store, pub services.Publisher) Deps {
	subs := services.NewSubscriptionService(st, pub)
	exps := services.NewExpenseService(st, pub)
	settings := services.NewSettingsService(st, pub)
	return Deps{
		Subscriptions: subs,
		Expenses:      exps,
		Settings:      settings,
		Notifications: services.NewNotificationService(st, settings),
		Analytics:     services.NewAnalyticsService(subs, exps),
		Data:          services.NewDataService(subs, exps, settings, pub),
		Store:         st,
	}
}

// Options tunes the transport layer.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	DashboardCacheTTL  time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	deps     Deps
	validate *validator.Validate
	logger   *applog.Logger
	now      func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	caches         *cache.Manager
	dashboardCache *cache.LRUCache[core.DashboardSummary]
	breakdownCache *cache.LRUCache[[]core.CategoryAmount]
	topCache       *cache.LRUCache[[]topSubscription]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:     deps,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector:       security.NewDetector(),
		caches:         cache.NewManager(),
		dashboardCache: cache.NewLRUCache[core.DashboardSummary](1, opts.DashboardCacheTTL),
		breakdownCache: cache.NewLRUCache[[]core.CategoryAmount](1, opts.DashboardCacheTTL),
		topCache:       cache.NewLRUCache[[]topSubscription](32, opts.DashboardCacheTTL),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, applog.NewStructuredLogger(logger))

	s.caches.Register(s.dashboardCache)
	s.caches.Register(s.breakdownCache)
	s.caches.Register(s.topCache)
	if opts.DashboardCacheTTL > 0 {
		s.caches.StartCleanup(10 * time.Minute)
	}

	s.Handler = s.routes(opts.CORSAllowedOrigins)
	return s
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	api := http.NewServeMux()

	handle(api, "/api/{$}", map[string]http.HandlerFunc{
		http.MethodGet: s.handleBanner,
	})

	handle(api, "/api/subscriptions", map[string]http.HandlerFunc{
		http.MethodGet:  s.handleListSubscriptions,
		http.MethodPost: s.handleCreateSubscription,
	})
	handle(api, "/api/subscriptions/{id}", map[string]http.HandlerFunc{
		http.MethodGet:    s.handleGetSubscription,
		http.MethodPut:    s.handleUpdateSubscription,
		http.MethodDelete: s.handleDeleteSubscription,
	})

	handle(api, "/api/expenses", map[string]http.HandlerFunc{
		http.MethodGet:  s.handleListExpenses,
		http.MethodPost: s.handleCreateExpense,
	})
	handle(api, "/api/expenses/{id}", map[string]http.HandlerFunc{
		http.MethodGet:    s.handleGetExpense,
		http.MethodPut:    s.handleUpdateExpense,
		http.MethodDelete: s.handleDeleteExpense,
	})

	handle(api, "/api/dashboard", map[string]http.HandlerFunc{
		http.MethodGet: s.handleDashboard,
	})
	handle(api, "/api/analytics/category-breakdown", map[string]http.HandlerFunc{
		http.MethodGet: s.handleCategoryBreakdown,
	})
	handle(api, "/api/analytics/top-subscriptions", map[string]http.HandlerFunc{
		http.MethodGet: s.handleTopSubscriptions,
	})

	handle(api, "/api/settings", map[string]http.HandlerFunc{
		http.MethodGet: s.handleGetSettings,
		http.MethodPut: s.handleUpdateSettings,
	})
	handle(api, "/api/notifications/subscription/{id}", map[string]http.HandlerFunc{
		http.MethodGet: s.handleGetNotificationSettings,
		http.MethodPut: s.handleUpdateNotificationSettings,
	})
	handle(api, "/api/notifications/scheduled", map[string]http.HandlerFunc{
		http.MethodGet: s.handleScheduledNotifications,
	})

	handle(api, "/api/demo-data", map[string]http.HandlerFunc{
		http.MethodPost: s.handleDemoData,
	})
	handle(api, "/api/export/json", map[string]http.HandlerFunc{
		http.MethodGet: s.handleExportJSON,
	})
	handle(api, "/api/export/csv", map[string]http.HandlerFunc{
		http.MethodGet: s.handleExportCSV,
	})
	handle(api, "/api/import/json", map[string]http.HandlerFunc{
		http.MethodPost: s.handleImportJSON,
	})
	handle(api, "/api/data/all", map[string]http.HandlerFunc{
		http.MethodDelete: s.handleResetAll,
	})

	api.HandleFunc("/", s.handleNotFound)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/", limited)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         600,
	})

	var h http.Handler = root
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	h = c.Handler(h)
	h = s.tracer.Middleware(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return h
}

// handle registers one pattern per method plus a method-less fallback that
// answers 405 with the allowed set.
func handle(mux *http.ServeMux, path string, methods map[string]http.HandlerFunc) {
	allowed := make([]string, 0, len(methods))
	for method, h := range methods {
		mux.HandleFunc(method+" "+path, h)
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError(allow).Write(w)
	})
}

// invalidate drops the cached aggregates after a mutation.
func (s *Server) invalidate() {
	s.dashboardCache.Clear()
	s.breakdownCache.Clear()
	s.topCache.Clear()
}

// writeError maps err onto the error envelope and logs it once.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := applog.FromContext(r.Context())

	var appErr *core.Error
	if !errors.As(err, &appErr) {
		logger.ErrorContext(r.Context(), "Unhandled request error",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusInternalServerError, core.CodeInternal,
			"An unexpected error occurred", nil).Write(w)
		return
	}

	status := statusForKind(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldErrorCode, appErr.Code,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldErrorCode, appErr.Code,
			"message", appErr.Message,
			applog.FieldPath, r.URL.Path)
	}

	code := appErr.Code
	if code == "" {
		code = core.CodeInternal
	}
	ErrorResponse(status, code, appErr.Message, appErr.Details).Write(w)
}

func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	RateLimitedError().Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusNotFound, core.CodeNotFound, "route not found",
		map[string]any{"path": r.URL.Path}).Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
