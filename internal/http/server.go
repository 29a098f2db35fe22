// Package http exposes the JSON REST API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"soldi/internal/cache"
	"soldi/internal/core"
	"soldi/internal/middleware/ratelimit"
	"soldi/internal/middleware/security"
	"soldi/internal/middleware/trace"
)

// Store is the storage surface the handlers read from directly.
type Store interface {
	ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error)
	MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
	ListCategories(ctx context.Context) ([]string, []string, error)
	SecondariesByPrimary(ctx context.Context, primary string) ([]string, error)

	CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error)
	UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error
	GetTemplate(ctx context.Context, id int64) (*core.RecurringTemplate, error)
	ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
	ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error)

	ListNotifications(ctx context.Context, unreadOnly bool) ([]core.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Transactions records and removes transactions, evaluating budgets as a
// side effect.
type Transactions interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, *core.BudgetSnapshot, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Budgets manages category budgets.
type Budgets interface {
	Create(ctx context.Context, b core.CategoryBudget) (int64, error)
	Update(ctx context.Context, b core.CategoryBudget) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]core.CategoryBudget, error)
	Snapshot(ctx context.Context, category string, year, month int) (core.BudgetSnapshot, error)
}

// Recurring refreshes due-date caches on demand.
type Recurring interface {
	RefreshDueDates(ctx context.Context, now time.Time) (int, error)
}

// Options configures the server.
type Options struct {
	Addr              string
	RequestsPerMinute int
	CacheTTL          time.Duration
}

// Server wraps http.Server with the API's caches and middleware lifecycle.
type Server struct {
	http.Server

	store        Store
	transactions Transactions
	budgets      Budgets
	recurring    Recurring

	rateLimiter *ratelimit.Limiter
	secMetrics  *security.Metrics

	overviewCache *cache.LRUCache[core.MonthOverview]
	txCache       *cache.LRUCache[[]core.Transaction]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes, middleware and response caches, returning a
// ready-to-run server.
func NewServer(opts Options, store Store, transactions Transactions, budgets Budgets, recurring Recurring) *Server {
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	s := &Server{
		store:        store,
		transactions: transactions,
		budgets:      budgets,
		recurring:    recurring,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		secMetrics:    &security.Metrics{},
		overviewCache: cache.NewLRUCache[core.MonthOverview](100, cacheTTL),
		txCache:       cache.NewLRUCache[[]core.Transaction](200, cacheTTL),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.Register(s.txCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	tracer := trace.NewMiddleware(security.ClientIP)

	r := chi.NewRouter()
	r.Use(tracer.Handler)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(security.Detection(s.secMetrics))
	r.Use(s.rateLimiter.Middleware(security.ClientIP))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{primary}", s.handleListSecondaries)

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Put("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
			r.Get("/{category}/status", s.handleBudgetStatus)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Get("/due", s.handleDueTemplates)
			r.Post("/refresh", s.handleRefreshDueDates)
			r.Get("/{id}", s.handleGetTemplate)
			r.Put("/{id}", s.handleUpdateTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
		})

		r.Get("/overview", s.handleMonthOverview)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Post("/{id}/read", s.handleMarkNotificationRead)
		})
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Shutdown stops background cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) cacheKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateMonth(year, month int) {
	key := s.cacheKey(year, month)
	s.overviewCache.Delete(key)
	s.txCache.Delete(key)
}
