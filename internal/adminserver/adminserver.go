/*
Package adminserver exposes an operations HTTP surface alongside a running
Validator: health, cache inspection/purge, and Prometheus metrics.

The route and handler shape is adapted from ckit's own admin endpoints
(/cache/size, /cache DELETE): a gorilla/mux router, one handler per route,
segmentio/encoding/json for responses. gorilla/handlers wraps the router in a combined access-log
middleware the way ckit's own command-line tools set up their listeners.
*/
package adminserver

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator/internal/querycache"
)

// Controller is the subset of Validator the admin surface needs. Defined
// here, rather than imported from the root package, so this package never
// has to import it back.
type Controller interface {
	CacheStats() querycache.Stats
	ClearCache(ctx context.Context) error
	ClearNegativeCache(ctx context.Context) error
	BackendNames() []string
}

var (
	cacheClearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hallucinator_cache_clears_total",
		Help: "Number of times the query cache was purged via the admin surface.",
	})
	adminRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hallucinator_admin_requests_total",
		Help: "Admin HTTP requests served, by route.",
	}, []string{"route"})
)

// server holds the Controller and router; unexported, reached only through
// New's *http.Server.
type server struct {
	ctrl   Controller
	router *mux.Router
}

func (s *server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz())
	s.router.HandleFunc("/cache/stats", s.handleCacheStats())
	s.router.HandleFunc("/cache", s.handleCacheClear()).Methods(http.MethodDelete)
	s.router.HandleFunc("/cache/negatives", s.handleCacheClearNegatives()).Methods(http.MethodDelete)
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *server) handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminRequestsTotal.WithLabelValues("healthz").Inc()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "ok",
			"backends": s.ctrl.BackendNames(),
		})
	}
}

func (s *server) handleCacheStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminRequestsTotal.WithLabelValues("cache_stats").Inc()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.ctrl.CacheStats())
	}
}

func (s *server) handleCacheClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminRequestsTotal.WithLabelValues("cache_clear").Inc()
		if err := s.ctrl.ClearCache(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		cacheClearsTotal.Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *server) handleCacheClearNegatives() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminRequestsTotal.WithLabelValues("cache_clear_negatives").Inc()
		if err := s.ctrl.ClearNegativeCache(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// New builds an *http.Server serving the admin surface on addr, ready for
// ListenAndServe. It does not start listening itself, mirroring the way
// cmd/hallucinate owns the lifetime of every listener it opens.
func New(addr string, ctrl Controller) *http.Server {
	s := &server{ctrl: ctrl, router: mux.NewRouter()}
	s.routes()

	return &http.Server{
		Addr:         addr,
		Handler:      handlers.CombinedLoggingHandler(os.Stderr, s.router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
