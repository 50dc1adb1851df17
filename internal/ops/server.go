// Package ops serves the operational HTTP surface: health, metrics, and a
// read-only snapshot of monitor status. The admin API proper lives in a
// separate service; nothing here mutates state.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/watch"
)

// EntityStatus is one row of the /status response.
type EntityStatus struct {
	Kind      watch.Kind `json:"kind"`
	ID        string     `json:"id"`
	Enabled   bool       `json:"enabled"`
	LastCheck *time.Time `json:"last_check,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Server exposes the ops endpoints.
type Server struct {
	store    watch.Store
	registry prometheus.Gatherer
	logger   *zap.Logger
}

// NewServer wires the handler dependencies.
func NewServer(st watch.Store, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: st, registry: gatherer, logger: logger}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.collectStatuses(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statuses); err != nil {
		s.logger.Warn("encode status response", zap.Error(err))
	}
}

func (s *Server) collectStatuses(ctx context.Context) []EntityStatus {
	statuses := []EntityStatus{}

	var feeds []watch.Feed
	if err := s.store.Load(ctx, watch.CollectionFeeds, &feeds); err == nil {
		for _, f := range feeds {
			statuses = append(statuses, EntityStatus{
				Kind: watch.KindFeed, ID: f.ID, Enabled: f.Enabled,
				LastCheck: f.LastCheck, LastError: f.LastError,
			})
		}
	}
	var repos []watch.RepoWatch
	if err := s.store.Load(ctx, watch.CollectionRepos, &repos); err == nil {
		for _, rw := range repos {
			statuses = append(statuses, EntityStatus{
				Kind: watch.KindRepo, ID: rw.ID, Enabled: rw.Enabled,
				LastCheck: rw.LastCheck, LastError: rw.LastError,
			})
		}
	}
	var prices []watch.PriceWatch
	if err := s.store.Load(ctx, watch.CollectionPrices, &prices); err == nil {
		for _, pw := range prices {
			statuses = append(statuses, EntityStatus{
				Kind: watch.KindPrice, ID: pw.ID, Enabled: pw.Enabled,
				LastCheck: pw.LastCheck, LastError: pw.LastError,
			})
		}
	}
	var lotteries []watch.LotteryWatch
	if err := s.store.Load(ctx, watch.CollectionLotteries, &lotteries); err == nil {
		for _, lw := range lotteries {
			statuses = append(statuses, EntityStatus{
				Kind: watch.KindLottery, ID: lw.ID, Enabled: lw.Enabled,
				LastCheck: lw.LastCheck, LastError: lw.LastError,
			})
		}
	}
	return statuses
}
