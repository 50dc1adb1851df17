package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/watch"
)

// ManagerConfig controls schedule reconciliation.
//   - SyncInterval: how often schedules are reconciled against the store
//     (default 30s). Creation, enable, disable and delete all take effect at
//     the next sync without restart.
//   - StartupGrace: initial delay before the first check of browser-backed
//     watch types, giving the process time to settle before Chrome launches
//     (default 15s).
//   - ItemDelay: stagger between consecutive entities of one collection so
//     the first sweep does not burst requests at a single remote host
//     (default 2s).
type ManagerConfig struct {
	SyncInterval time.Duration
	StartupGrace time.Duration
	ItemDelay    time.Duration
}

// Manager reconciles the registry against the persisted collections: it
// schedules enabled entities, reschedules on interval edits, and cancels
// entities that were disabled or deleted.
type Manager struct {
	cfg      ManagerConfig
	registry *Registry
	checks   *Checks
	store    watch.Store
	logger   *zap.Logger
}

// NewManager wires a manager.
func NewManager(cfg ManagerConfig, registry *Registry, checks *Checks, st watch.Store, logger *zap.Logger) *Manager {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 30 * time.Second
	}
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = 15 * time.Second
	}
	if cfg.ItemDelay <= 0 {
		cfg.ItemDelay = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		registry: registry,
		checks:   checks,
		store:    st,
		logger:   logger,
	}
}

// Run reconciles immediately, then on every sync interval until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	m.Sync(ctx)

	ticker := time.NewTicker(m.cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sync(ctx)
		}
	}
}

// Sync reconciles all four collections once. One collection's failure never
// stops the others.
func (m *Manager) Sync(ctx context.Context) {
	syncCollection(ctx, m, watch.CollectionFeeds, watch.KindFeed,
		func(f watch.Feed) (string, time.Duration, bool) { return f.ID, f.Interval, f.Enabled },
		m.checks.CheckFeed, 0)
	syncCollection(ctx, m, watch.CollectionRepos, watch.KindRepo,
		func(w watch.RepoWatch) (string, time.Duration, bool) { return w.ID, w.Interval, w.Enabled },
		m.checks.CheckRepo, 0)
	syncCollection(ctx, m, watch.CollectionPrices, watch.KindPrice,
		func(w watch.PriceWatch) (string, time.Duration, bool) { return w.ID, w.Interval, w.Enabled },
		m.checks.CheckPrice, 0)
	syncCollection(ctx, m, watch.CollectionLotteries, watch.KindLottery,
		func(w watch.LotteryWatch) (string, time.Duration, bool) { return w.ID, w.Interval, w.Enabled },
		m.checks.CheckLottery, m.cfg.StartupGrace)
}

func syncCollection[T any](
	ctx context.Context,
	m *Manager,
	collection string,
	kind watch.Kind,
	fields func(T) (id string, interval time.Duration, enabled bool),
	check CheckFunc,
	grace time.Duration,
) {
	entities, err := loadCollection[T](ctx, m.store, collection)
	if err != nil {
		m.logger.Error("sync: load collection failed",
			zap.String("collection", collection), zap.Error(err))
		return
	}

	want := make(map[string]struct{}, len(entities))
	position := 0
	for _, entity := range entities {
		id, interval, enabled := fields(entity)
		if id == "" || !enabled {
			continue
		}
		want[id] = struct{}{}
		// Stagger first checks across the collection; steady-state ticks
		// then drift apart naturally.
		initialDelay := grace + time.Duration(position)*m.cfg.ItemDelay
		m.registry.Schedule(kind, id, interval, initialDelay, check)
		position++
	}

	for _, id := range m.registry.Active(kind) {
		if _, ok := want[id]; !ok {
			m.logger.Info("cancelling schedule",
				zap.String("kind", string(kind)), zap.String("id", id))
			m.registry.Cancel(kind, id)
		}
	}
}
