// Package dbmetrics wraps a database.Store and records query latencies
// in Prometheus.
package dbmetrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nitpickhq/nitpick/nitpickd/database"
)

type metricsStore struct {
	s              database.Store
	queryLatencies *prometheus.HistogramVec
	txDuration     prometheus.Histogram
}

// New returns a database.Store that registers metrics for all queries to
// the given registerer.
func New(s database.Store, reg prometheus.Registerer) database.Store {
	queryLatencies := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nitpickd",
		Subsystem: "db",
		Name:      "query_latencies_seconds",
		Help:      "Latency distribution of queries in seconds.",
	}, []string{"query"})
	txDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nitpickd",
		Subsystem: "db",
		Name:      "tx_duration_seconds",
		Help:      "Duration of transactions in seconds.",
	})
	reg.MustRegister(queryLatencies)
	reg.MustRegister(txDuration)

	return &metricsStore{
		s:              s,
		queryLatencies: queryLatencies,
		txDuration:     txDuration,
	}
}

func (m *metricsStore) observe(query string, start time.Time) {
	m.queryLatencies.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func (m *metricsStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	duration, err := m.s.Ping(ctx)
	m.observe("Ping", start)
	return duration, err
}

func (m *metricsStore) InTx(fn func(database.Store) error, opts *database.TxOptions) error {
	start := time.Now()
	err := m.s.InTx(fn, opts)
	m.txDuration.Observe(time.Since(start).Seconds())
	return err
}

func (m *metricsStore) GetAPIKeyByID(ctx context.Context, id string) (database.APIKey, error) {
	start := time.Now()
	key, err := m.s.GetAPIKeyByID(ctx, id)
	m.observe("GetAPIKeyByID", start)
	return key, err
}

func (m *metricsStore) GetBugByID(ctx context.Context, id int64) (database.Bug, error) {
	start := time.Now()
	bug, err := m.s.GetBugByID(ctx, id)
	m.observe("GetBugByID", start)
	return bug, err
}

func (m *metricsStore) GetBugUserLastVisit(ctx context.Context, arg database.GetBugUserLastVisitParams) (database.BugUserLastVisit, error) {
	start := time.Now()
	visit, err := m.s.GetBugUserLastVisit(ctx, arg)
	m.observe("GetBugUserLastVisit", start)
	return visit, err
}

func (m *metricsStore) GetBugUserLastVisits(ctx context.Context, arg database.GetBugUserLastVisitsParams) ([]database.BugUserLastVisit, error) {
	start := time.Now()
	visits, err := m.s.GetBugUserLastVisits(ctx, arg)
	m.observe("GetBugUserLastVisits", start)
	return visits, err
}

func (m *metricsStore) GetBugUserLastVisitsByUserID(ctx context.Context, userID uuid.UUID) ([]database.BugUserLastVisit, error) {
	start := time.Now()
	visits, err := m.s.GetBugUserLastVisitsByUserID(ctx, userID)
	m.observe("GetBugUserLastVisitsByUserID", start)
	return visits, err
}

func (m *metricsStore) GetBugWatchers(ctx context.Context, bugID int64) ([]database.BugWatcher, error) {
	start := time.Now()
	watchers, err := m.s.GetBugWatchers(ctx, bugID)
	m.observe("GetBugWatchers", start)
	return watchers, err
}

func (m *metricsStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	start := time.Now()
	user, err := m.s.GetUserByEmail(ctx, email)
	m.observe("GetUserByEmail", start)
	return user, err
}

func (m *metricsStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	start := time.Now()
	user, err := m.s.GetUserByID(ctx, id)
	m.observe("GetUserByID", start)
	return user, err
}

func (m *metricsStore) GetUserCount(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := m.s.GetUserCount(ctx)
	m.observe("GetUserCount", start)
	return count, err
}

func (m *metricsStore) GetVisibleBugIDs(ctx context.Context, arg database.GetVisibleBugIDsParams) ([]int64, error) {
	start := time.Now()
	ids, err := m.s.GetVisibleBugIDs(ctx, arg)
	m.observe("GetVisibleBugIDs", start)
	return ids, err
}

func (m *metricsStore) InsertAPIKey(ctx context.Context, arg database.InsertAPIKeyParams) (database.APIKey, error) {
	start := time.Now()
	key, err := m.s.InsertAPIKey(ctx, arg)
	m.observe("InsertAPIKey", start)
	return key, err
}

func (m *metricsStore) InsertBug(ctx context.Context, arg database.InsertBugParams) (database.Bug, error) {
	start := time.Now()
	bug, err := m.s.InsertBug(ctx, arg)
	m.observe("InsertBug", start)
	return bug, err
}

func (m *metricsStore) InsertBugWatcher(ctx context.Context, arg database.InsertBugWatcherParams) (database.BugWatcher, error) {
	start := time.Now()
	watcher, err := m.s.InsertBugWatcher(ctx, arg)
	m.observe("InsertBugWatcher", start)
	return watcher, err
}

func (m *metricsStore) InsertUser(ctx context.Context, arg database.InsertUserParams) (database.User, error) {
	start := time.Now()
	user, err := m.s.InsertUser(ctx, arg)
	m.observe("InsertUser", start)
	return user, err
}

func (m *metricsStore) UpdateAPIKeyLastUsed(ctx context.Context, arg database.UpdateAPIKeyLastUsedParams) error {
	start := time.Now()
	err := m.s.UpdateAPIKeyLastUsed(ctx, arg)
	m.observe("UpdateAPIKeyLastUsed", start)
	return err
}

func (m *metricsStore) UpsertBugUserLastVisit(ctx context.Context, arg database.UpsertBugUserLastVisitParams) (database.BugUserLastVisit, error) {
	start := time.Now()
	visit, err := m.s.UpsertBugUserLastVisit(ctx, arg)
	m.observe("UpsertBugUserLastVisit", start)
	return visit, err
}
