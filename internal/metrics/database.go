package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBPoolConnections reports pgxpool connection counts by state:
	// total, acquired, idle, constructing and max.
	DBPoolConnections = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_connections",
			Help:      "Database pool connections by state",
		},
		[]string{"state"},
	)

	DBPoolEmptyAcquires = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_empty_acquires",
			Help:      "Cumulative acquires that had to wait for a connection",
		},
	)

	DBQueryDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Repository operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Repository operation failures by type",
		},
		[]string{"operation", "error_type"},
	)
)

// PoolStatter is the part of *pgxpool.Pool the collector reads.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// DBCollector samples pool statistics on an interval.
type DBCollector struct {
	pool     PoolStatter
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewDBCollector accepts a nil pool, in which case it samples nothing.
func NewDBCollector(pool PoolStatter) *DBCollector {
	return &DBCollector{
		pool:     pool,
		stopChan: make(chan struct{}),
	}
}

// Start samples every interval until ctx is done or Stop is called.
func (c *DBCollector) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *DBCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *DBCollector) collect() {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()
	if stat == nil {
		return
	}

	DBPoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	DBPoolConnections.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	DBPoolConnections.WithLabelValues("constructing").Set(float64(stat.ConstructingConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
	DBPoolEmptyAcquires.Set(float64(stat.EmptyAcquireCount()))
}

// RecordQuery records latency and failures of one repository operation:
//
//	defer metrics.RecordQuery("feedback_create", time.Now(), &err)
func RecordQuery(operation string, start time.Time, errp *error) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if errp == nil || *errp == nil {
		return
	}
	errorType := "query_error"
	switch {
	case errors.Is(*errp, context.Canceled):
		errorType = "canceled"
	case errors.Is(*errp, context.DeadlineExceeded):
		errorType = "timeout"
	}
	DBErrors.WithLabelValues(operation, errorType).Inc()
}
