package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/experiments-backend/internal/platform/envutil"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiErrors   *Counter

	assignments       *CounterVec
	assignmentLatency *HistogramVec
	assignmentCache   *CounterVec
	eventsRecorded    *CounterVec
	experimentsTotal  *CounterVec
	resultsLatency    *HistogramVec
	authFailures      *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

// Init installs the process-wide registry when METRICS_ENABLED is set and
// returns nil otherwise. All methods are safe on a nil *Metrics.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("exp_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"exp_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("exp_api_inflight_requests", "In-flight API requests."),
		apiErrors:   NewCounter("exp_api_requests_error_total", "Total API requests with 5xx status."),

		// experiment is the raw experiment id, so series grow with the number
		// of experiments ever served. Deleted experiments keep their series
		// until restart; scrapers should drop stale ones on their side.
		assignments: NewCounterVec(
			"exp_assignments_total",
			"Assignment lookups by experiment/variant/source (new, existing, cache).",
			[]string{"experiment", "variant", "source"},
		),
		assignmentLatency: NewHistogramVec(
			"exp_assignment_duration_seconds",
			"Assignment lookup latency in seconds by source.",
			[]string{"source"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		),
		assignmentCache: NewCounterVec("exp_assignment_cache_total", "Assignment cache lookups by result.", []string{"result"}),
		eventsRecorded:  NewCounterVec("exp_events_recorded_total", "Recorded events by type.", []string{"event_type"}),
		experimentsTotal: NewCounterVec(
			"exp_experiments_total",
			"Experiment lifecycle operations by action.",
			[]string{"action"},
		),
		resultsLatency: NewHistogramVec(
			"exp_results_duration_seconds",
			"Results aggregation latency in seconds by status.",
			[]string{"status"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		authFailures: NewCounterVec("exp_auth_failures_total", "Rejected requests by reason.", []string{"reason"}),

		dbStats:   NewGaugeVec("exp_db_pool", "Database pool stats.", []string{"stat"}),
		redisUp:   NewGauge("exp_redis_up", "Redis availability (1 up, 0 down)."),
		redisPing: NewGauge("exp_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.assignments, m.assignmentLatency, m.assignmentCache,
		m.eventsRecorded, m.experimentsTotal, m.resultsLatency, m.authFailures,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orUnknown(method)
	if route == "" {
		route = "unmatched"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if isServerErrorStatus(status) {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveAssignment records one assignment lookup. source is "new",
// "existing" or "cache".
func (m *Metrics) ObserveAssignment(experiment, variant, source string, dur time.Duration) {
	if m == nil {
		return
	}
	source = orUnknown(source)
	m.assignments.Inc(orUnknown(experiment), orUnknown(variant), source)
	m.assignmentLatency.Observe(dur.Seconds(), source)
}

// ExposureCount reads back an assignment counter.
func (m *Metrics) ExposureCount(experiment, variant, source string) float64 {
	if m == nil {
		return 0
	}
	return m.assignments.Value(orUnknown(experiment), orUnknown(variant), orUnknown(source))
}

// AssignmentCacheCount reads back the cache hit or miss counter.
func (m *Metrics) AssignmentCacheCount(hit bool) float64 {
	if m == nil {
		return 0
	}
	if hit {
		return m.assignmentCache.Value("hit")
	}
	return m.assignmentCache.Value("miss")
}

func (m *Metrics) IncAssignmentCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.assignmentCache.Inc("hit")
		return
	}
	m.assignmentCache.Inc("miss")
}

func (m *Metrics) IncEventRecorded(eventType string) {
	if m == nil {
		return
	}
	m.eventsRecorded.Inc(orUnknown(eventType))
}

func (m *Metrics) IncExperiment(action string) {
	if m == nil {
		return
	}
	m.experimentsTotal.Inc(orUnknown(action))
}

func (m *Metrics) ObserveResults(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.resultsLatency.Observe(dur.Seconds(), orUnknown(status))
}

func (m *Metrics) IncAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.Inc(orUnknown(reason))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings redis every scrape interval and records liveness
// and round-trip latency.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr, password string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	return len(status) == 3 && status[0] == '5'
}
