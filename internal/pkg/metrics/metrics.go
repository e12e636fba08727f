package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikepaths",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bikepaths",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bikepaths",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Path matching metrics
	RouteSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikepaths",
		Subsystem: "routing",
		Name:      "searches_total",
		Help:      "Route searches by outcome (found, no_route, error)",
	}, []string{"outcome"})

	RouteCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bikepaths",
		Subsystem: "routing",
		Name:      "candidates_returned",
		Help:      "Number of ranked candidates returned per successful search",
		Buckets:   []float64{1, 2, 3},
	})

	ObstacleAssociations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikepaths",
		Subsystem: "obstacles",
		Name:      "associations_total",
		Help:      "Obstacle to segment associations by method (explicit, nearest, rejected)",
	}, []string{"method"})

	RefinementOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikepaths",
		Subsystem: "refinement",
		Name:      "outcomes_total",
		Help:      "Road refinement attempts by outcome",
	}, []string{"outcome"})

	RefinementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bikepaths",
		Subsystem: "refinement",
		Name:      "duration_seconds",
		Help:      "Duration of road snapping calls",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	StoredRefinements = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bikepaths",
		Subsystem: "refinement",
		Name:      "stored_paths_total",
		Help:      "Stored paths whose segments were replaced by the refiner worker",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikepaths",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikepaths",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikepaths",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikepaths",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikepaths",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikepaths",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	DBPoolEmptyAcquires = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikepaths",
		Subsystem: "db",
		Name:      "pool_empty_acquires",
		Help:      "Cumulative acquires that had to wait for a new connection",
	})

	DBPoolAcquireSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikepaths",
		Subsystem: "db",
		Name:      "pool_acquire_seconds",
		Help:      "Cumulative time spent acquiring connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies a pgxpool snapshot into the pool gauges.
func UpdateDBPoolMetrics(stat *pgxpool.Stat) {
	if stat == nil {
		return
	}
	DBPoolConnsAcquired.Set(float64(stat.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(stat.IdleConns()))
	DBPoolConnsOpen.Set(float64(stat.TotalConns()))
	DBPoolEmptyAcquires.Set(float64(stat.EmptyAcquireCount()))
	DBPoolAcquireSeconds.Set(stat.AcquireDuration().Seconds())
}

// CollectDBPoolMetrics refreshes the pool gauges every interval until ctx is done.
func CollectDBPoolMetrics(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			UpdateDBPoolMetrics(pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}
