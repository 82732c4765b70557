package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bikelegs",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Upstream API metrics
	DirectionsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "directions",
		Name:      "requests_total",
		Help:      "Directions API requests by outcome",
	}, []string{"outcome"})

	DirectionsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bikelegs",
		Subsystem: "directions",
		Name:      "request_duration_seconds",
		Help:      "Directions API latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	SupplyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "supply",
		Name:      "requests_total",
		Help:      "Station supply feed requests by outcome",
	}, []string{"outcome"})

	// Domain metrics
	PolylineDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "legs",
		Name:      "polyline_decode_errors_total",
		Help:      "Step polylines rejected as malformed",
	})

	LegsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "legs",
		Name:      "built_total",
		Help:      "Total legs derived from directions",
	})

	TripsConverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "legs",
		Name:      "trips_converted_total",
		Help:      "Trips converted to legs by result",
	}, []string{"result"})

	StationsExported = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikelegs",
		Subsystem: "stations",
		Name:      "exported",
		Help:      "Stations written by the last refresh",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bikelegs",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikelegs",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikelegs",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikelegs",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()
		status := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pgxpool stats into the pool gauges. It takes an
// interface so this package stays free of the pgx import.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
