// Package metrics holds the Prometheus collectors of the inventory API and
// the echo middleware/handler that expose them.
//
// Wire it once in the router:
//
//	e.Use(metrics.Middleware())
//	e.GET("/metrics", metrics.Handler())
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inventory"

var (
	// RequestDuration tracks how long each HTTP request takes, by method,
	// route template and status code.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// WebhookDeliveries counts outbound publication webhooks by event type
	// and result ("delivered" | "failed").
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Outbound webhook attempts by event type and result.",
		},
		[]string{"event_type", "result"},
	)

	// StoreOperations counts remote file store calls by operation and result.
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filestore",
			Name:      "operations_total",
			Help:      "Remote file store operations by name and result.",
		},
		[]string{"operation", "result"},
	)

	// SettingsSaves counts settings document writes by result ("ok" |
	// "failed" | "conflict").
	SettingsSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settings",
			Name:      "saves_total",
			Help:      "Settings document saves by result.",
		},
		[]string{"result"},
	)

	// BreakGlassLogins counts every use of the emergency identity.
	BreakGlassLogins = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "breakglass_uses_total",
		Help:      "Authentications that went through the break-glass identity.",
	})
)

// Registry is the Prometheus registry served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RequestDuration,
		RequestTotal,
		WebhookDeliveries,
		StoreOperations,
		SettingsSaves,
		BreakGlassLogins,
	)
}

// Middleware records duration and count for every request.  The route
// template (c.Path()) is used as label, not the raw URL, to keep label
// cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			RequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			return nil
		}
	}
}

// Handler exposes the registry in the Prometheus text / OpenMetrics format.
func Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return echo.WrapHandler(h)
}

// ObserveStore records the outcome of a file store call.
func ObserveStore(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(operation, result).Inc()
}
