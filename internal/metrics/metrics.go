package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "priceledger_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "priceledger_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"route", "method"})

	// ComparisonsServed — отданные сравнения цен, source = cache|ledger.
	ComparisonsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "priceledger_price_comparisons_total",
		Help: "Price comparisons served",
	}, []string{"source"})

	// AlertsEmitted — уведомления о достижении целевой цены, result = sent|failed.
	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "priceledger_wishlist_alerts_total",
		Help: "Wishlist target-price alerts",
	}, []string{"result"})

	// ThrottleConflicts — проигранные CAS-обновления состояния уведомлений.
	ThrottleConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "priceledger_wishlist_throttle_conflicts_total",
		Help: "Lost compare-and-swap updates of wishlist notify state",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "priceledger_wishlist_sweep_duration_seconds",
		Help:    "Duration of a full wishlist sweep",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

// Middleware считает запросы по шаблону маршрута (не по сырому пути).
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler — эндпоинт /metrics.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
