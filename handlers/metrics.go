package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sehatbox_orders_placed_total",
		Help: "The total number of orders placed through the gateway",
	})

	ordersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sehatbox_orders_cancelled_total",
		Help: "The total number of orders cancelled through the gateway",
	})

	bulkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sehatbox_bulk_failures_total",
		Help: "The number of per-customer failures during bulk placement",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sehatbox_request_duration_seconds",
		Help:    "Time spent handling a gateway request",
		Buckets: prometheus.DefBuckets,
	})
)

func (s *Server) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		requestDuration.Observe(time.Since(start).Seconds())
		return err
	}
}
