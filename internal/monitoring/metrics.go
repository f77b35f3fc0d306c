// Package monitoring exposes the service's Prometheus metrics. The
// collectors are registered once and shared; the /metrics endpoint is
// served from its own port by cmd/main.go.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the domain metric collectors.
type Metrics struct {
	OrdersSubmitted    prometheus.Counter
	OrdersCompleted    prometheus.Counter
	OrdersCancelled    prometheus.Counter
	StockRejections    prometheus.Counter
	VersionConflicts   prometheus.Counter
	LoyaltyPointsTotal prometheus.Counter
	CouponsApplied     prometheus.Counter
	LowStockItems      prometheus.Gauge
}

// NewMetrics registers the collectors with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		OrdersSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "colonial_orders_submitted_total",
			Help: "Orders accepted at checkout",
		}),
		OrdersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "colonial_orders_completed_total",
			Help: "Orders transitioned to concluido",
		}),
		OrdersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "colonial_orders_cancelled_total",
			Help: "Orders transitioned to cancelado",
		}),
		StockRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "colonial_stock_rejections_total",
			Help: "Checkout or completion attempts rejected for insufficient stock",
		}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "colonial_stock_version_conflicts_total",
			Help: "Optimistic-lock conflicts on stock adjustments",
		}),
		LoyaltyPointsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "colonial_loyalty_points_awarded_total",
			Help: "Loyalty points accrued on completed orders",
		}),
		CouponsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "colonial_coupons_applied_total",
			Help: "Coupons applied at checkout",
		}),
		LowStockItems: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "colonial_low_stock_ingredients",
			Help: "Ingredients at or below their minimum threshold",
		}),
	}
}

// NewMetricsFor registers the collectors with a caller-supplied registry.
// Tests use this to avoid duplicate registration on the default one.
func NewMetricsFor(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "colonial_orders_submitted_total",
			Help: "Orders accepted at checkout",
		}),
		OrdersCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "colonial_orders_completed_total",
			Help: "Orders transitioned to concluido",
		}),
		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "colonial_orders_cancelled_total",
			Help: "Orders transitioned to cancelado",
		}),
		StockRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "colonial_stock_rejections_total",
			Help: "Checkout or completion attempts rejected for insufficient stock",
		}),
		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "colonial_stock_version_conflicts_total",
			Help: "Optimistic-lock conflicts on stock adjustments",
		}),
		LoyaltyPointsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "colonial_loyalty_points_awarded_total",
			Help: "Loyalty points accrued on completed orders",
		}),
		CouponsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "colonial_coupons_applied_total",
			Help: "Coupons applied at checkout",
		}),
		LowStockItems: factory.NewGauge(prometheus.GaugeOpts{
			Name: "colonial_low_stock_ingredients",
			Help: "Ingredients at or below their minimum threshold",
		}),
	}
}
