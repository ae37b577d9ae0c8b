// Package metrics exposes the service counters scraped from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoicing",
		Name:      "login_failures_total",
		Help:      "Failed authentication attempts recorded by the rate limiter.",
	})

	Lockouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoicing",
		Name:      "login_lockouts_total",
		Help:      "Identifiers that reached the failure threshold and were locked.",
	})

	IngredientPriceChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoicing",
		Name:      "ingredient_price_changes_total",
		Help:      "Ingredient cost changes written together with a history row.",
	})

	InvoiceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invoicing",
		Name:      "invoice_operations_total",
		Help:      "Invoice mutations by operation and outcome kind.",
	}, []string{"operation", "outcome"})
)

// ObserveInvoice records the outcome of an invoice mutation. outcome is "ok" or an error kind.
func ObserveInvoice(operation, outcome string) {
	InvoiceOperations.WithLabelValues(operation, outcome).Inc()
}
