// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RecipesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_recipes_created_total",
			Help: "Total number of recipes created",
		},
	)

	MembershipsChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_memberships_changed_total",
			Help: "Favorite and shopping cart additions and removals",
		},
		[]string{"relation", "action"},
	)

	SubscriptionsChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_subscriptions_changed_total",
			Help: "Subscriptions created and removed",
		},
		[]string{"action"},
	)

	ShoppingListsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_lists_generated_total",
			Help: "Total number of shopping lists rendered",
		},
	)
)

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordMembership(relation, action string) {
	MembershipsChanged.WithLabelValues(relation, action).Inc()
}

func RecordSubscription(action string) {
	SubscriptionsChanged.WithLabelValues(action).Inc()
}

// StorageBreakerState is 0 closed, 1 half-open, 2 open.
var StorageBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "foodgram_storage_circuit_breaker_state",
		Help: "State of the image storage circuit breaker",
	},
	[]string{"name"},
)
