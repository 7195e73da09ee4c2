// Package metrics defines and registers all custom Prometheus metrics for the
// rolegate client. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry on package init; the
// shell server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rolegate"

// ── Gateway metrics ───────────────────────────────────────────────────────────

// GatewayRequestsTotal counts backend calls.
// Labels:
//   - operation: gateway operation (e.g. "login", "list_users")
//   - outcome: "ok" or the normalized error kind (e.g. "forbidden", "transport")
var GatewayRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Total number of backend requests, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// GatewayRequestDuration measures backend round-trip time.
// Label:
//   - operation: gateway operation
var GatewayRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Duration of backend requests from send to decoded response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionTransitionsTotal counts auth state changes.
// Labels:
//   - to: "authenticated" or "anonymous"
//   - reason: "login", "logout", "invalidated"
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session state transitions.",
	},
	[]string{"to", "reason"},
)

// ViewRedirectsTotal counts navigation requests that were corrected.
// Labels:
//   - requested: the view asked for
//   - resolved: the view shown instead
var ViewRedirectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_redirects_total",
		Help:      "Total number of navigation requests substituted by the access controller.",
	},
	[]string{"requested", "resolved"},
)

// ── Roster metrics ────────────────────────────────────────────────────────────

// RosterMutationsTotal counts admin mutations issued from the roster.
// Labels:
//   - action: "change_role" or "toggle_status"
//   - result: "applied", "rejected", "pending", "failed"
var RosterMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roster_mutations_total",
		Help:      "Total number of roster mutations, by action and result.",
	},
	[]string{"action", "result"},
)

// RosterSize tracks the number of cached roster entries.
var RosterSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "roster_entries",
		Help:      "Current number of entries in the roster cache.",
	},
)
