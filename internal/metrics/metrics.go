package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LifecycleEvents counts lifecycle events by name.
var LifecycleEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitdesk_lifecycle_events_total",
		Help: "Lifecycle events emitted by the plan/hold engine.",
	},
	[]string{"event"},
)

// GuardFailures counts rejected transitions by error kind.
var GuardFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitdesk_guard_failures_total",
		Help: "Lifecycle operations rejected by a guard.",
	},
	[]string{"reason"},
)
