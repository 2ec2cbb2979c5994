// Package metrics registers the Prometheus collectors the verification
// service exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildsTotal counts completed Builder.Build invocations.
	BuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pkgsign",
		Name:      "builds_total",
		Help:      "Total number of packages built.",
	})

	// VerifiesTotal counts Verify invocations, partitioned by outcome.
	VerifiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pkgsign",
		Name:      "verifies_total",
		Help:      "Total number of package verifications, by outcome.",
	}, []string{"outcome"})

	// PolicyRejectionsTotal counts policy rejections, partitioned by kind.
	PolicyRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pkgsign",
		Name:      "policy_rejections_total",
		Help:      "Total number of verification policy rejections, by PolicyError kind.",
	}, []string{"kind"})

	// ResignsTotal counts completed self-signed certificate renewals.
	ResignsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pkgsign",
		Name:      "resigns_total",
		Help:      "Total number of automatic self-signed certificate renewals.",
	})

	// VerifyDuration observes wall-clock time the HTTP verify handler
	// spends on each request, upload buffering included.
	VerifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pkgsign",
		Name:      "verify_duration_seconds",
		Help:      "Time spent verifying a package.",
		Buckets:   prometheus.DefBuckets,
	})
)
