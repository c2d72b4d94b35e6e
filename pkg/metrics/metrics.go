package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrganizationsProvisioned counts provisioned organizations by kind (team|personal).
	OrganizationsProvisioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonarqube_organizations_provisioned_total",
			Help: "Total number of organizations provisioned",
		},
		[]string{"kind"},
	)

	// MembershipMutations counts membership operations and their outcome (success|rejected|error).
	MembershipMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonarqube_membership_mutations_total",
			Help: "Total number of membership add/remove operations",
		},
		[]string{"operation", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sonarqube_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
