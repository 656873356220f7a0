package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AuthorizationsAllowed prometheus.Counter
	AuthorizationsDenied  *prometheus.CounterVec

	ResourcesCreated prometheus.Counter
	ResourcesDeleted prometheus.Counter
	StoreRetries     prometheus.Counter

	ScannerRuns      prometheus.Counter
	OrphansDeleted   prometheus.Counter
	DanglingRepaired prometheus.Counter

	IncidentsRecorded *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics on a custom registerer; tests pass a fresh
// registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthorizationsAllowed: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodian_authorizations_allowed_total",
			Help: "Total number of allowed authorization checks",
		}),
		AuthorizationsDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodian_authorizations_denied_total",
			Help: "Total number of denied authorization checks by reason",
		}, []string{"reason"}),
		ResourcesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodian_resources_created_total",
			Help: "Total number of resources created",
		}),
		ResourcesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodian_resources_deleted_total",
			Help: "Total number of resources deleted",
		}),
		StoreRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodian_store_retries_total",
			Help: "Total number of retried transient store failures",
		}),
		ScannerRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodian_scanner_runs_total",
			Help: "Total number of completed reconciliation passes",
		}),
		OrphansDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodian_scanner_orphans_deleted_total",
			Help: "Total number of orphan blobs deleted by the scanner",
		}),
		DanglingRepaired: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodian_scanner_dangling_repaired_total",
			Help: "Total number of dangling blob references nulled by the scanner",
		}),
		IncidentsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodian_incidents_recorded_total",
			Help: "Total number of inconsistency incidents recorded by type",
		}, []string{"type"}),
	}
}
