package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes recorded on the submissions counter.
const (
	OutcomeCreated       = "created"
	OutcomeInvalid       = "invalid"
	OutcomeUploadFailed  = "upload_failed"
	OutcomeHashingFailed = "hashing_failed"
	OutcomeConflict      = "conflict"
	OutcomePersistFailed = "persist_failed"
)

// Orphan cleanup outcomes.
const (
	CleanupDeleted = "deleted"
	CleanupFailed  = "failed"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics provides observability for the registration module.
// Tracks submission outcomes, deletions and the duration of the
// upload and persist steps.
type Metrics struct {
	Submissions     *prometheus.CounterVec
	OrphanCleanups  *prometheus.CounterVec
	Deleted         prometheus.Counter
	UploadDuration  prometheus.Histogram
	PersistDuration prometheus.Histogram
	ListDuration    prometheus.Histogram
}

// New registers the registration metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "realform_registration_submissions_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		OrphanCleanups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "realform_registration_orphan_cleanups_total",
			Help: "Best-effort deletions of uploaded pictures whose record was not persisted",
		}, []string{"outcome"}),
		Deleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "realform_registrations_deleted_total",
			Help: "Registrations deleted by an administrator",
		}),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "realform_registration_upload_duration_seconds",
			Help:    "Duration of profile picture uploads",
			Buckets: durationBuckets,
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "realform_registration_persist_duration_seconds",
			Help:    "Duration of registration inserts",
			Buckets: durationBuckets,
		}),
		ListDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "realform_registration_list_duration_seconds",
			Help:    "Duration of admin listing queries",
			Buckets: durationBuckets,
		}),
	}
}

// IncrementSubmission records one submission with the given outcome.
func (m *Metrics) IncrementSubmission(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

// IncrementOrphanCleanup records one cleanup attempt.
func (m *Metrics) IncrementOrphanCleanup(outcome string) {
	m.OrphanCleanups.WithLabelValues(outcome).Inc()
}

// IncrementDeleted records a successful deletion.
func (m *Metrics) IncrementDeleted() {
	m.Deleted.Inc()
}

// ObserveUpload records the duration of an upload.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpload(start time.Time) {
	m.UploadDuration.Observe(time.Since(start).Seconds())
}

// ObservePersist records the duration of a store insert.
func (m *Metrics) ObservePersist(start time.Time) {
	m.PersistDuration.Observe(time.Since(start).Seconds())
}

// ObserveList records the duration of a listing query.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}
