package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HandlerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crits_indicator_requests_total",
			Help: "Total number of indicator handler requests",
		},
		[]string{"handler", "outcome"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crits_indicator_request_duration_seconds",
			Help:    "Time taken to serve indicator handler requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	IndicatorsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crits_indicators_uploaded_total",
			Help: "Total number of indicators created or merged by uploads",
		},
		[]string{"mode", "result"},
	)

	SubRecordChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crits_indicator_subrecord_changes_total",
			Help: "Total number of action and activity changes",
		},
		[]string{"kind", "op"},
	)

	UpdateConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crits_indicator_update_conflicts_total",
			Help: "Total number of indicator updates rejected by a version conflict",
		},
	)
)

// Outcome labels for HandlerRequests
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// RecordRequest counts a handler request by outcome
func RecordRequest(handler, outcome string) {
	HandlerRequests.WithLabelValues(handler, outcome).Inc()
}

// RecordUpload counts one uploaded row by mode (csv, text, single, cli)
func RecordUpload(mode string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	IndicatorsUploaded.WithLabelValues(mode, result).Inc()
}

// RecordSubRecordChange counts an add, update or remove on actions or activity
func RecordSubRecordChange(kind, op string) {
	SubRecordChanges.WithLabelValues(kind, op).Inc()
}
