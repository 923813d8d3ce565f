package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	adminRequestsTotal     *prometheus.CounterVec
	adminLatencySeconds    *prometheus.HistogramVec
	adminErrorsTotal       *prometheus.CounterVec
	surveyAssignOutcomes   *prometheus.CounterVec
	surveyResponsesTotal   *prometheus.CounterVec
	surveyAssignmentsSwept prometheus.Counter
	surveyFeedEventsTotal  *prometheus.CounterVec
	surveyLiveClients      *prometheus.GaugeVec
	surveyStatisticsCache  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for admin and survey traffic.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		surveyAssignOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_assignments_total",
			Help: "Per-student outcomes of survey assign requests.",
		}, []string{"outcome"})

		surveyResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_responses_total",
			Help: "Survey responses recorded, by submitter.",
		}, []string{"submitted_by"})

		surveyAssignmentsSwept = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "survey_assignments_expired_total",
			Help: "Pending assignments moved to expired by the sweeper.",
		})

		surveyFeedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_feed_events_total",
			Help: "Collection change signals broadcast by the survey feed.",
		}, []string{"collection", "origin"})

		surveyLiveClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "survey_live_clients",
			Help: "Connected live-view clients by transport.",
		}, []string{"transport"})

		surveyStatisticsCache = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_statistics_cache_total",
			Help: "Statistics cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			surveyAssignOutcomes,
			surveyResponsesTotal,
			surveyAssignmentsSwept,
			surveyFeedEventsTotal,
			surveyLiveClients,
			surveyStatisticsCache,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// SurveyAssignOutcomes counts created and skipped assignments.
func SurveyAssignOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return surveyAssignOutcomes
}

// SurveyResponses counts recorded responses.
func SurveyResponses() *prometheus.CounterVec {
	RegisterMetrics()
	return surveyResponsesTotal
}

// SurveyAssignmentsExpired counts assignments closed by the expiry sweep.
func SurveyAssignmentsExpired() prometheus.Counter {
	RegisterMetrics()
	return surveyAssignmentsSwept
}

// SurveyFeedEvents counts feed signals by collection and whether they came from this node.
func SurveyFeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return surveyFeedEventsTotal
}

// SurveyLiveClients tracks open websocket and SSE subscribers.
func SurveyLiveClients() *prometheus.GaugeVec {
	RegisterMetrics()
	return surveyLiveClients
}

// SurveyStatisticsCache counts cache hits and misses for statistics.
func SurveyStatisticsCache() *prometheus.CounterVec {
	RegisterMetrics()
	return surveyStatisticsCache
}
