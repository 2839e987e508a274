package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assistant"

type Metrics struct {
	MessagesHandled     *prometheus.CounterVec
	Escalations         *prometheus.CounterVec
	RateLimitDenials    *prometheus.CounterVec
	UnpersistedTurns    prometheus.Counter
	UpstreamFailures    *prometheus.CounterVec
	FeedbackRecorded    *prometheus.CounterVec
	SuggestionsReturned prometheus.Histogram
	HandleDuration      *prometheus.HistogramVec
}

// New registers the engine instruments on reg. Tests pass a fresh registry;
// binaries pass prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesHandled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "Messages answered, by classified intent",
		}, []string{"intent"}),
		Escalations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Conversations handed to a human",
		}, []string{"cause"}),
		RateLimitDenials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_denials_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"route"}),
		UnpersistedTurns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unpersisted_turns_total",
			Help:      "Answers returned whose turns could not be stored",
		}),
		UpstreamFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Collaborator calls that failed or timed out",
		}, []string{"collaborator"}),
		FeedbackRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_recorded_total",
			Help:      "Feedback records stored, by type",
		}, []string{"feedback_type"}),
		SuggestionsReturned: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggestions_returned",
			Help:      "Suggestions per recommendation reply",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}),
		HandleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time taken to handle a message",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
	}
}

// Nop returns instruments on a private registry that nothing scrapes.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
