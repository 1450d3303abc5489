package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		proofSubmissions,
		proofOutcomes,
		classifierLatency,
		rateLimitBlocks,
	)
}

var (
	proofSubmissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proof_submissions_total",
			Help: "Payment proof images received.",
		},
	)

	proofOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proof_outcomes_total",
			Help: "Terminal proof outcomes by status.",
		},
		[]string{"status"}, // verified, rejected, duplicate, provision_failed
	)

	classifierLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_latency_seconds",
			Help:    "Slip classifier call latency distribution.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"valid"},
	)

	rateLimitBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proof_rate_limit_blocks_total",
			Help: "Proof submissions blocked by the upload limiter.",
		},
	)
)

func IncProofSubmission() { proofSubmissions.Inc() }

func IncProofOutcome(status string) { proofOutcomes.WithLabelValues(norm(status)).Inc() }

func ObserveClassifierLatency(seconds float64, valid bool) {
	classifierLatency.WithLabelValues(strconv.FormatBool(valid)).Observe(seconds)
}

func IncRateLimitBlock() { rateLimitBlocks.Inc() }
