package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(provisionAttempts, provisionFailures)
}

var (
	provisionAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provision_attempts_total",
			Help: "Upstream account creation attempts, retries included.",
		},
	)

	provisionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_failures_total",
			Help: "Terminal provisioning failures by class.",
		},
		[]string{"class"}, // duplicate, auth, validation, unavailable, malformed
	)
)

func IncProvisionAttempt() { provisionAttempts.Inc() }

func IncProvisionFailure(class string) { provisionFailures.WithLabelValues(norm(class)).Inc() }
