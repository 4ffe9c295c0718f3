package attendance

import "github.com/prometheus/client_golang/prometheus"

var submissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rollcall_submissions_total",
		Help: "Attendance submission attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(submissionsTotal)
}

func countOutcome(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}
