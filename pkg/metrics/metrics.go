package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docdesk", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docdesk", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	JobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docdesk", Name: "jobs_submitted_total", Help: "Number of background jobs submitted by job name."},
		[]string{"job"},
	)
	JobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docdesk", Name: "jobs_finished_total", Help: "Number of background jobs finished by job name and final status."},
		[]string{"job", "status"},
	)
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "docdesk", Name: "job_duration_seconds", Help: "Background job run time.", Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30}},
		[]string{"job"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(JobsSubmitted)
	reg.MustRegister(JobsFinished)
	reg.MustRegister(JobDuration)
}
