package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leaguehub"

// Result labels shared by the outcome counters.
const (
	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultRateLimited = "rate_limited"
	ResultDuplicate   = "duplicate"
)

// Recorder owns the service's Prometheus collectors. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	invites        *prometheus.CounterVec
	paymentIntents *prometheus.CounterVec
	productsSynced prometheus.Counter
	jobRuns        *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_invites_total",
			Help:      "Team invite attempts by result.",
		}, []string{"result"}),
		paymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intents_total",
			Help:      "Payment intent creations by result.",
		}, []string{"result"}),
		productsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_synced_total",
			Help:      "Products upserted from the payment provider.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
	}

	reg.MustRegister(r.requests, r.requestLatency, r.invites, r.paymentIntents, r.productsSynced, r.jobRuns)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (r *Recorder) Invite(result string) {
	if r == nil {
		return
	}
	r.invites.WithLabelValues(result).Inc()
}

func (r *Recorder) PaymentIntent(result string) {
	if r == nil {
		return
	}
	r.paymentIntents.WithLabelValues(result).Inc()
}

func (r *Recorder) ProductsSynced(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.productsSynced.Add(float64(n))
}

func (r *Recorder) JobRun(job, result string) {
	if r == nil {
		return
	}
	r.jobRuns.WithLabelValues(job, result).Inc()
}
