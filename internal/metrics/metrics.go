// Package metrics exposes auth and donation counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	sessions      *prometheus.CounterVec
	sweep         *prometheus.CounterVec
	sweepFailures prometheus.Counter
	donations     *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediloop",
			Name:      "login_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediloop",
			Name:      "registration_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediloop",
			Name:      "session_events_total",
			Help:      "Session lifecycle events.",
		}, []string{"event"}),
		sweep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediloop",
			Name:      "sweep_removed_total",
			Help:      "Rows removed by the expiry sweep.",
		}, []string{"kind"}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediloop",
			Name:      "sweep_failures_total",
			Help:      "Sweep steps that failed.",
		}),
		donations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediloop",
			Name:      "donation_total",
			Help:      "Donation submissions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		r.logins,
		r.registrations,
		r.sessions,
		r.sweep,
		r.sweepFailures,
		r.donations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Login(outcome string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Registration(outcome string) {
	if r == nil {
		return
	}
	r.registrations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Session(event string) {
	if r == nil {
		return
	}
	r.sessions.WithLabelValues(event).Inc()
}

func (r *Recorder) SweepRemoved(kind string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.sweep.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) SweepFailed() {
	if r == nil {
		return
	}
	r.sweepFailures.Inc()
}

func (r *Recorder) Donation(outcome string) {
	if r == nil {
		return
	}
	r.donations.WithLabelValues(outcome).Inc()
}

// Handler serves the registry. A nil Recorder serves 404.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
