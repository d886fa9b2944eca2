package stats

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apex"

const (
	GrantMembership = "membership"
	GrantAdmin      = "admin"
)

type StatsProvider interface {
	UserRegistered()
	LoginAttempt(success bool)
	MessagePosted()
	MessageDeleted()
	PrivilegeGranted(kind string)
	FeedSubscriberAdded()
	FeedSubscriberRemoved()
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// StatsUpdater collects metrics into its own registry so several instances
// can coexist in one process.
type StatsUpdater struct {
	registry *prometheus.Registry

	usersRegistered  prometheus.Counter
	logins           *prometheus.CounterVec
	messagesPosted   prometheus.Counter
	messagesDeleted  prometheus.Counter
	privilegeGrants  *prometheus.CounterVec
	feedSubscribers  prometheus.Gauge
	requestDurations *prometheus.HistogramVec
}

// NewStatsUpdater creates a new stats updater and mounts its exposition
// handler on GET /metrics.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		registry: prometheus.NewRegistry(),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Number of successful registrations.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		messagesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_posted_total",
			Help:      "Number of messages posted.",
		}),
		messagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deleted_total",
			Help:      "Number of messages deleted by admins.",
		}),
		privilegeGrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "privilege_grants_total",
			Help:      "Membership and admin grants.",
		}, []string{"kind"}),
		feedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_subscribers",
			Help:      "Currently connected live feed subscribers.",
		}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	su.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		su.usersRegistered,
		su.logins,
		su.messagesPosted,
		su.messagesDeleted,
		su.privilegeGrants,
		su.feedSubscribers,
		su.requestDurations,
	)

	if mux != nil {
		mux.Handle("GET /metrics", su.Handler())
	}

	return su
}

func (su *StatsUpdater) Handler() http.Handler {
	return promhttp.HandlerFor(su.registry, promhttp.HandlerOpts{Registry: su.registry})
}

func (su *StatsUpdater) UserRegistered() {
	su.usersRegistered.Inc()
}

func (su *StatsUpdater) LoginAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	su.logins.WithLabelValues(result).Inc()
}

func (su *StatsUpdater) MessagePosted() {
	su.messagesPosted.Inc()
}

func (su *StatsUpdater) MessageDeleted() {
	su.messagesDeleted.Inc()
}

func (su *StatsUpdater) PrivilegeGranted(kind string) {
	su.privilegeGrants.WithLabelValues(kind).Inc()
}

func (su *StatsUpdater) FeedSubscriberAdded() {
	su.feedSubscribers.Inc()
}

func (su *StatsUpdater) FeedSubscriberRemoved() {
	su.feedSubscribers.Dec()
}

func (su *StatsUpdater) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	su.requestDurations.
		WithLabelValues(method, route, strconv.Itoa(status)).
		Observe(elapsed.Seconds())
}
