package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medreminder"

// Metrics holds the collectors for one registry. Each instance owns its
// registry so tests never collide with the process-wide Default.
type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	activeSessions atomic.Int64

	sessionsGauge    prometheus.Gauge
	sessionsOpened   prometheus.Counter
	fieldEdits       *prometheus.CounterVec
	pickerOutcomes   *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	remindersQueued  prometheus.Counter
	schedulingErrors prometheus.Counter
	deliveries       *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	requestDuration  *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
		defaultMetrics.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return defaultMetrics
}

func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),

		sessionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "form_sessions_active",
			Help: "Form sessions currently open.",
		}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "form_sessions_opened_total",
			Help: "Form sessions opened.",
		}),
		fieldEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "form_field_edits_total",
			Help: "Accepted field updates by field.",
		}, []string{"field"}),
		pickerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "picker_outcomes_total",
			Help: "Picker steps by target and outcome.",
		}, []string{"target", "outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "submissions_total",
			Help: "Submit attempts by result.",
		}, []string{"result"}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "validation_errors_total",
			Help: "Rejected submissions by error code.",
		}, []string{"code"}),
		remindersQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_scheduled_total",
			Help: "Reminders handed to the notification capability.",
		}),
		schedulingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminder_schedule_errors_total",
			Help: "Reminders the notification capability refused or failed to schedule.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminder_deliveries_total",
			Help: "Reminder deliveries by channel and result.",
		}, []string{"channel", "result"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "dispatch_tick_seconds",
			Help:    "Duration of one dispatcher tick.",
			Buckets: prometheus.DefBuckets,
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "API request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.sessionsGauge,
		m.sessionsOpened,
		m.fieldEdits,
		m.pickerOutcomes,
		m.submissions,
		m.validationErrors,
		m.remindersQueued,
		m.schedulingErrors,
		m.deliveries,
		m.dispatchDuration,
		m.requestDuration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "uptime_seconds",
			Help: "Time since the process started.",
		}, func() float64 { return time.Since(m.startTime).Seconds() }),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionOpened() {
	m.sessionsOpened.Inc()
	m.sessionsGauge.Set(float64(m.activeSessions.Add(1)))
}

func (m *Metrics) SessionClosed() {
	m.sessionsGauge.Set(float64(m.activeSessions.Add(-1)))
}

func (m *Metrics) RecordFieldEdit(field string) {
	m.fieldEdits.WithLabelValues(field).Inc()
}

func (m *Metrics) RecordPicker(target, outcome string) {
	m.pickerOutcomes.WithLabelValues(target, outcome).Inc()
}

// RecordSubmission counts one Submit call. An empty code means it was accepted.
func (m *Metrics) RecordSubmission(code string) {
	if code == "" {
		m.submissions.WithLabelValues("accepted").Inc()
		return
	}
	m.submissions.WithLabelValues("rejected").Inc()
	m.validationErrors.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordScheduled(ok bool) {
	if ok {
		m.remindersQueued.Inc()
	} else {
		m.schedulingErrors.Inc()
	}
}

func (m *Metrics) RecordDelivery(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.deliveries.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) ObserveDispatch(d time.Duration) {
	m.dispatchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(route, statusClass(status)).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	}
	return "2xx"
}

type Snapshot struct {
	Uptime         time.Duration `json:"uptime"`
	ActiveSessions int64         `json:"active_sessions"`
}

func (m *Metrics) Snapshot() *Snapshot {
	return &Snapshot{
		Uptime:         time.Since(m.startTime),
		ActiveSessions: m.activeSessions.Load(),
	}
}

func RecordFieldEdit(field string) {
	Default().RecordFieldEdit(field)
}

func RecordPicker(target, outcome string) {
	Default().RecordPicker(target, outcome)
}

func RecordSubmission(code string) {
	Default().RecordSubmission(code)
}

func Handler() http.Handler {
	return Default().Handler()
}
