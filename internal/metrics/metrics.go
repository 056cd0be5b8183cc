package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yaegashi/resourceprovisioner/domain/model"
)

const namespace = "provisioner"

// Metrics records resourcing runs on a private prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	templateEvents      *prometheus.CounterVec
	runsCompleted       *prometheus.CounterVec
	runDuration         *prometheus.HistogramVec
	autoApproveAttempts *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		templateEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "template_events_total",
				Help:      "Template applications by workspace and status",
			},
			[]string{"workspace", "status"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Resourcing runs completed by status",
			},
			[]string{"workspace", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of resourcing runs in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		autoApproveAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auto_approve_attempts_total",
				Help:      "Pull request completion attempts by result",
			},
			[]string{"workspace", "result"},
		),
	}
	m.registry.MustRegister(m.templateEvents, m.runsCompleted, m.runDuration, m.autoApproveAttempts)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveEvent(acronym string, ev model.RepositoryUpdateEvent) {
	m.templateEvents.WithLabelValues(acronym, ev.StatusCode.String()).Inc()
}

func (m *Metrics) ObserveRun(acronym string, status model.RunStatus, seconds float64) {
	m.runsCompleted.WithLabelValues(acronym, string(status)).Inc()
	m.runDuration.WithLabelValues(string(status)).Observe(seconds)
}

func (m *Metrics) ObserveAutoApproveAttempt(acronym, result string) {
	m.autoApproveAttempts.WithLabelValues(acronym, result).Inc()
}

// WriteToTextfile writes the text exposition format for the node exporter
// textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

var _ model.MetricsRecorder = (*Metrics)(nil)
