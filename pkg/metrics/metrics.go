// Package metrics records deployer activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	Success   = "success"
	Failure   = "failure"
	Unchanged = "unchanged"
	Skipped   = "skipped"
)

// Recorder records metrics for polls, pipeline runs and service deployments.
type Recorder interface {
	Poll(result string)
	PipelineRun(result string)
	ServiceDeployment(service, result string)
	CommitProcessed(t time.Time)
}

// PrometheusRecorder is a Recorder that registers its metrics in its own
// registry.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	polls           *prometheus.CounterVec
	pipelineRuns    *prometheus.CounterVec
	deployments     *prometheus.CounterVec
	lastProcessedAt prometheus.Gauge
}

var _ Recorder = (*PrometheusRecorder)(nil)

// New creates and returns a PrometheusRecorder.
func New() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deployer_polls_total",
			Help: "Count of repository polls by result.",
		}, []string{"result"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deployer_pipeline_runs_total",
			Help: "Count of pipeline runs by result.",
		}, []string{"result"}),
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deployer_service_deployments_total",
			Help: "Count of service deployments by service and result.",
		}, []string{"service", "result"}),
		lastProcessedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deployer_last_processed_commit_timestamp_seconds",
			Help: "Time the last new commit was processed.",
		}),
	}
	r.registry.MustRegister(
		r.polls,
		r.pipelineRuns,
		r.deployments,
		r.lastProcessedAt,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Poll counts a poll of the repository.
func (r *PrometheusRecorder) Poll(result string) {
	r.polls.WithLabelValues(result).Inc()
}

// PipelineRun counts a pipeline run.
func (r *PrometheusRecorder) PipelineRun(result string) {
	r.pipelineRuns.WithLabelValues(result).Inc()
}

// ServiceDeployment counts the deployment of a single service.
func (r *PrometheusRecorder) ServiceDeployment(service, result string) {
	r.deployments.WithLabelValues(service, result).Inc()
}

// CommitProcessed records when a new commit was last handled.
func (r *PrometheusRecorder) CommitProcessed(t time.Time) {
	r.lastProcessedAt.Set(float64(t.Unix()))
}

// Handler returns an http.Handler that serves the metrics.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Discard is a Recorder that records nothing.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Poll(string)                      {}
func (discard) PipelineRun(string)               {}
func (discard) ServiceDeployment(string, string) {}
func (discard) CommitProcessed(time.Time)        {}
