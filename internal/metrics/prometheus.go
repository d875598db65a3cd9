package metrics

import (
	"net/http"
	"time"

	"support-flow-be/pkg/llm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
// Each recorder owns its registry so several can coexist in one process.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	workflowRuns     *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	stageFallbacks   *prometheus.CounterVec
	flagEvaluations  *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec
	llmDuration      *prometheus.HistogramVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		workflowRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_workflow_runs_total",
				Help: "Total number of workflow runs by combo and status",
			},
			[]string{"combo", "status"},
		),
		workflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "support_workflow_duration_seconds",
				Help:    "Duration of complete workflow runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"combo"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "support_stage_duration_seconds",
				Help:    "Duration of individual stage executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_stage_fallbacks_total",
				Help: "Number of stage executions that served a fallback result",
			},
			[]string{"stage"},
		),
		flagEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_flag_evaluations_total",
				Help: "Number of flag evaluations by flag and result",
			},
			[]string{"flag", "result"},
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_llm_requests_total",
				Help: "Total number of generation requests by provider, model and status",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_llm_tokens_total",
				Help: "Tokens reported by generation backends",
			},
			[]string{"provider", "model", "type"},
		),
		llmDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "support_llm_request_duration_seconds",
				Help:    "Duration of generation requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
	}
}

func (p *PrometheusRecorder) ObserveWorkflow(combo string, success bool, duration time.Duration) {
	p.workflowRuns.WithLabelValues(combo, statusLabel(success)).Inc()
	p.workflowDuration.WithLabelValues(combo).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveStage(stage string, duration time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncStageFallback(stage string) {
	p.stageFallbacks.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) ObserveFlagEvaluation(flag, result string) {
	p.flagEvaluations.WithLabelValues(flag, result).Inc()
}

func (p *PrometheusRecorder) ObserveGeneration(provider, model string, success bool, usage *llm.Usage, duration time.Duration) {
	p.llmRequests.WithLabelValues(provider, model, statusLabel(success)).Inc()
	p.llmDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if success && usage != nil {
		p.llmTokens.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
		p.llmTokens.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
	}
}

// Handler serves this recorder's registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
