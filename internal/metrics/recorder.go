package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/san-kum/odesolve/internal/solver"
)

// Recorder exports solver work counters to Prometheus.
type Recorder struct {
	steps        *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	evaluations  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	integrations *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odesolve_steps_total",
			Help: "Accepted integration steps",
		}, []string{"stepper"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odesolve_rejected_steps_total",
			Help: "Rejected adaptive step trials",
		}, []string{"stepper"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odesolve_evaluations_total",
			Help: "Right-hand-side evaluations",
		}, []string{"stepper"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odesolve_integration_seconds",
			Help:    "Wall time of one integration call",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"stepper"}),
		integrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odesolve_integrations_total",
			Help: "Integration calls by outcome",
		}, []string{"stepper", "status"}),
	}
}

// Observe records the outcome of one integration call.
func (r *Recorder) Observe(stepper solver.StepperType, sol solver.Solution, elapsed time.Duration) {
	name := stepper.String()
	r.steps.WithLabelValues(name).Add(float64(sol.Stats.Steps))
	r.rejected.WithLabelValues(name).Add(float64(sol.Stats.Rejected))
	r.evaluations.WithLabelValues(name).Add(float64(sol.Stats.Evaluations))
	r.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.integrations.WithLabelValues(name, sol.Status.String()).Inc()
}

// Sample is one flattened metric series.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot flattens gathered counters and gauges. Histograms report their
// sample count and sum as "<name>_count" and "<name>_sum".
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := labelString(m)
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out = append(out, Sample{mf.GetName(), labels, m.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				out = append(out, Sample{mf.GetName(), labels, m.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				out = append(out,
					Sample{mf.GetName() + "_count", labels, float64(h.GetSampleCount())},
					Sample{mf.GetName() + "_sum", labels, h.GetSampleSum()})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func labelString(m *dto.Metric) string {
	pairs := make([]string, 0, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
	}
	return strings.Join(pairs, ",")
}
