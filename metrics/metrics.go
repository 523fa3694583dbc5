package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bananaripe"

// Recorder collects per-call classification metrics on its own registry.
// Nothing is exported over the network; Summary renders the values for logs.
type Recorder struct {
	registry        *prometheus.Registry
	classifications *prometheus.CounterVec
	stageSeconds    *prometheus.HistogramVec
	confidence      prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Classification calls by outcome (ok or error kind).",
			},
			[]string{"outcome"},
		),
		stageSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_seconds",
				Help:      "Time spent in each pipeline stage.",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"stage"},
		),
		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "confidence_percent",
				Help:      "Confidence of successful classifications.",
				Buckets:   prometheus.LinearBuckets(10, 10, 9),
			},
		),
	}
	r.registry.MustRegister(r.classifications, r.stageSeconds, r.confidence)
	return r
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) ObserveOutcome(outcome string) {
	r.classifications.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveConfidence(percent float64) {
	r.confidence.Observe(percent)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Summary returns one line per outcome counter and per stage histogram, sorted.
func (r *Recorder) Summary() ([]string, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label = lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s{%s} %.0f", mf.GetName(), label, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				mean := 0.0
				if h.GetSampleCount() > 0 {
					mean = h.GetSampleSum() / float64(h.GetSampleCount())
				}
				lines = append(lines, fmt.Sprintf("%s{%s} count=%d mean=%.4f", mf.GetName(), label, h.GetSampleCount(), mean))
			}
		}
	}
	sort.Strings(lines)
	return lines, nil
}
