// Package metrics exports feed counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recommendation paths.
const (
	PathEditorial = "editorial"
	PathFollowUp  = "followup"
	PathBlended   = "blended"
)

// Recorder owns the feed metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	recommendations *prometheus.CounterVec
	strength        prometheus.Histogram
	backfilled      prometheus.Counter
	backfillErrors  prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsfeed",
			Name:      "recommendations_total",
			Help:      "Recommendation responses by ranking path.",
		}, []string{"path"}),
		strength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "newsfeed",
			Name:      "interaction_strength",
			Help:      "Interaction strength of recorded views.",
			Buckets:   []float64{0, 0.3, 0.5, 0.8, 1.0, 1.2},
		}),
		backfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsfeed",
			Name:      "embeddings_backfilled_total",
			Help:      "Article embeddings written by the backfill job.",
		}),
		backfillErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsfeed",
			Name:      "embedding_backfill_errors_total",
			Help:      "Failed embedding backfill batches.",
		}),
	}

	r.registry.MustRegister(r.recommendations, r.strength, r.backfilled, r.backfillErrors)
	return r
}

func (r *Recorder) Recommendation(path string) {
	if r == nil {
		return
	}
	r.recommendations.WithLabelValues(path).Inc()
}

func (r *Recorder) InteractionStrength(v float64) {
	if r == nil {
		return
	}
	r.strength.Observe(v)
}

func (r *Recorder) EmbeddingsBackfilled(n int) {
	if r == nil {
		return
	}
	r.backfilled.Add(float64(n))
}

func (r *Recorder) BackfillError() {
	if r == nil {
		return
	}
	r.backfillErrors.Inc()
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
