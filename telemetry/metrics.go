package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes generation statistics as Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	generations     prometheus.Counter
	newChampions    prometheus.Counter
	generation      prometheus.Gauge
	bestFitness     prometheus.Gauge
	meanFitness     prometheus.Gauge
	championFitness prometheus.Gauge
	maxScore        prometheus.Gauge
	generationTicks prometheus.Histogram
}

// NewMetrics creates the metric set on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flap_generations_total",
			Help: "Generations evolved.",
		}),
		newChampions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flap_new_champions_total",
			Help: "Generations that produced a new best-ever network.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flap_generation",
			Help: "Current generation number.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flap_generation_best_fitness",
			Help: "Best fitness of the last evaluated generation.",
		}),
		meanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flap_generation_mean_fitness",
			Help: "Mean fitness of the last evaluated generation.",
		}),
		championFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flap_champion_fitness",
			Help: "Best fitness ever observed.",
		}),
		maxScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flap_generation_max_score",
			Help: "Most pipes passed by one bird in the last generation.",
		}),
		generationTicks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flap_generation_ticks",
			Help:    "Ticks until the last bird of a generation died.",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10),
		}),
	}
	m.registry.MustRegister(
		m.generations, m.newChampions, m.generation, m.bestFitness,
		m.meanFitness, m.championFitness, m.maxScore, m.generationTicks,
	)
	return m
}

// Observe records one evaluated generation.
func (m *Metrics) Observe(s GenerationStats) {
	if m == nil {
		return
	}
	m.generations.Inc()
	if s.NewChampion {
		m.newChampions.Inc()
	}
	m.generation.Set(float64(s.Generation + 1))
	m.bestFitness.Set(s.BestFitness)
	m.meanFitness.Set(s.MeanFitness)
	m.championFitness.Set(s.ChampionFitness)
	m.maxScore.Set(float64(s.MaxScore))
	m.generationTicks.Observe(float64(s.Ticks))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
