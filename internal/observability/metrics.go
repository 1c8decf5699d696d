package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SpeechRequests   *prometheus.CounterVec
	SpeechCharacters *prometheus.CounterVec
	SpeechCostUSD    prometheus.Counter
	SpeechLatency    prometheus.Histogram
	CacheEntries     prometheus.Gauge
	CacheEvictions   *prometheus.CounterVec
	Turns            *prometheus.CounterVec
	StatusCallbacks  *prometheus.CounterVec
	Summaries        *prometheus.CounterVec
	CallsTriggered   *prometheus.CounterVec
}

// NewMetrics registers the instruments with reg. Passing nil builds unregistered
// instruments, which is what tests want.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SpeechRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_requests_total",
			Help:      "Speech synthesis requests by outcome (hit, miss, coalesced, error).",
		}, []string{"outcome"}),
		SpeechCharacters: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_characters_total",
			Help:      "Characters sent to the speech backend by voice.",
		}, []string{"voice"}),
		SpeechCostUSD: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_estimated_cost_usd_total",
			Help:      "Estimated speech backend spend in US dollars.",
		}),
		SpeechLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_backend_latency_ms",
			Help:      "Latency of speech backend calls in milliseconds.",
			Buckets:   []float64{100, 250, 500, 750, 1000, 1500, 2500, 4000},
		}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speech_cache_entries",
			Help:      "Audio clips currently held in the speech cache.",
		}),
		CacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_cache_evictions_total",
			Help:      "Speech cache evictions by reason (expired, capacity).",
		}, []string{"reason"}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_turns_total",
			Help:      "Voice webhook turns by state and outcome.",
		}, []string{"state", "outcome"}),
		StatusCallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_callbacks_total",
			Help:      "Provider status callbacks by reported status.",
		}, []string{"status"}),
		Summaries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Post-call summaries by result (ok, fallback).",
		}, []string{"result"}),
		CallsTriggered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_triggered_total",
			Help:      "Outbound call triggers by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveSpeech(outcome string) {
	if m == nil {
		return
	}
	m.SpeechRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSpeechCost(voice string, chars int, usd float64, d time.Duration) {
	if m == nil {
		return
	}
	m.SpeechCharacters.WithLabelValues(voice).Add(float64(chars))
	m.SpeechCostUSD.Add(usd)
	m.SpeechLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

func (m *Metrics) ObserveEviction(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheEvictions.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) ObserveTurn(state, outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(state, outcome).Inc()
}

func (m *Metrics) ObserveStatusCallback(status string) {
	if m == nil {
		return
	}
	m.StatusCallbacks.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSummary(result string) {
	if m == nil {
		return
	}
	m.Summaries.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTrigger(result string) {
	if m == nil {
		return
	}
	m.CallsTriggered.WithLabelValues(result).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
