package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSpeech("hit")
	m.ObserveSpeechCost("nova", 10, 0.1, time.Second)
	m.SetCacheEntries(3)
	m.ObserveEviction("expired", 1)
	m.ObserveTurn("mood_check", "ok")
	m.ObserveStatusCallback("completed")
	m.ObserveSummary("ok")
	m.ObserveTrigger("ok")
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ObserveSpeech("hit")
	m.ObserveSpeech("hit")
	m.ObserveSpeechCost("nova", 1000, 0.015, 200*time.Millisecond)
	m.SetCacheEntries(4)
	m.ObserveEviction("capacity", 2)
	m.ObserveEviction("capacity", 0)

	if got := value(t, m.SpeechRequests.WithLabelValues("hit")); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	if got := value(t, m.SpeechCharacters.WithLabelValues("nova")); got != 1000 {
		t.Fatalf("expected 1000 characters, got %v", got)
	}
	if got := value(t, m.CacheEntries); got != 4 {
		t.Fatalf("expected 4 entries, got %v", got)
	}
	if got := value(t, m.CacheEvictions.WithLabelValues("capacity")); got != 2 {
		t.Fatalf("expected 2 evictions, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil || len(families) == 0 {
		t.Fatalf("expected registered metrics, got %d err=%v", len(families), err)
	}
}
