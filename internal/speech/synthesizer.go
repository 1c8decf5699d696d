package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"checkin-calls/internal/calls"
	"checkin-calls/internal/observability"
	"checkin-calls/pkg/logger"
)

var (
	ErrEmptyAudio = errors.New("speech: backend returned no audio")
	ErrEmptyText  = errors.New("speech: empty text")
)

// CostPer1KChars is the backend's list price in US dollars.
const CostPer1KChars = 0.015

// Backend turns text into mp3 audio.
type Backend interface {
	Synthesize(ctx context.Context, text string, voice calls.Voice) ([]byte, error)
}

type SynthesizerConfig struct {
	// BaseURL is the public origin the provider fetches audio from.
	BaseURL string
	// Timeout bounds one backend call; default 4s.
	Timeout time.Duration
	Metrics *observability.Metrics
}

// Synthesizer produces a fetchable audio URL for a line of text, generating the
// audio at most once per key even under concurrent requests.
type Synthesizer struct {
	cache   *Cache
	backend Backend
	baseURL string
	timeout time.Duration
	metrics *observability.Metrics

	group singleflight.Group
}

func NewSynthesizer(cache *Cache, backend Backend, cfg SynthesizerConfig) *Synthesizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Synthesizer{
		cache:   cache,
		backend: backend,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		metrics: cfg.Metrics,
	}
}

// URL is where the audio endpoint serves key.
func (s *Synthesizer) URL(key string) string {
	return s.baseURL + "/audio/cached/" + key
}

// Synthesize returns the URL of the audio for text in voice.
//
// Cache hits and callers that join an in-flight generation never reach the
// backend and never record cost. The generation itself is not cancelled when
// the caller goes away, so waiters still get the result.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice calls.Voice) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	key := Key(text, voice)
	if _, ok := s.cache.Lookup(key); ok {
		s.metrics.ObserveSpeech("hit")
		return s.URL(key), nil
	}

	led := false
	ch := s.group.DoChan(key, func() (any, error) {
		led = true
		return s.generate(ctx, key, text, voice)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			s.metrics.ObserveSpeech("error")
			return "", r.Err
		}
		if led {
			s.metrics.ObserveSpeech("miss")
		} else {
			s.metrics.ObserveSpeech("coalesced")
		}
		return s.URL(r.Val.(string)), nil
	}
}

func (s *Synthesizer) generate(ctx context.Context, key, text string, voice calls.Voice) (string, error) {
	// Another leader may have finished between our miss and acquiring the flight.
	if _, ok := s.cache.Lookup(key); ok {
		return key, nil
	}

	l := logger.From(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	audio, err := s.backend.Synthesize(ctx, text, voice)
	if err != nil {
		return "", fmt.Errorf("speech: synthesize: %w", err)
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	elapsed := time.Since(start)

	chars := len([]rune(text))
	cost := EstimateCost(chars)
	l.Info("speech generated",
		slog.String("voice", string(voice)),
		slog.Int("characters", chars),
		slog.Float64("estimated_cost_usd", cost),
		slog.Int("bytes", len(audio)),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	)
	s.metrics.ObserveSpeechCost(string(voice), chars, cost, elapsed)

	return s.cache.Put(text, voice, audio), nil
}

// EstimateCost is the backend price for chars characters.
func EstimateCost(chars int) float64 {
	return float64(chars) / 1000 * CostPer1KChars
}
