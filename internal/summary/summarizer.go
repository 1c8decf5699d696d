package summary

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"checkin-calls/internal/calls"
	"checkin-calls/internal/observability"
	"checkin-calls/pkg/logger"
)

const (
	// FallbackText is stored when no summary could be produced.
	FallbackText = "Call completed successfully."

	systemPrompt = "Summarize this elderly patient call in 1-2 concise sentences. " +
		"Also classify the overall mood as exactly one of: positive, negative, or neutral. " +
		"Return JSON format: {summary: string, mood: string}"

	// gpt-4o-mini list prices in US dollars per million tokens.
	inputCostPerMillion  = 0.15
	outputCostPerMillion = 0.60
)

var ErrEmptyCompletion = errors.New("summary: empty completion")

// Completer sends one system+user exchange to a chat model that answers in JSON.
type Completer interface {
	Complete(ctx context.Context, system, user string) (Completion, error)
}

type Completion struct {
	Content          string
	PromptTokens     int64
	CompletionTokens int64
}

// Summary is the post-call digest stored on the call record.
type Summary struct {
	Text string
	Mood calls.Mood
}

func Fallback() Summary {
	return Summary{Text: FallbackText, Mood: calls.MoodUnknown}
}

type Summarizer struct {
	completer Completer
	timeout   time.Duration
	metrics   *observability.Metrics
}

// New builds a Summarizer. timeout bounds the model call; default 15s.
func New(c Completer, timeout time.Duration, m *observability.Metrics) *Summarizer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Summarizer{completer: c, timeout: timeout, metrics: m}
}

// Summarize never fails: any problem yields Fallback().
func (s *Summarizer) Summarize(ctx context.Context, transcript, patientName string) Summary {
	l := logger.From(ctx)
	if s == nil || s.completer == nil || strings.TrimSpace(transcript) == "" {
		s.observe("fallback")
		return Fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user := "Patient: " + patientName + "\nTranscript: " + transcript
	comp, err := s.completer.Complete(ctx, systemPrompt, user)
	if err != nil {
		l.Warn("summary failed", "err", err)
		s.observe("fallback")
		return Fallback()
	}

	out, err := parse(comp.Content)
	if err != nil {
		l.Warn("summary unparseable", "err", err)
		s.observe("fallback")
		return Fallback()
	}

	l.Info("summary generated",
		slog.Int64("prompt_tokens", comp.PromptTokens),
		slog.Int64("completion_tokens", comp.CompletionTokens),
		slog.Float64("estimated_cost_usd", estimateCost(comp)),
	)
	s.observe("ok")
	return out
}

func (s *Summarizer) observe(result string) {
	if s == nil {
		return
	}
	s.metrics.ObserveSummary(result)
}

func parse(content string) (Summary, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Summary{}, ErrEmptyCompletion
	}
	var raw struct {
		Summary string `json:"summary"`
		Mood    string `json:"mood"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Summary{}, err
	}
	text := strings.TrimSpace(raw.Summary)
	if text == "" {
		text = FallbackText
	}
	return Summary{Text: text, Mood: normalizeMood(raw.Mood)}, nil
}

func normalizeMood(s string) calls.Mood {
	switch m := calls.Mood(strings.ToLower(strings.TrimSpace(s))); m {
	case calls.MoodPositive, calls.MoodNegative, calls.MoodNeutral:
		return m
	default:
		return calls.MoodUnknown
	}
}

func estimateCost(c Completion) float64 {
	return float64(c.PromptTokens)/1e6*inputCostPerMillion + float64(c.CompletionTokens)/1e6*outputCostPerMillion
}
