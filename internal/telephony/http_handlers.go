package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"checkin-calls/internal/calls"
	"checkin-calls/internal/conversation"
	"checkin-calls/internal/observability"
	"checkin-calls/internal/summary"
	"checkin-calls/pkg/logger"
)

// Speaker turns a line of text into a URL the provider can play.
type Speaker interface {
	Synthesize(ctx context.Context, text string, voice calls.Voice) (string, error)
}

// Summarizer digests a finished call. It must not fail.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, patientName string) summary.Summary
}

// WebhookHandler drives the check-in script from provider callbacks.
//
// Every voice response is valid TwiML with status 200, including on internal
// failure: the provider must always get an instruction that continues or ends
// the call. The status callback always answers "OK".
type WebhookHandler struct {
	Calls   calls.Repository
	Speech  Speaker
	Summary Summarizer
	Locker  TurnLocker
	Secrets conversation.SecretSource
	Metrics *observability.Metrics

	// BaseURL is the public origin callbacks are addressed to.
	BaseURL     string
	LockTimeout time.Duration

	Now func() time.Time
}

const stateInitial = "initial"

// Voice handles POST /voice/:state.
func (h WebhookHandler) Voice(c *gin.Context) {
	path := c.Param("state")
	defer func() {
		if p := recover(); p != nil {
			logger.FromGin(c).Error("voice turn panicked", "panic", fmt.Sprint(p))
			h.Metrics.ObserveTurn(path, "panic")
			h.writeApology(c)
		}
	}()

	form, err := ParseVoiceWebhook(c.Request)
	if err != nil {
		logger.FromGin(c).Warn("voice webhook parse failed", "err", err)
		h.writeApology(c)
		return
	}
	l := logger.FromGin(c).With("call_sid", form.CallSid, "state", path)
	logger.SetGin(c, l)

	if path == stateInitial {
		h.initial(c, form)
		return
	}
	h.turn(c, form, path)
}

func (h WebhookHandler) initial(c *gin.Context, form VoiceWebhook) {
	ctx := c.Request.Context()
	l := logger.FromGin(c)
	l.Info("call connected", "answered_by", form.AnsweredBy)

	if form.MachineAnswered() {
		h.markMachine(ctx, form.CallSid)
		h.Metrics.ObserveTurn(stateInitial, "machine")
		out, err := RenderSayAndHangup("")
		h.writeTwiML(c, out, err)
		return
	}

	unlock := h.lock(ctx, form.CallSid)
	defer unlock()

	rec, err := h.Calls.GetByCallSID(ctx, form.CallSid)
	if err != nil {
		if !errors.Is(err, calls.ErrNotFound) {
			l.Error("load call failed", "err", err)
		} else {
			l.Warn("call record not found")
		}
		h.Metrics.ObserveTurn(stateInitial, "no_record")
		out, err := RenderSayAndHangup(conversation.UnknownCallGreeting)
		h.writeTwiML(c, out, err)
		return
	}

	first := conversation.FirstName(rec.Patient.FirstName)
	turn := conversation.Open(first, rec.ResponseData)
	if turn.Data.PatientName == "" {
		turn.Data.PatientName = rec.Patient.FullName()
	}

	u := calls.Update{ResponseData: &turn.Data}
	if !rec.Status.Terminal() {
		st := calls.CallStatusInProgress
		now := h.now()
		u.Status = &st
		u.StartTime = &now
	}
	if err := h.Calls.Update(ctx, form.CallSid, u); err != nil {
		l.Error("persist call start failed; continuing", "err", err)
	}

	audioURL, text := h.speak(ctx, turn.Prompt, rec.Patient.Voice)
	h.Metrics.ObserveTurn(stateInitial, "ok")
	out, err := RenderQuestion(Question{
		AudioURL:       audioURL,
		Text:           text,
		Action:         h.voiceURL(string(conversation.StateMoodCheck)),
		NoInputMessage: conversation.InitialNoInputMessage,
		NoInputAction:  h.voiceURL(string(conversation.StateMoodCheck)),
	})
	h.writeTwiML(c, out, err)
}

func (h WebhookHandler) markMachine(ctx context.Context, callSID string) {
	l := logger.From(ctx)
	rec, err := h.Calls.GetByCallSID(ctx, callSID)
	if err != nil {
		l.Warn("machine answered; call record unavailable", "err", err)
		return
	}
	data := rec.ResponseData.Clone()
	data.Error = "Answered by machine or fax"
	st := calls.CallStatusFailed
	if err := h.Calls.Update(ctx, callSID, calls.Update{Status: &st, ResponseData: &data}); err != nil {
		l.Error("mark machine answered failed", "err", err)
	}
}

func (h WebhookHandler) turn(c *gin.Context, form VoiceWebhook, path string) {
	ctx := c.Request.Context()
	l := logger.FromGin(c)
	l.Debug("speech received", "speech", form.SpeechResult, "confidence", form.Confidence)

	unlock := h.lock(ctx, form.CallSid)
	defer unlock()

	rec, err := h.Calls.GetByCallSID(ctx, form.CallSid)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			l.Warn("call record not found")
		} else {
			l.Error("load call failed", "err", err)
		}
		h.Metrics.ObserveTurn(path, "no_record")
		out, err := RenderSayAndHangup(conversation.CannotContinueMessage)
		h.writeTwiML(c, out, err)
		return
	}

	state := conversation.ParseState(path)
	if string(state) != path {
		l.Warn("unknown state in callback path")
	}
	first := conversation.FirstName(rec.Patient.FirstName)
	turn := conversation.Advance(state, form.SpeechResult, first, rec.ResponseData, h.Secrets)

	if err := h.Calls.Update(ctx, form.CallSid, calls.Update{ResponseData: &turn.Data}); err != nil {
		l.Error("persist turn failed; continuing", "err", err)
	}

	audioURL, text := h.speak(ctx, turn.Prompt, rec.Patient.Voice)
	if turn.Ends {
		l.Info("call ending")
		h.Metrics.ObserveTurn(string(state), "end")
		out, err := RenderPlayAndHangup(audioURL, text)
		h.writeTwiML(c, out, err)
		return
	}

	timeout, model, hints := listenFor(turn.Next)
	h.Metrics.ObserveTurn(string(state), "ok")
	out, err := RenderQuestion(Question{
		AudioURL:       audioURL,
		Text:           text,
		Action:         h.voiceURL(string(turn.Next)),
		SpeechTimeout:  timeout,
		SpeechModel:    model,
		Hints:          hints,
		NoInputMessage: conversation.NoInputMessage,
		NoInputAction:  h.voiceURL(string(conversation.SilenceTarget(turn.Next))),
	})
	h.writeTwiML(c, out, err)
}

// Status handles POST /status.
func (h WebhookHandler) Status(c *gin.Context) {
	defer func() {
		if p := recover(); p != nil {
			logger.FromGin(c).Error("status callback panicked", "panic", fmt.Sprint(p))
		}
		c.String(http.StatusOK, "OK")
	}()

	form, err := ParseVoiceWebhook(c.Request)
	if err != nil {
		logger.FromGin(c).Warn("status webhook parse failed", "err", err)
		return
	}
	l := logger.FromGin(c).With("call_sid", form.CallSid, "call_status", form.CallStatus)
	logger.SetGin(c, l)
	h.Metrics.ObserveStatusCallback(form.CallStatus)

	ctx := c.Request.Context()
	rec, err := h.Calls.GetByCallSID(ctx, form.CallSid)
	if err != nil {
		l.Warn("status for unknown call", "err", err)
		return
	}

	u := h.statusUpdate(ctx, rec, form)
	if u.Empty() {
		return
	}
	if err := h.Calls.Update(ctx, form.CallSid, u); err != nil {
		l.Error("persist status failed", "err", err)
		return
	}
	l.Info("call status updated", "duration", form.CallDuration)
}

// statusUpdate maps a provider status to record changes. A failed call stays
// failed and a terminal call never moves back to in_progress.
func (h WebhookHandler) statusUpdate(ctx context.Context, rec calls.Call, form VoiceWebhook) calls.Update {
	var u calls.Update

	switch form.CallStatus {
	case "completed":
		if rec.Status != calls.CallStatusFailed {
			st := calls.CallStatusCompleted
			u.Status = &st
		}
		if d, ok := form.Duration(); ok {
			u.DurationSeconds = &d
		}
		if data, ok := h.summarize(ctx, rec); ok {
			u.ResponseData = &data
		}
	case "busy", "no-answer", "failed", "canceled":
		st := calls.CallStatusFailed
		u.Status = &st
		if d, ok := form.Duration(); ok {
			u.DurationSeconds = &d
		}
	default:
		if !rec.Status.Terminal() && rec.Status != calls.CallStatusInProgress {
			st := calls.CallStatusInProgress
			u.Status = &st
		}
	}
	return u
}

func (h WebhookHandler) summarize(ctx context.Context, rec calls.Call) (calls.ResponseData, bool) {
	data := rec.ResponseData.Clone()
	if h.Summary == nil || strings.TrimSpace(data.Transcript) == "" || data.CallSummary != "" {
		return data, false
	}
	name := data.PatientName
	if name == "" {
		name = rec.Patient.FullName()
	}
	s := h.Summary.Summarize(ctx, data.Transcript, name)
	data.CallSummary = s.Text
	data.OverallMood = s.Mood
	return data, true
}

// speak returns an audio URL, or the text itself for provider speech when
// synthesis fails.
func (h WebhookHandler) speak(ctx context.Context, text string, voice calls.Voice) (string, string) {
	if h.Speech == nil {
		return "", text
	}
	url, err := h.Speech.Synthesize(ctx, text, voice)
	if err != nil {
		logger.From(ctx).Warn("speech synthesis failed; using provider voice", "err", err)
		return "", text
	}
	return url, text
}

// lock takes the per-call turn lock. A lock that cannot be taken in time is
// logged and the turn proceeds without it.
func (h WebhookHandler) lock(ctx context.Context, callSID string) func() {
	if h.Locker == nil || callSID == "" {
		return func() {}
	}
	timeout := h.LockTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	unlock, err := h.Locker.Lock(lctx, callSID)
	if err != nil {
		logger.From(ctx).Warn("turn lock unavailable; proceeding unlocked", slog.Any("err", err))
		return func() {}
	}
	return unlock
}

func (h WebhookHandler) voiceURL(state string) string {
	return strings.TrimRight(h.BaseURL, "/") + "/voice/" + state
}

func (h WebhookHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h WebhookHandler) writeTwiML(c *gin.Context, twiml string, err error) {
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		h.writeApology(c)
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

func (h WebhookHandler) writeApology(c *gin.Context) {
	body, err := RenderSayAndHangup(conversation.ApologyMessage)
	if err != nil {
		body = `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup/></Response>`
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, body)
}
