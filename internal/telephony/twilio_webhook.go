package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// VoiceWebhook captures the subset of voice and status callback fields we use.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/twiml#request-parameters
type VoiceWebhook struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	CallStatus   string
	CallDuration string
	SpeechResult string
	Confidence   string
	AnsweredBy   string

	// Params holds every posted field; signature validation needs all of them.
	Params map[string]string
}

func ParseVoiceWebhook(r *http.Request) (VoiceWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhook{}, err
	}
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return VoiceWebhook{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid:   r.PostFormValue("AccountSid"),
		From:         strings.TrimSpace(r.PostFormValue("From")),
		To:           strings.TrimSpace(r.PostFormValue("To")),
		CallStatus:   strings.ToLower(strings.TrimSpace(r.PostFormValue("CallStatus"))),
		CallDuration: strings.TrimSpace(r.PostFormValue("CallDuration")),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Confidence:   r.PostFormValue("Confidence"),
		AnsweredBy:   strings.ToLower(strings.TrimSpace(r.PostFormValue("AnsweredBy"))),
		Params:       params,
	}, nil
}

// MachineAnswered reports whether answering machine detection found a machine or fax.
func (w VoiceWebhook) MachineAnswered() bool {
	switch w.AnsweredBy {
	case "machine_start", "machine_end_beep", "machine_end_silence", "machine_end_other", "fax":
		return true
	default:
		return false
	}
}

// Duration is the reported call length in seconds, if present and valid.
func (w VoiceWebhook) Duration() (int, bool) {
	if w.CallDuration == "" {
		return 0, false
	}
	n, err := strconv.Atoi(w.CallDuration)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
