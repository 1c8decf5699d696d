package telephony

import (
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"

	"checkin-calls/internal/conversation"
)

const (
	sayVoice    = "alice"
	sayLanguage = "en-US"
)

// Question asks something and listens for a spoken answer.
//
// AudioURL is played when set; otherwise Text is spoken by the provider. If the
// patient stays silent, NoInputMessage is spoken and the call is redirected to
// NoInputAction.
type Question struct {
	AudioURL string
	Text     string

	Action        string
	SpeechTimeout int
	SpeechModel   string
	Hints         []string

	NoInputMessage string
	NoInputAction  string
}

// RenderQuestion produces Gather(Play|Say), Say(no input), Redirect.
func RenderQuestion(q Question) (string, error) {
	timeout := q.SpeechTimeout
	if timeout <= 0 {
		timeout = 3
	}
	model := q.SpeechModel
	if model == "" {
		model = "phone_call"
	}

	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        q.Action,
		Method:        "POST",
		SpeechTimeout: strconv.Itoa(timeout),
		SpeechModel:   model,
		Hints:         strings.Join(q.Hints, ", "),
		InnerElements: []twiml.Element{utterance(q.AudioURL, q.Text)},
	}

	verbs := []twiml.Element{gather}
	if q.NoInputMessage != "" {
		verbs = append(verbs, say(q.NoInputMessage))
	}
	noInput := q.NoInputAction
	if noInput == "" {
		noInput = q.Action
	}
	verbs = append(verbs, &twiml.VoiceRedirect{Url: noInput, Method: "POST"})
	return twiml.Voice(verbs)
}

// RenderPlayAndHangup speaks a final line and ends the call.
func RenderPlayAndHangup(audioURL, text string) (string, error) {
	return twiml.Voice([]twiml.Element{utterance(audioURL, text), &twiml.VoiceHangup{}})
}

// RenderSayAndHangup ends the call with provider speech. An empty message just hangs up.
func RenderSayAndHangup(message string) (string, error) {
	var verbs []twiml.Element
	if message != "" {
		verbs = append(verbs, say(message))
	}
	verbs = append(verbs, &twiml.VoiceHangup{})
	return twiml.Voice(verbs)
}

func utterance(audioURL, text string) twiml.Element {
	if audioURL != "" {
		return &twiml.VoicePlay{Url: audioURL}
	}
	return say(text)
}

func say(text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: text, Voice: sayVoice, Language: sayLanguage}
}

var numberHints = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

// listenFor returns recognition settings for the answer to state s's question.
func listenFor(s conversation.State) (timeout int, model string, hints []string) {
	if s == conversation.StateNumberGame {
		return 4, "numbers_and_commands", numberHints
	}
	return 3, "phone_call", nil
}
