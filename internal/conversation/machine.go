package conversation

import (
	"math/rand/v2"

	"checkin-calls/internal/calls"
)

// SecretSource draws the number the patient has to guess, in 1..10.
type SecretSource interface {
	Secret() int
}

// SecretFunc adapts a function to SecretSource.
type SecretFunc func() int

func (f SecretFunc) Secret() int { return f() }

// RandomSecrets draws uniformly from 1..10.
type RandomSecrets struct{}

func (RandomSecrets) Secret() int { return rand.IntN(10) + 1 }

// Turn is the outcome of one webhook turn.
type Turn struct {
	State State
	Next  State
	Data  calls.ResponseData
	// Prompt is the full line to speak next: acknowledgement, then question.
	Prompt string
	// Ends is set when Prompt is the last line and the call must hang up.
	Ends bool
}

// Open starts the script: greeting and mood question in a single line. The
// transcript is seeded once even if the provider connects twice.
func Open(firstName string, data calls.ResponseData) Turn {
	data = data.Clone()
	greeting := Prompt(StateGreeting, firstName)
	question := Prompt(StateMoodCheck, firstName)
	if !data.Recorded(string(StateGreeting)) {
		data.AppendTranscript(calls.SpeakerSystem, greeting)
		data.AppendTranscript(calls.SpeakerSystem, question)
		data.MarkRecorded(string(StateGreeting))
	}
	return Turn{
		State:  StateGreeting,
		Next:   StateMoodCheck,
		Data:   data,
		Prompt: joinLines(greeting, question),
	}
}

// ProcessResponse applies the domain rule of state s to data and returns the
// updated copy. A step that was already recorded is left as it is, so a
// redelivered callback cannot overwrite an earlier answer.
//
// secret is used for the number game only when data carries no secret yet.
func ProcessResponse(s State, speech string, data calls.ResponseData, secret int) calls.ResponseData {
	data = data.Clone()
	key := stepKey(s)
	if data.Recorded(key) {
		return data
	}

	switch s {
	case StateMoodCheck:
		data.Mood = ClassifyMood(speech)
	case StateScheduleCheck:
		data.TodaysAgenda = speech
		if data.TodaysAgenda == "" {
			data.TodaysAgenda = NoPlansMentioned
		}
	case StateMedicationReminder:
		data.MedicationsTaken = ClassifyYesNo(speech)
	case StateNumberGame, StateNumberGameResponse:
		if data.SecretNumber == 0 {
			data.SecretNumber = secret
		}
		g := ParseNumberGuess(speech, data.SecretNumber)
		data.PatientGuess = g.Value
		data.GameResult = g.Result
		data.GameFeedback = GameFeedback(g.Result, data.SecretNumber)
	case StateGreeting, StateClosing, StateError, StateEnd:
		return data
	default:
		return data
	}

	data.MarkRecorded(key)
	return data
}

// Advance runs one full turn: records the patient's speech, applies the state's
// rule and decides what to say next.
func Advance(s State, speech, firstName string, data calls.ResponseData, secrets SecretSource) Turn {
	if secrets == nil {
		secrets = RandomSecrets{}
	}
	data = data.Clone()
	data.AppendTranscript(calls.SpeakerPatient, speech)

	gameEvaluated := data.Recorded(stepKey(StateNumberGame))
	secret := 0
	if isGame(s) && !gameEvaluated && data.SecretNumber == 0 {
		secret = secrets.Secret()
	}
	data = ProcessResponse(s, speech, data, secret)

	t := Turn{State: s, Next: NextState(s)}
	lead := ""
	switch s {
	case StateGreeting, StateMoodCheck, StateScheduleCheck, StateMedicationReminder, StateError:
		t.Prompt = joinLines(Acknowledgement(s, data), Prompt(t.Next, firstName))
	case StateNumberGame, StateNumberGameResponse:
		// The game is the last question: feedback and goodbye in one line, then hang up.
		if !gameEvaluated {
			lead = data.GameFeedback
		}
		t.Next = StateEnd
	case StateClosing, StateEnd:
		t.Ends = true
	default:
		t.Ends = true
	}
	if t.Next == StateEnd {
		t.Ends = true
	}
	if t.Ends {
		t.Prompt = joinLines(lead, ClosingLine(firstName))
	}

	// The secret is fixed when the question is asked.
	if t.Next == StateNumberGame && data.SecretNumber == 0 {
		data.SecretNumber = secrets.Secret()
	}

	data.AppendTranscript(calls.SpeakerSystem, t.Prompt)
	t.Data = data
	return t
}

func isGame(s State) bool {
	return s == StateNumberGame || s == StateNumberGameResponse
}
