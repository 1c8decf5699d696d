package calls

import (
	"slices"
	"strings"
)

// ResponseData is the JSON blob accumulated on a call while the script runs.
//
// Invariants:
//   - a step's fields are written once; RecordedSteps lists the steps already applied
//     so a redelivered webhook cannot overwrite an earlier answer.
//   - Transcript is append-only, one "Speaker: text" line per utterance.
type ResponseData struct {
	PatientName string `json:"patient_name,omitempty"`
	Transcript  string `json:"call_transcript"`

	Mood             Mood   `json:"mood,omitempty"`
	TodaysAgenda     string `json:"todays_agenda,omitempty"`
	MedicationsTaken *bool  `json:"medications_taken"`

	SecretNumber int        `json:"secret_number,omitempty"`
	PatientGuess *int       `json:"patient_guess,omitempty"`
	GameResult   GameResult `json:"game_result,omitempty"`
	GameFeedback string     `json:"game_feedback,omitempty"`

	CallSummary string `json:"call_summary,omitempty"`
	OverallMood Mood   `json:"overall_mood,omitempty"`

	Error string `json:"error,omitempty"`

	RecordedSteps []string `json:"recorded_steps,omitempty"`
}

const (
	SpeakerSystem  = "System"
	SpeakerPatient = "Patient"
)

// AppendTranscript adds one line to the transcript. Empty text is ignored.
func (d *ResponseData) AppendTranscript(speaker, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	d.Transcript += speaker + ": " + text + "\n"
}

func (d ResponseData) Recorded(step string) bool {
	return slices.Contains(d.RecordedSteps, step)
}

func (d *ResponseData) MarkRecorded(step string) {
	if d.Recorded(step) {
		return
	}
	d.RecordedSteps = append(d.RecordedSteps, step)
}

// Clone returns a deep copy so callers can mutate without aliasing the stored record.
func (d ResponseData) Clone() ResponseData {
	out := d
	if d.MedicationsTaken != nil {
		v := *d.MedicationsTaken
		out.MedicationsTaken = &v
	}
	if d.PatientGuess != nil {
		v := *d.PatientGuess
		out.PatientGuess = &v
	}
	out.RecordedSteps = slices.Clone(d.RecordedSteps)
	return out
}
