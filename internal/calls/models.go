package calls

import (
	"strings"
	"time"
)

// Call is one outbound check-in attempt.
//
// CallSID is the telephony provider's identifier and is assigned once the provider
// accepts the call. Every webhook turn looks the call up by it.
//
// Rows are never deleted by the call flow; removal is a dashboard concern.
type Call struct {
	ID        string `json:"id" db:"id"`
	PatientID string `json:"patient_id" db:"patient_id"`
	CallSID   string `json:"call_sid,omitempty" db:"call_sid"`

	Status CallStatus `json:"status" db:"status"`

	StartTime *time.Time `json:"call_start_time,omitempty" db:"call_start_time"`

	// DurationSeconds is set from the provider's terminal status callback.
	DurationSeconds *int `json:"call_duration,omitempty" db:"call_duration"`

	ResponseData ResponseData `json:"response_data" db:"response_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Patient is populated by lookups that join the owning patient.
	Patient Patient `json:"patient"`
}

type CallStatus string

const (
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// Terminal reports whether no further status transitions are expected.
func (s CallStatus) Terminal() bool {
	return s == CallStatusCompleted || s == CallStatusFailed
}

// Patient is read-only from the call flow's perspective.
type Patient struct {
	ID             string `json:"id" db:"id"`
	FirstName      string `json:"first_name" db:"first_name"`
	LastName       string `json:"last_name" db:"last_name"`
	PhoneNumber    string `json:"phone_number" db:"phone_number"`
	Voice          Voice  `json:"voice" db:"voice"`
	FamilyMemberID string `json:"family_member_id" db:"family_member_id"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Voice is one of the synthesis voices a family member can pick for a patient.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"

	DefaultVoice = VoiceNova
)

// ParseVoice maps a stored voice name to a Voice, falling back to DefaultVoice.
func ParseVoice(s string) Voice {
	switch v := Voice(strings.ToLower(strings.TrimSpace(s))); v {
	case VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer:
		return v
	default:
		return DefaultVoice
	}
}

type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNegative Mood = "negative"
	MoodNeutral  Mood = "neutral"
	MoodUnknown  Mood = "unknown"
)

type GameResult string

const (
	GameResultWinner  GameResult = "winner"
	GameResultLoser   GameResult = "loser"
	GameResultInvalid GameResult = "invalid"
)
