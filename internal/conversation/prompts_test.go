package conversation

import (
	"testing"

	"checkin-calls/internal/calls"
)

func TestPrompt_StaticExceptGreeting(t *testing.T) {
	if got := Prompt(StateGreeting, "Ada"); got != "Hi Ada, this is your daily check-in call." {
		t.Fatalf("unexpected greeting %q", got)
	}
	if got := Prompt(StateGreeting, ""); got != "Hi, this is your daily check-in call." {
		t.Fatalf("unexpected anonymous greeting %q", got)
	}
	for _, s := range States {
		if s == StateGreeting {
			continue
		}
		if Prompt(s, "Ada") != Prompt(s, "Bob") {
			t.Fatalf("%s: prompt should not depend on the name", s)
		}
		if Prompt(s, "Ada") == "" {
			t.Fatalf("%s: empty prompt", s)
		}
	}
}

func TestGameFeedback(t *testing.T) {
	if got := GameFeedback(calls.GameResultWinner, 4); got != "Nicely done! You correctly guessed the number was 4." {
		t.Fatalf("unexpected winner feedback %q", got)
	}
	for _, r := range []calls.GameResult{calls.GameResultLoser, calls.GameResultInvalid} {
		if got := GameFeedback(r, 8); got != "Good try! The number was 8." {
			t.Fatalf("unexpected %s feedback %q", r, got)
		}
	}
}

func TestAcknowledgement(t *testing.T) {
	no := false
	cases := []struct {
		state State
		data  calls.ResponseData
		want  string
	}{
		{StateMoodCheck, calls.ResponseData{Mood: calls.MoodNegative}, ackNegativeMood},
		{StateMoodCheck, calls.ResponseData{Mood: calls.MoodPositive}, ackPositiveMood},
		{StateMoodCheck, calls.ResponseData{Mood: calls.MoodUnknown}, ackOtherMood},
		{StateMedicationReminder, calls.ResponseData{MedicationsTaken: &no}, ackMedsMissed},
		{StateMedicationReminder, calls.ResponseData{}, ackMedsTaken},
		{StateScheduleCheck, calls.ResponseData{}, ""},
	}
	for _, tc := range cases {
		if got := Acknowledgement(tc.state, tc.data); got != tc.want {
			t.Fatalf("Acknowledgement(%s): expected %q, got %q", tc.state, tc.want, got)
		}
	}
}

func TestFirstNameAndClosingLine(t *testing.T) {
	if FirstName("  Ada   Lovelace ") != "Ada" || FirstName("") != "" {
		t.Fatalf("unexpected FirstName")
	}
	if ClosingLine("") != "Thank you. Have a wonderful day!" {
		t.Fatalf("unexpected anonymous closing")
	}
}
