package calls

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestBuildUpdateSQL(t *testing.T) {
	status := CallStatusCompleted
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	duration := 95
	taken := true
	data := ResponseData{Transcript: "System: Hi\n", Mood: MoodPositive, MedicationsTaken: &taken, RecordedSteps: []string{"mood_check"}}

	cases := []struct {
		name  string
		u     Update
		query string
		nargs int
	}{
		{"status only", Update{Status: &status}, "UPDATE calls SET status = $1 WHERE call_sid = $2", 2},
		{"status and duration", Update{Status: &status, DurationSeconds: &duration}, "UPDATE calls SET status = $1, call_duration = $2 WHERE call_sid = $3", 3},
		{"start time", Update{StartTime: &start}, "UPDATE calls SET call_start_time = $1 WHERE call_sid = $2", 2},
		{"response data", Update{ResponseData: &data}, "UPDATE calls SET response_data = $1 WHERE call_sid = $2", 2},
		{"everything", Update{Status: &status, StartTime: &start, DurationSeconds: &duration, ResponseData: &data},
			"UPDATE calls SET status = $1, call_start_time = $2, call_duration = $3, response_data = $4 WHERE call_sid = $5", 5},
	}
	for _, tc := range cases {
		q, args, err := BuildUpdateSQL("CA1", tc.u)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if q != tc.query {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.query, q)
		}
		if len(args) != tc.nargs || args[len(args)-1] != "CA1" {
			t.Fatalf("%s: unexpected args %v", tc.name, args)
		}
	}
}

func TestBuildUpdateSQL_EncodesResponseData(t *testing.T) {
	taken := false
	guess := 4
	in := ResponseData{
		PatientName:      "Ada Lovelace",
		Transcript:       "System: Hi\nPatient: fine\n",
		Mood:             MoodNeutral,
		MedicationsTaken: &taken,
		SecretNumber:     7,
		PatientGuess:     &guess,
		GameResult:       GameResultLoser,
		RecordedSteps:    []string{"greeting", "mood_check", "number_game"},
	}
	_, args, err := BuildUpdateSQL("CA1", Update{ResponseData: &in})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	raw, ok := args[0].([]byte)
	if !ok {
		t.Fatalf("expected json bytes, got %T", args[0])
	}

	var out ResponseData
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.MedicationsTaken == nil || *out.MedicationsTaken || *out.PatientGuess != 4 || out.SecretNumber != 7 {
		t.Fatalf("unexpected decoded data %+v", out)
	}
	if len(out.RecordedSteps) != 3 || out.Transcript != in.Transcript || out.Mood != MoodNeutral {
		t.Fatalf("unexpected decoded data %+v", out)
	}
}

func TestBuildUpdateSQL_RejectsEmpty(t *testing.T) {
	status := CallStatusFailed
	if _, _, err := BuildUpdateSQL("", Update{Status: &status}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for missing sid, got %v", err)
	}
	if _, _, err := BuildUpdateSQL("CA1", Update{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty update, got %v", err)
	}
}
