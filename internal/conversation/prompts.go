package conversation

import (
	"strconv"
	"strings"

	"checkin-calls/internal/calls"
)

// Lines are kept short; every character is billed by the speech backend.
const (
	moodQuestion       = "How are you feeling today?"
	scheduleQuestion   = "What are your plans for today?"
	medicationQuestion = "Have you taken your medications?"
	gameQuestion       = "Let's play a guessing game. I'm thinking of a number between 1 and 10. What's your guess?"
	gameFallback       = "Let's continue."
	closingPrompt      = "Thank you. Have a wonderful day!"
	errorPrompt        = "Sorry, I didn't catch that. Let's continue."
	endPrompt          = "Goodbye!"

	ackNegativeMood = "I'm sorry to hear that. Let me know if you need help."
	ackPositiveMood = "That's wonderful to hear!"
	ackOtherMood    = "Thank you for sharing."
	ackMedsMissed   = "Please remember to take them soon."
	ackMedsTaken    = "Very good!"

	// NoInputMessage is spoken when the patient stays silent after a question.
	NoInputMessage = "Let's continue."
	// InitialNoInputMessage is spoken when the patient stays silent after the greeting.
	InitialNoInputMessage = "I didn't hear a response. Let's continue."
	// UnknownCallGreeting is spoken when the provider calls back for a call we have no record of.
	UnknownCallGreeting = "Hello, this is your daily check-in call."
	// CannotContinueMessage ends a turn that lost its call record.
	CannotContinueMessage = "I'm sorry, I can't continue with this call."
	// ApologyMessage ends a call after an unexpected failure.
	ApologyMessage = "We're sorry, an error occurred. Goodbye."

	// NoPlansMentioned is stored when the schedule answer was empty.
	NoPlansMentioned = "No specific plans mentioned"
)

// Prompt returns the line spoken when entering state s.
func Prompt(s State, firstName string) string {
	switch s {
	case StateGreeting:
		if firstName == "" {
			return "Hi, this is your daily check-in call."
		}
		return "Hi " + firstName + ", this is your daily check-in call."
	case StateMoodCheck:
		return moodQuestion
	case StateScheduleCheck:
		return scheduleQuestion
	case StateMedicationReminder:
		return medicationQuestion
	case StateNumberGame:
		return gameQuestion
	case StateNumberGameResponse:
		return gameFallback
	case StateClosing:
		return closingPrompt
	case StateError:
		return errorPrompt
	case StateEnd:
		return endPrompt
	default:
		return endPrompt
	}
}

// GameFeedback names the secret number whatever the result.
func GameFeedback(result calls.GameResult, secret int) string {
	n := strconv.Itoa(secret)
	if result == calls.GameResultWinner {
		return "Nicely done! You correctly guessed the number was " + n + "."
	}
	return "Good try! The number was " + n + "."
}

// Acknowledgement reacts to the answer just given in state s. It is empty for
// states that do not acknowledge.
func Acknowledgement(s State, data calls.ResponseData) string {
	switch s {
	case StateMoodCheck:
		switch data.Mood {
		case calls.MoodNegative:
			return ackNegativeMood
		case calls.MoodPositive:
			return ackPositiveMood
		default:
			return ackOtherMood
		}
	case StateMedicationReminder:
		if data.MedicationsTaken != nil && !*data.MedicationsTaken {
			return ackMedsMissed
		}
		return ackMedsTaken
	case StateError:
		return errorPrompt
	default:
		return ""
	}
}

// FirstName returns the first word of a full name.
func FirstName(fullName string) string {
	if f := strings.Fields(fullName); len(f) > 0 {
		return f[0]
	}
	return ""
}

// ClosingLine is the last thing said before hanging up.
func ClosingLine(firstName string) string {
	if firstName == "" {
		return closingPrompt
	}
	return "Thank you, " + firstName + ". Have a wonderful day!"
}

func joinLines(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
