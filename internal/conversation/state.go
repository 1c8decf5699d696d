package conversation

// State is one step of the check-in script. It is carried in the webhook path.
type State string

const (
	StateGreeting           State = "greeting"
	StateMoodCheck          State = "mood_check"
	StateScheduleCheck      State = "schedule_check"
	StateMedicationReminder State = "medication_reminder"
	StateNumberGame         State = "number_game"
	StateNumberGameResponse State = "number_game_response"
	StateClosing            State = "closing"
	StateError              State = "error"
	StateEnd                State = "end"
)

// States lists every state in script order, with error last.
var States = []State{
	StateGreeting,
	StateMoodCheck,
	StateScheduleCheck,
	StateMedicationReminder,
	StateNumberGame,
	StateNumberGameResponse,
	StateClosing,
	StateEnd,
	StateError,
}

// ParseState maps a callback path segment to a state. Anything that is not a
// resumable step (including "end") parses to StateError.
func ParseState(path string) State {
	switch s := State(path); s {
	case StateGreeting, StateMoodCheck, StateScheduleCheck, StateMedicationReminder,
		StateNumberGame, StateNumberGameResponse, StateClosing, StateError:
		return s
	default:
		return StateError
	}
}

// NextState is the fixed script order. It is total: end maps to end and error
// recovers into closing.
func NextState(s State) State {
	switch s {
	case StateGreeting:
		return StateMoodCheck
	case StateMoodCheck:
		return StateScheduleCheck
	case StateScheduleCheck:
		return StateMedicationReminder
	case StateMedicationReminder:
		return StateNumberGame
	case StateNumberGame:
		return StateNumberGameResponse
	case StateNumberGameResponse:
		return StateClosing
	case StateClosing:
		return StateEnd
	case StateError:
		return StateClosing
	case StateEnd:
		return StateEnd
	default:
		return StateEnd
	}
}

// SilenceTarget is where the call goes when the patient says nothing after
// being asked the question of state s. An unanswered guess is scored at
// number_game_response.
func SilenceTarget(s State) State {
	if s == StateNumberGame {
		return StateNumberGameResponse
	}
	return s
}

// stepKey groups states that write the same fields. Both game states share one key
// so only the first of them evaluates a guess.
func stepKey(s State) string {
	switch s {
	case StateNumberGame, StateNumberGameResponse:
		return string(StateNumberGame)
	default:
		return string(s)
	}
}
