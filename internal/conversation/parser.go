package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"checkin-calls/internal/calls"
)

// Phrase and keyword lists are tuned for how elderly patients tend to answer.
var (
	negativeMoodPhrases = phrases(
		"not good", "not well", "not great", "not so good", "not so great", "not too good",
		"not very good", "not very well", "not feeling well", "not feeling good", "not feeling great",
		"not doing well", "not doing good", "not doing great", "not okay", "not ok", "not fine",
		"under the weather", "could be better", "been better", "feeling down", "feeling low",
		"out of sorts", "not myself",
	)
	positiveMoodPhrases = phrases(
		"can't complain", "cannot complain", "not bad", "pretty good", "doing well", "feeling good",
		"feeling great", "feeling fine", "very well", "never better", "on top of the world",
		"in good spirits",
	)
	neutralMoodPhrases = phrases(
		"not too bad", "so so", "same as usual", "same as always", "nothing special", "could be worse",
		"up and down", "hanging in there", "getting by", "same old",
	)
	positiveMoodWords = words(
		"good", "great", "fine", "well", "wonderful", "excellent", "fantastic", "happy", "terrific",
		"better", "lovely", "marvelous", "splendid", "superb", "amazing", "cheerful",
	)
	negativeMoodWords = words(
		"bad", "sad", "tired", "sick", "pain", "hurt", "hurts", "hurting", "awful", "terrible",
		"lonely", "depressed", "dizzy", "exhausted", "unwell", "ill", "poorly", "miserable", "worse",
		"weak", "aching", "sore", "upset", "worried", "anxious",
	)
	neutralMoodWords = words("okay", "ok", "alright", "fair", "average", "meh")

	negators = words("not", "never", "isn't", "don't", "doesn't", "ain't", "wasn't", "hardly")

	uncertainPhrases = phrases("not sure", "don't know", "don't remember", "can't remember", "i think so")
	yesPhrases       = phrases(
		"yes", "yeah", "yep", "yup", "sure", "i have", "i did", "of course", "already", "i took",
		"certainly", "absolutely", "uh huh",
	)
	noPhrases = phrases("no", "nope", "nah", "not", "haven't", "didn't", "forgot", "not yet")

	digitRun = regexp.MustCompile(`\d+`)

	numberWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}
)

// ClassifyMood maps a free-form answer to a mood. Phrases beat single words and
// negative phrases are tested first, so "not good" is never positive.
func ClassifyMood(text string) calls.Mood {
	toks := tokenize(text)
	if len(toks) == 0 {
		return calls.MoodUnknown
	}

	if _, ok := findAny(toks, negativeMoodPhrases); ok {
		return calls.MoodNegative
	}
	if i, ok := findAny(toks, positiveMoodPhrases); ok {
		if negated(toks, i) {
			return calls.MoodNegative
		}
		return calls.MoodPositive
	}
	if _, ok := findAny(toks, neutralMoodPhrases); ok {
		return calls.MoodNeutral
	}

	for i, t := range toks {
		if !positiveMoodWords[t] {
			continue
		}
		// "Well, ..." as an opener is a filler.
		if t == "well" && i == 0 && len(toks) > 1 {
			continue
		}
		if negated(toks, i) {
			return calls.MoodNegative
		}
		return calls.MoodPositive
	}
	if containsWord(toks, negativeMoodWords) {
		return calls.MoodNegative
	}
	if containsWord(toks, neutralMoodWords) {
		return calls.MoodNeutral
	}
	return calls.MoodUnknown
}

// ClassifyYesNo returns true or false for a recognised answer and nil when the
// answer is unclear. Yes phrases are checked first and win when both sets
// match; an uncertain answer only counts when no yes phrase was heard.
func ClassifyYesNo(text string) *bool {
	toks := tokenize(text)
	if len(toks) == 0 {
		return nil
	}

	for _, p := range yesPhrases {
		for _, i := range findAll(toks, p) {
			// "i have not" negates the phrase itself; a bare "yes, not yet" is still yes.
			end := i + len(p)
			if len(p) > 1 && end < len(toks) && toks[end] == "not" {
				continue
			}
			// "not sure"
			if i > 0 && toks[i-1] == "not" {
				continue
			}
			return boolPtr(true)
		}
	}
	if _, ok := findAny(toks, uncertainPhrases); ok {
		return nil
	}
	if _, ok := findAny(toks, noPhrases); ok {
		return boolPtr(false)
	}
	return nil
}

// Guess is a parsed number-game answer. Value is nil when no number was heard.
type Guess struct {
	Value  *int
	Result calls.GameResult
}

// ParseNumberGuess extracts the patient's guess and scores it against secret.
// Digits take precedence over number words; numbers outside 1..10 are invalid.
func ParseNumberGuess(text string, secret int) Guess {
	if m := digitRun.FindString(text); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return Guess{Result: calls.GameResultInvalid}
		}
		return score(n, secret)
	}
	for _, t := range tokenize(text) {
		if n, ok := numberWords[t]; ok {
			return score(n, secret)
		}
	}
	return Guess{Result: calls.GameResultInvalid}
}

func score(n, secret int) Guess {
	g := Guess{Value: &n}
	switch {
	case n < 1 || n > 10:
		g.Result = calls.GameResultInvalid
	case n == secret:
		g.Result = calls.GameResultWinner
	default:
		g.Result = calls.GameResultLoser
	}
	return g
}

// tokenize lower-cases, folds curly apostrophes and splits on anything that is
// not a letter, digit or apostrophe. "so-so" becomes "so so".
func tokenize(text string) []string {
	text = strings.ToLower(text)
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
}

func phrases(in ...string) [][]string {
	out := make([][]string, 0, len(in))
	for _, p := range in {
		out = append(out, tokenize(p))
	}
	return out
}

func words(in ...string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, w := range in {
		out[w] = true
	}
	return out
}

func findAll(toks, phrase []string) []int {
	var out []int
	for i := 0; i+len(phrase) <= len(toks); i++ {
		match := true
		for j, p := range phrase {
			if toks[i+j] != p {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}

// findAny returns the earliest position of any phrase in list order.
func findAny(toks []string, list [][]string) (int, bool) {
	for _, p := range list {
		if idx := findAll(toks, p); len(idx) > 0 {
			return idx[0], true
		}
	}
	return 0, false
}

func containsWord(toks []string, set map[string]bool) bool {
	for _, t := range toks {
		if set[t] {
			return true
		}
	}
	return false
}

// negated reports whether one of the three tokens before i negates it.
func negated(toks []string, i int) bool {
	for j := max(0, i-3); j < i; j++ {
		if negators[toks[j]] {
			return true
		}
	}
	return false
}

func boolPtr(b bool) *bool { return &b }
