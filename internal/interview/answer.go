package interview

// passSentinel is the wire value recorded when a candidate skips a question.
// It is quirky but load-bearing: clients and stored rows both carry it, so
// the tagged Answer type below exists to keep the rest of the code from
// string-matching on it.
const passSentinel = "pass"

// PassSuggestion is the fixed suggestion recorded for skipped questions.
const PassSuggestion = "No suggestions provided."

type AnswerKind string

const (
	AnswerEmpty   AnswerKind = "empty"
	AnswerSkipped AnswerKind = "skipped"
	AnswerText    AnswerKind = "text"
)

// Answer is a tagged variant: a question is unanswered, skipped, or answered
// with free text.
type Answer struct {
	Kind AnswerKind
	Text string
}

// ParseAnswer maps a wire answer string onto the tagged form. The sentinel
// takes precedence over literal text.
func ParseAnswer(s string) Answer {
	switch s {
	case "":
		return Answer{Kind: AnswerEmpty}
	case passSentinel:
		return Answer{Kind: AnswerSkipped}
	default:
		return Answer{Kind: AnswerText, Text: s}
	}
}

// Skipped returns the skip answer.
func Skipped() Answer {
	return Answer{Kind: AnswerSkipped}
}

// Wire returns the string form stored and exchanged with clients.
func (a Answer) Wire() string {
	switch a.Kind {
	case AnswerSkipped:
		return passSentinel
	case AnswerText:
		return a.Text
	default:
		return ""
	}
}

// IsEmpty reports whether the question is still unanswered. The zero value
// of Answer counts as empty.
func (a Answer) IsEmpty() bool {
	return a.Kind == AnswerEmpty || a.Kind == ""
}

// storageKind normalizes the zero value for persistence; the questions
// table constrains answer_kind to the three named kinds.
func (a Answer) storageKind() AnswerKind {
	if a.Kind == "" {
		return AnswerEmpty
	}
	return a.Kind
}
