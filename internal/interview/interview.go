// Package interview holds the server-of-record model for timed interviews
// and the persistence service the session layer drives.
package interview

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrQuestionNotFound = errors.New("question not found in interview")
	ErrNoQuestions      = errors.New("interview has no questions")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Result is the scoring outcome for one answered question. Scores are
// integers in [0, 10].
type Result struct {
	Overall      int    `json:"overallScore"`
	Clarity      int    `json:"clarity"`
	Completeness int    `json:"completeness"`
	Relevance    int    `json:"relevance"`
	Suggestion   string `json:"suggestion"`
}

// PassResult is recorded for skipped questions without consulting the oracle.
func PassResult() Result {
	return Result{Suggestion: PassSuggestion}
}

type Question struct {
	ID        string  `json:"id"`
	Text      string  `json:"question"`
	Answer    Answer  `json:"-"`
	Completed bool    `json:"completed"`
	Result    *Result `json:"result,omitempty"`
}

// Interview is one timed question-answering session for a user.
// DurationLeft is authoritative: it only decreases, and Status moves
// pending -> completed exactly once.
type Interview struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Industry     string     `json:"industry"`
	Type         string     `json:"type"`
	Topic        string     `json:"topic"`
	Role         string     `json:"role"`
	Difficulty   string     `json:"difficulty"`
	NumQuestions int        `json:"numOfQuestion"`
	Answered     int        `json:"answered"`
	Duration     int        `json:"duration"`
	DurationLeft int        `json:"durationLeft"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	Questions    []Question `json:"questions"`
}

// Question returns the question with the given id, or ErrQuestionNotFound.
func (iv *Interview) Question(id string) (*Question, error) {
	for i := range iv.Questions {
		if iv.Questions[i].ID == id {
			return &iv.Questions[i], nil
		}
	}
	return nil, ErrQuestionNotFound
}

// FirstUnanswered returns the index of the first question without an answer,
// or 0 when every question has one.
func (iv *Interview) FirstUnanswered() int {
	for i := range iv.Questions {
		if iv.Questions[i].Answer.IsEmpty() {
			return i
		}
	}
	return 0
}

// CreateParams are the user-submitted interview parameters.
type CreateParams struct {
	Industry     string `json:"industry"`
	Type         string `json:"type"`
	Topic        string `json:"topic"`
	Role         string `json:"role"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"numOfQuestion"`
	Duration     int    `json:"duration"`
}

// Oracle grades free-text answers and generates question sets. Implemented
// by the OpenAI client in internal/scoring; tests substitute fakes. It must
// fail closed: no usable content is an error, never a zero Result.
type Oracle interface {
	EvaluateAnswer(ctx context.Context, question, answer string) (Result, error)
	GenerateQuestions(ctx context.Context, p CreateParams) ([]string, error)
}

// User is the minimal account record backing the ownership checks. Account
// registration lives elsewhere; this service only resolves tokens.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
