// Package session hosts the live state of an interview being taken: the
// countdown, the periodic snapshot, the debounced answer autosave, and the
// navigation machine that moves between questions and ends the session.
//
// One Controller owns one open interview. All state is guarded by a single
// mutex, but remote saves are awaited with the mutex released so the
// countdown and snapshot loops keep running while a save is in flight; a
// saving flag keeps the transitions themselves mutually exclusive. An
// explicit Next, Pass, or SaveAndExit and a pending debounced autosave for
// the same question may still race at the persistence layer, where the
// last write wins. That is an accepted property of this domain; a per
// question write sequence drops debounced writes that were superseded
// before they fired.
package session

import (
	"context"
	"errors"

	"github.com/prepwise/interviewd/internal/interview"
)

var (
	// ErrAlreadyCompleted means the interview finished before the session
	// was opened; callers should send the user to the results view.
	ErrAlreadyCompleted = errors.New("interview already completed")

	// ErrSessionOver means the session reached a terminal state and no
	// further transitions are accepted.
	ErrSessionOver = errors.New("session is over")

	// ErrSaveInFlight means another transition's save is still being
	// awaited; retry once it settles.
	ErrSaveInFlight = errors.New("a save is already in progress")

	ErrIndexOutOfRange = errors.New("question index out of range")
)

type State string

const (
	// StateAnswering is the working state: one question is on screen.
	StateAnswering State = "answering"
	// StateCompleting means the final completion write failed and may be
	// retried by invoking Next again.
	StateCompleting State = "completing"
	StateCompleted  State = "completed"
	// StateExited is the early-exit terminal state: the interview was
	// marked completed server-side but session cache entries remain.
	StateExited State = "exited"
)

// PersistenceService is the slice of the interview service the session
// layer drives.
type PersistenceService interface {
	GetInterviewByID(ctx context.Context, id string) (interview.Interview, error)
	UpdateInterviewDetails(ctx context.Context, interviewID, timeLeft, questionID, answer string, completed bool) (interview.UpdateResult, error)
}

// Event is a UI-facing session notification, delivered over SSE.
type Event struct {
	Type     string `json:"type"`
	TimeLeft int    `json:"timeLeft,omitempty"`
	Message  string `json:"message,omitempty"`
}

const (
	EventTimeWarning = "time_warning"
	EventCompleted   = "interview_completed"
	EventExited      = "session_exited"
)

// Publisher fans session events out to subscribers. Publishing must not
// block; slow consumers are the publisher's problem, not the session's.
type Publisher interface {
	Publish(interviewID string, ev Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(string, Event) {}
