// Package sessioncache stores the ephemeral per-interview session state: a
// snapshot of the current question position plus time remaining, and a
// mirror of per-question answer text. Entries are best-effort; the
// interview record in SQLite stays the source of truth.
package sessioncache

import (
	"context"
	"fmt"
)

// Snapshot is the resumable position of an open interview session.
// LastUpdated is milliseconds since the epoch.
type Snapshot struct {
	CurrentQuestionIndex int   `json:"currentQuestionIndex"`
	TimeLeft             int   `json:"timeLeft"`
	LastUpdated          int64 `json:"lastUpdated"`
}

// Store is the key-value abstraction over the two per-interview entries.
// The ok return on reads distinguishes "absent" from "failed".
type Store interface {
	Snapshot(ctx context.Context, interviewID string) (Snapshot, bool, error)
	PutSnapshot(ctx context.Context, interviewID string, s Snapshot) error

	Answers(ctx context.Context, interviewID string) (map[string]string, bool, error)
	PutAnswers(ctx context.Context, interviewID string, answers map[string]string) error

	// Delete removes both entries for the interview.
	Delete(ctx context.Context, interviewID string) error

	Ping(ctx context.Context) error
}

func snapshotKey(interviewID string) string {
	return fmt.Sprintf("interview_%s_session", interviewID)
}

func answersKey(interviewID string) string {
	return fmt.Sprintf("interview_%s_answers", interviewID)
}
