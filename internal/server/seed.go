package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/prepwise/interviewd/internal/interview"
)

const (
	demoEmail    = "demo@prepwise.dev"
	demoPassword = "demo1234"
)

// SeedDemo creates a demo user with one pending interview if no users
// exist. Idempotent: does nothing on a populated database. The canned
// questions bypass the oracle so a fresh checkout works without an API key.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *interview.Store) error {
	n, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := store.CreateUser(ctx, "Demo User", demoEmail, string(hash))
	if err != nil {
		return err
	}

	svc := interview.NewService(store, staticOracle{}, logger, 1)
	iv, err := svc.CreateInterview(ctx, user.ID, interview.CreateParams{
		Industry:     "Technology",
		Type:         "technical",
		Topic:        "Go backend development",
		Role:         "Backend Engineer",
		Difficulty:   "medium",
		NumQuestions: 3,
		Duration:     600,
	})
	if err != nil {
		return err
	}

	logger.Info("demo user seeded", "email", demoEmail, "interview_id", iv.ID)
	return nil
}

// staticOracle backs the demo seed; it never scores anything.
type staticOracle struct{}

func (staticOracle) EvaluateAnswer(context.Context, string, string) (interview.Result, error) {
	return interview.Result{}, nil
}

func (staticOracle) GenerateQuestions(_ context.Context, p interview.CreateParams) ([]string, error) {
	return []string{
		"Explain how a goroutine differs from an OS thread.",
		"How would you design idempotent writes against a relational store?",
		"Walk through debugging a service that leaks timers.",
	}, nil
}
