package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Service implements the interview persistence contract over the store and
// the scoring oracle. It is the single writer of interview records.
type Service struct {
	store  *Store
	oracle Oracle
	logger *slog.Logger

	// completionSlack is how many questions may remain unanswered when the
	// interview is auto-marked completed. The inherited behavior is 1,
	// i.e. the interview completes one question early; see DESIGN.md.
	completionSlack int
}

func NewService(store *Store, oracle Oracle, logger *slog.Logger, completionSlack int) *Service {
	if completionSlack < 0 {
		completionSlack = 0
	}
	return &Service{
		store:           store,
		oracle:          oracle,
		logger:          logger,
		completionSlack: completionSlack,
	}
}

// CreateInterview generates the question set and persists a fresh pending
// interview owned by userID.
func (s *Service) CreateInterview(ctx context.Context, userID string, p CreateParams) (Interview, error) {
	if p.NumQuestions <= 0 {
		return Interview{}, fmt.Errorf("numOfQuestion must be positive")
	}
	if p.Duration <= 0 {
		return Interview{}, fmt.Errorf("duration must be positive")
	}

	texts, err := s.oracle.GenerateQuestions(ctx, p)
	if err != nil {
		return Interview{}, fmt.Errorf("generating questions: %w", err)
	}
	if len(texts) == 0 {
		return Interview{}, ErrNoQuestions
	}
	if len(texts) > p.NumQuestions {
		texts = texts[:p.NumQuestions]
	}

	iv := Interview{
		ID:           uuid.NewString(),
		UserID:       userID,
		Industry:     p.Industry,
		Type:         p.Type,
		Topic:        p.Topic,
		Role:         p.Role,
		Difficulty:   p.Difficulty,
		NumQuestions: len(texts),
		Duration:     p.Duration,
		DurationLeft: p.Duration,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	for _, text := range texts {
		iv.Questions = append(iv.Questions, Question{
			ID:   uuid.NewString(),
			Text: text,
		})
	}

	if err := s.store.CreateInterview(ctx, &iv); err != nil {
		return Interview{}, err
	}

	s.logger.Info("interview created",
		"interview_id", iv.ID, "user_id", userID, "questions", len(texts))
	return iv, nil
}

// GetInterviewByID loads the interview with its questions.
func (s *Service) GetInterviewByID(ctx context.Context, id string) (Interview, error) {
	return s.store.GetInterview(ctx, id)
}

// ListUserInterviews returns the user's interviews, optionally by status.
func (s *Service) ListUserInterviews(ctx context.Context, userID string, status Status) ([]Summary, error) {
	return s.store.ListInterviews(ctx, userID, status)
}

// DeleteUserInterview removes an interview owned by userID.
func (s *Service) DeleteUserInterview(ctx context.Context, id, userID string) error {
	return s.store.DeleteInterview(ctx, id, userID)
}

// UpdateResult is returned by UpdateInterviewDetails.
type UpdateResult struct {
	Updated Interview
	Message string
}

// UpdateInterviewDetails records an answer and the remaining time for one
// question, scoring the answer through the oracle, and applies the
// completion rules. timeLeft arrives as a string; the contract's "0"
// comparison is on the string form, before numeric coercion.
//
// The answered counter is idempotent per question: re-saving an already
// completed question never increments it again. Status is monotonic; once
// completed an interview never reverts to pending.
func (s *Service) UpdateInterviewDetails(ctx context.Context, interviewID, timeLeft, questionID, answer string, completed bool) (UpdateResult, error) {
	iv, err := s.store.GetInterview(ctx, interviewID)
	if err != nil {
		return UpdateResult{}, err
	}

	var touched *Question

	if answer != "" {
		q, err := iv.Question(questionID)
		if err != nil {
			return UpdateResult{}, err
		}

		parsed := ParseAnswer(answer)

		var result Result
		if parsed.Kind == AnswerSkipped {
			result = PassResult()
		} else {
			result, err = s.oracle.EvaluateAnswer(ctx, q.Text, answer)
			if err != nil {
				return UpdateResult{}, fmt.Errorf("scoring answer: %w", err)
			}
		}

		if !q.Completed {
			iv.Answered++
		}
		q.Answer = parsed
		q.Completed = true
		q.Result = &result
		touched = q

		left, err := strconv.Atoi(timeLeft)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("parsing timeLeft %q: %w", timeLeft, err)
		}
		iv.DurationLeft = left
	}

	if iv.Answered >= iv.NumQuestions-s.completionSlack || completed {
		iv.Status = StatusCompleted
	}

	if timeLeft == "0" {
		iv.DurationLeft = 0
		iv.Status = StatusCompleted
	}

	if err := s.store.SaveProgress(ctx, &iv, touched); err != nil {
		return UpdateResult{}, err
	}

	s.logger.Debug("interview updated",
		"interview_id", interviewID, "question_id", questionID,
		"answered", iv.Answered, "status", iv.Status, "duration_left", iv.DurationLeft)

	return UpdateResult{Updated: iv, Message: "interview updated"}, nil
}
