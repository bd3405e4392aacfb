package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the SQLite-backed record store for users and interviews.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (User, error) {
	u := User{ID: uuid.NewString(), Name: name, Email: email}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, passwordHash)
	if err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// UserByEmail returns the user and its password hash for credential checks.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Name, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	return u, hash, err
}

// CreateUserSession issues an opaque bearer token for the user.
func (s *Store) CreateUserSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_sessions (id, user_id) VALUES (?, ?)
	`, token, userID)
	if err != nil {
		return "", fmt.Errorf("inserting session: %w", err)
	}
	return token, nil
}

func (s *Store) UserFromToken(ctx context.Context, token string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
	`, token).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) DeleteUserSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ?`, token)
	return err
}

// CreateInterview inserts the interview and its questions in one transaction.
func (s *Store) CreateInterview(ctx context.Context, iv *Interview) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO interviews
			(id, user_id, industry, interview_type, topic, role, difficulty,
			 num_questions, answered, duration, duration_left, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, iv.ID, iv.UserID, iv.Industry, iv.Type, iv.Topic, iv.Role, iv.Difficulty,
		iv.NumQuestions, iv.Answered, iv.Duration, iv.DurationLeft, iv.Status,
		iv.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting interview: %w", err)
	}

	for i, q := range iv.Questions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO questions (id, interview_id, position, question, answer, answer_kind, completed)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`, q.ID, iv.ID, i, q.Text, q.Answer.Wire(), q.Answer.storageKind())
		if err != nil {
			return fmt.Errorf("inserting question %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetInterview loads an interview with its questions in order.
func (s *Store) GetInterview(ctx context.Context, id string) (Interview, error) {
	var iv Interview
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, industry, interview_type, topic, role, difficulty,
		       num_questions, answered, duration, duration_left, status, created_at
		FROM interviews WHERE id = ?
	`, id).Scan(&iv.ID, &iv.UserID, &iv.Industry, &iv.Type, &iv.Topic, &iv.Role,
		&iv.Difficulty, &iv.NumQuestions, &iv.Answered, &iv.Duration,
		&iv.DurationLeft, &iv.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Interview{}, ErrNotFound
	}
	if err != nil {
		return Interview{}, err
	}
	iv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, answer, answer_kind, completed,
		       overall_score, clarity_score, completeness_score, relevance_score, suggestion
		FROM questions WHERE interview_id = ? ORDER BY position
	`, id)
	if err != nil {
		return Interview{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var q Question
		var answer string
		var kind AnswerKind
		var overall, clarity, completeness, relevance sql.NullInt64
		var suggestion sql.NullString
		if err := rows.Scan(&q.ID, &q.Text, &answer, &kind, &q.Completed,
			&overall, &clarity, &completeness, &relevance, &suggestion); err != nil {
			return Interview{}, err
		}
		q.Answer = Answer{Kind: kind, Text: ""}
		if kind == AnswerText {
			q.Answer.Text = answer
		}
		if overall.Valid {
			q.Result = &Result{
				Overall:      int(overall.Int64),
				Clarity:      int(clarity.Int64),
				Completeness: int(completeness.Int64),
				Relevance:    int(relevance.Int64),
				Suggestion:   suggestion.String,
			}
		}
		iv.Questions = append(iv.Questions, q)
	}
	return iv, rows.Err()
}

// Summary is one row of a user's interview list.
type Summary struct {
	ID           string    `json:"id"`
	Industry     string    `json:"industry"`
	Type         string    `json:"type"`
	Topic        string    `json:"topic"`
	Role         string    `json:"role"`
	Difficulty   string    `json:"difficulty"`
	NumQuestions int       `json:"numOfQuestion"`
	Answered     int       `json:"answered"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListInterviews returns the user's interviews, newest first, optionally
// filtered by status.
func (s *Store) ListInterviews(ctx context.Context, userID string, status Status) ([]Summary, error) {
	query := `
		SELECT id, industry, interview_type, topic, role, difficulty,
		       num_questions, answered, status, created_at
		FROM interviews WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var createdAt string
		if err := rows.Scan(&sum.ID, &sum.Industry, &sum.Type, &sum.Topic, &sum.Role,
			&sum.Difficulty, &sum.NumQuestions, &sum.Answered, &sum.Status, &createdAt); err != nil {
			return nil, err
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SaveProgress persists the mutable interview fields and, when q is non-nil,
// the touched question row. The status update never moves a completed
// interview back to pending, whatever the in-memory copy says.
func (s *Store) SaveProgress(ctx context.Context, iv *Interview, q *Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE interviews
		SET answered = ?,
		    duration_left = ?,
		    status = CASE WHEN status = 'completed' THEN 'completed' ELSE ? END
		WHERE id = ?
	`, iv.Answered, iv.DurationLeft, iv.Status, iv.ID)
	if err != nil {
		return fmt.Errorf("updating interview: %w", err)
	}

	if q != nil {
		var overall, clarity, completeness, relevance sql.NullInt64
		var suggestion sql.NullString
		if q.Result != nil {
			overall = sql.NullInt64{Int64: int64(q.Result.Overall), Valid: true}
			clarity = sql.NullInt64{Int64: int64(q.Result.Clarity), Valid: true}
			completeness = sql.NullInt64{Int64: int64(q.Result.Completeness), Valid: true}
			relevance = sql.NullInt64{Int64: int64(q.Result.Relevance), Valid: true}
			suggestion = sql.NullString{String: q.Result.Suggestion, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE questions
			SET answer = ?, answer_kind = ?, completed = ?,
			    overall_score = ?, clarity_score = ?, completeness_score = ?,
			    relevance_score = ?, suggestion = ?
			WHERE id = ? AND interview_id = ?
		`, q.Answer.Wire(), q.Answer.storageKind(), q.Completed,
			overall, clarity, completeness, relevance, suggestion, q.ID, iv.ID)
		if err != nil {
			return fmt.Errorf("updating question: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteInterview removes the user's interview. Questions cascade.
func (s *Store) DeleteInterview(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM interviews WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
