package interview_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prepwise/interviewd/internal/database"
	"github.com/prepwise/interviewd/internal/interview"
	"github.com/prepwise/interviewd/internal/migrations"
)

// fakeOracle counts evaluations and returns canned output.
type fakeOracle struct {
	mu          sync.Mutex
	evaluations int
	result      interview.Result
	err         error
	questions   []string
}

func (f *fakeOracle) EvaluateAnswer(_ context.Context, question, answer string) (interview.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluations++
	if f.err != nil {
		return interview.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeOracle) GenerateQuestions(_ context.Context, p interview.CreateParams) ([]string, error) {
	return f.questions, nil
}

func (f *fakeOracle) evaluationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evaluations
}

func (f *fakeOracle) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fixture struct {
	svc    *interview.Service
	oracle *fakeOracle
	iv     interview.Interview
}

// newFixture builds a service over in-memory SQLite with a three-question
// pending interview.
func newFixture(t *testing.T, completionSlack int) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	store := interview.NewStore(db)
	user, err := store.CreateUser(ctx, "Ada", "ada@example.com", "x")
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}

	oracle := &fakeOracle{
		result:    interview.Result{Overall: 7, Clarity: 8, Completeness: 6, Relevance: 9, Suggestion: "be specific"},
		questions: []string{"q one", "q two", "q three"},
	}
	svc := interview.NewService(store, oracle, slog.Default(), completionSlack)

	iv, err := svc.CreateInterview(ctx, user.ID, interview.CreateParams{
		Industry: "tech", Type: "technical", Topic: "go", Role: "backend",
		Difficulty: "medium", NumQuestions: 3, Duration: 120,
	})
	if err != nil {
		t.Fatalf("creating interview: %v", err)
	}
	return &fixture{svc: svc, oracle: oracle, iv: iv}
}

func (f *fixture) reload(t *testing.T) interview.Interview {
	t.Helper()
	iv, err := f.svc.GetInterviewByID(context.Background(), f.iv.ID)
	if err != nil {
		t.Fatalf("reloading interview: %v", err)
	}
	return iv
}

func TestCreateInterview(t *testing.T) {
	f := newFixture(t, 1)

	if f.iv.NumQuestions != 3 || len(f.iv.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d/%d", f.iv.NumQuestions, len(f.iv.Questions))
	}
	if f.iv.Status != interview.StatusPending {
		t.Errorf("status = %q, want pending", f.iv.Status)
	}
	if f.iv.DurationLeft != 120 {
		t.Errorf("durationLeft = %d, want 120", f.iv.DurationLeft)
	}

	got := f.reload(t)
	if len(got.Questions) != 3 {
		t.Fatalf("reloaded questions = %d, want 3", len(got.Questions))
	}
	if got.Questions[0].Text != "q one" {
		t.Errorf("question text = %q", got.Questions[0].Text)
	}
	if !got.Questions[0].Answer.IsEmpty() {
		t.Errorf("expected unanswered question")
	}
}

func TestUpdateRecordsAnswerAndScore(t *testing.T) {
	f := newFixture(t, 1)
	q := f.iv.Questions[0]

	res, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "100", q.ID, "my answer", false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Updated.Answered != 1 {
		t.Errorf("answered = %d, want 1", res.Updated.Answered)
	}

	got := f.reload(t)
	gq := got.Questions[0]
	if !gq.Completed {
		t.Error("question not marked completed")
	}
	if gq.Answer.Wire() != "my answer" {
		t.Errorf("answer = %q", gq.Answer.Wire())
	}
	if gq.Result == nil || gq.Result.Overall != 7 || gq.Result.Suggestion != "be specific" {
		t.Errorf("result = %+v", gq.Result)
	}
	if got.DurationLeft != 100 {
		t.Errorf("durationLeft = %d, want 100", got.DurationLeft)
	}
}

func TestAnsweredCountIdempotentPerQuestion(t *testing.T) {
	f := newFixture(t, 1)
	q := f.iv.Questions[0]

	for i := 0; i < 4; i++ {
		if _, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "90", q.ID, "revised", false); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	if got := f.reload(t); got.Answered != 1 {
		t.Errorf("answered = %d after repeated saves, want 1", got.Answered)
	}
}

func TestPassSentinelSkipsOracle(t *testing.T) {
	f := newFixture(t, 1)
	q := f.iv.Questions[1]

	if _, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "80", q.ID, "pass", false); err != nil {
		t.Fatalf("update: %v", err)
	}

	if n := f.oracle.evaluationCount(); n != 0 {
		t.Fatalf("oracle invoked %d times for a pass, want 0", n)
	}

	gq := f.reload(t).Questions[1]
	if gq.Answer.Kind != interview.AnswerSkipped {
		t.Errorf("answer kind = %q, want skipped", gq.Answer.Kind)
	}
	if gq.Result == nil {
		t.Fatal("missing result")
	}
	if gq.Result.Overall != 0 || gq.Result.Clarity != 0 || gq.Result.Completeness != 0 || gq.Result.Relevance != 0 {
		t.Errorf("pass scores = %+v, want all zero", gq.Result)
	}
	if gq.Result.Suggestion != interview.PassSuggestion {
		t.Errorf("suggestion = %q, want %q", gq.Result.Suggestion, interview.PassSuggestion)
	}
}

func TestStatusMonotonic(t *testing.T) {
	f := newFixture(t, 1)
	qs := f.iv.Questions

	if _, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "60", qs[0].ID, "a", true); err != nil {
		t.Fatalf("completing update: %v", err)
	}
	if got := f.reload(t); got.Status != interview.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}

	// Further saves never move the interview back to pending.
	if _, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "50", qs[1].ID, "b", false); err != nil {
		t.Fatalf("post-completion update: %v", err)
	}
	if got := f.reload(t); got.Status != interview.StatusCompleted {
		t.Errorf("status regressed to %q", got.Status)
	}
}

func TestCompletionThreshold(t *testing.T) {
	t.Run("slack 1 completes one question early", func(t *testing.T) {
		f := newFixture(t, 1)
		qs := f.iv.Questions

		f.mustUpdate(t, "100", qs[0].ID, "a")
		if got := f.reload(t); got.Status != interview.StatusPending {
			t.Fatalf("status after 1/3 = %q, want pending", got.Status)
		}
		f.mustUpdate(t, "90", qs[1].ID, "b")
		if got := f.reload(t); got.Status != interview.StatusCompleted {
			t.Errorf("status after 2/3 = %q, want completed", got.Status)
		}
	})

	t.Run("slack 0 requires every question", func(t *testing.T) {
		f := newFixture(t, 0)
		qs := f.iv.Questions

		f.mustUpdate(t, "100", qs[0].ID, "a")
		f.mustUpdate(t, "90", qs[1].ID, "b")
		if got := f.reload(t); got.Status != interview.StatusPending {
			t.Fatalf("status after 2/3 = %q, want pending", got.Status)
		}
		f.mustUpdate(t, "80", qs[2].ID, "c")
		if got := f.reload(t); got.Status != interview.StatusCompleted {
			t.Errorf("status after 3/3 = %q, want completed", got.Status)
		}
	})
}

func (f *fixture) mustUpdate(t *testing.T, timeLeft, questionID, answer string) {
	t.Helper()
	if _, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, timeLeft, questionID, answer, false); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestTimeLeftZeroForcesCompletion(t *testing.T) {
	f := newFixture(t, 1)

	// No answer at all: the "0" string comparison alone ends the interview.
	if _, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "0", f.iv.Questions[0].ID, "", false); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := f.reload(t)
	if got.DurationLeft != 0 {
		t.Errorf("durationLeft = %d, want 0", got.DurationLeft)
	}
	if got.Status != interview.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.Answered != 0 {
		t.Errorf("answered = %d, want 0", got.Answered)
	}
}

func TestEmptyAnswerLeavesQuestionsAlone(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "55", f.iv.Questions[0].ID, "", false); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := f.reload(t)
	if got.Answered != 0 || got.Questions[0].Completed {
		t.Errorf("empty answer mutated question state: answered=%d completed=%v",
			got.Answered, got.Questions[0].Completed)
	}
	// durationLeft is only coerced inside the answer branch.
	if got.DurationLeft != 120 {
		t.Errorf("durationLeft = %d, want 120", got.DurationLeft)
	}
}

func TestOracleFailureAbortsUpdate(t *testing.T) {
	f := newFixture(t, 1)
	f.oracle.setErr(errors.New("model unavailable"))

	_, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "70", f.iv.Questions[0].ID, "a", false)
	if err == nil {
		t.Fatal("expected error when oracle fails")
	}

	got := f.reload(t)
	if got.Answered != 0 || got.Questions[0].Completed || got.DurationLeft != 120 {
		t.Errorf("failed update leaked state: %+v", got)
	}
}

func TestUpdateUnknownQuestion(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.UpdateInterviewDetails(context.Background(), f.iv.ID, "70", "nope", "a", false)
	if !errors.Is(err, interview.ErrQuestionNotFound) {
		t.Fatalf("err = %v, want ErrQuestionNotFound", err)
	}
}

func TestUpdateUnknownInterview(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.UpdateInterviewDetails(context.Background(), "missing", "70", "q", "a", false)
	if !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteUserInterview(t *testing.T) {
	f := newFixture(t, 1)

	if err := f.svc.DeleteUserInterview(context.Background(), f.iv.ID, "someone-else"); !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := f.svc.DeleteUserInterview(context.Background(), f.iv.ID, f.iv.UserID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetInterviewByID(context.Background(), f.iv.ID); !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestListUserInterviews(t *testing.T) {
	f := newFixture(t, 1)

	list, err := f.svc.ListUserInterviews(context.Background(), f.iv.UserID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != f.iv.ID {
		t.Fatalf("list = %+v", list)
	}

	completed, err := f.svc.ListUserInterviews(context.Background(), f.iv.UserID, interview.StatusCompleted)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 0 {
		t.Fatalf("completed list = %+v, want empty", completed)
	}
}
