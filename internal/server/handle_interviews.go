package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepwise/interviewd/internal/interview"
)

// CreateInterviewResponse is returned by POST /api/interviews.
type CreateInterviewResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

func handleCreateInterview(svc *interview.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params interview.CreateParams
		if err := readJSON(r, &params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if params.NumQuestions <= 0 || params.Duration <= 0 {
			writeError(w, http.StatusBadRequest, "numOfQuestion and duration must be positive")
			return
		}

		user := userFrom(r)
		iv, err := svc.CreateInterview(r.Context(), user.ID, params)
		if err != nil {
			writeError(w, http.StatusBadGateway, "creating interview failed")
			return
		}

		writeJSON(w, http.StatusCreated, CreateInterviewResponse{Success: true, ID: iv.ID})
	}
}

// QuestionView is one question as presented to the owning user. The answer
// is the wire form: empty, the skip sentinel, or free text.
type QuestionView struct {
	ID        string            `json:"id"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Completed bool              `json:"completed"`
	Result    *interview.Result `json:"result,omitempty"`
}

// InterviewResponse is returned by GET /api/interviews/{id}. Results are
// included only once the interview is completed.
type InterviewResponse struct {
	ID           string           `json:"id"`
	Industry     string           `json:"industry"`
	Type         string           `json:"type"`
	Topic        string           `json:"topic"`
	Role         string           `json:"role"`
	Difficulty   string           `json:"difficulty"`
	NumQuestions int              `json:"numOfQuestion"`
	Answered     int              `json:"answered"`
	Duration     int              `json:"duration"`
	DurationLeft int              `json:"durationLeft"`
	Status       interview.Status `json:"status"`
	Questions    []QuestionView   `json:"questions"`
}

func handleGetInterview(svc *interview.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iv, ok := ownedInterview(w, r, svc)
		if !ok {
			return
		}

		resp := InterviewResponse{
			ID:           iv.ID,
			Industry:     iv.Industry,
			Type:         iv.Type,
			Topic:        iv.Topic,
			Role:         iv.Role,
			Difficulty:   iv.Difficulty,
			NumQuestions: iv.NumQuestions,
			Answered:     iv.Answered,
			Duration:     iv.Duration,
			DurationLeft: iv.DurationLeft,
			Status:       iv.Status,
		}
		for _, q := range iv.Questions {
			view := QuestionView{
				ID:        q.ID,
				Question:  q.Text,
				Answer:    q.Answer.Wire(),
				Completed: q.Completed,
			}
			if iv.Status == interview.StatusCompleted {
				view.Result = q.Result
			}
			resp.Questions = append(resp.Questions, view)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ListInterviewsResponse is returned by GET /api/interviews.
type ListInterviewsResponse struct {
	Interviews []interview.Summary `json:"interviews"`
}

func handleListInterviews(svc *interview.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := interview.Status(r.URL.Query().Get("status"))
		switch status {
		case "", interview.StatusPending, interview.StatusCompleted:
		default:
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}

		user := userFrom(r)
		list, err := svc.ListUserInterviews(r.Context(), user.ID, status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []interview.Summary{}
		}
		writeJSON(w, http.StatusOK, ListInterviewsResponse{Interviews: list})
	}
}

func handleDeleteInterview(svc *interview.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r)
		id := chi.URLParam(r, "interviewID")

		err := svc.DeleteUserInterview(r.Context(), id, user.ID)
		if errors.Is(err, interview.ErrNotFound) {
			writeError(w, http.StatusNotFound, "interview not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true, "deleted": true})
	}
}

// ownedInterview loads the interview from the path and enforces ownership.
// A foreign interview reads as not found.
func ownedInterview(w http.ResponseWriter, r *http.Request, svc *interview.Service) (interview.Interview, bool) {
	user := userFrom(r)
	id := chi.URLParam(r, "interviewID")

	iv, err := svc.GetInterviewByID(r.Context(), id)
	if errors.Is(err, interview.ErrNotFound) || (err == nil && iv.UserID != user.ID) {
		writeError(w, http.StatusNotFound, "interview not found")
		return interview.Interview{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return interview.Interview{}, false
	}
	return iv, true
}
