package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prepwise/interviewd/internal/interview"
	"github.com/prepwise/interviewd/internal/session"
)

// StartSessionResponse is returned by POST /api/interviews/{id}/session.
// Redirect is set when the session cannot or did not open: the results view
// for an already-finished interview, the dashboard after an expiry exit.
type StartSessionResponse struct {
	Success              bool          `json:"success"`
	State                session.State `json:"state"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	TimeLeft             int           `json:"timeLeft"`
	Answer               string        `json:"answer"`
	Resumed              bool          `json:"resumed"`
	FreshNotice          bool          `json:"freshNotice,omitempty"`
	Redirect             string        `json:"redirect,omitempty"`
}

func handleStartSession(svc *interview.Service, sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iv, ok := ownedInterview(w, r, svc)
		if !ok {
			return
		}

		_, res, err := sessions.Start(r.Context(), iv)
		if errors.Is(err, session.ErrAlreadyCompleted) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"success":  false,
				"error":    "interview already completed",
				"redirect": resultsPath(iv.ID),
			})
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, "starting session failed")
			return
		}

		resp := StartSessionResponse{
			Success:              true,
			State:                res.State,
			CurrentQuestionIndex: res.CurrentQuestionIndex,
			TimeLeft:             res.TimeLeft,
			Answer:               res.Answer,
			Resumed:              res.Resumed,
			FreshNotice:          res.FreshNotice,
		}
		if res.Expired {
			resp.Redirect = dashboardPath
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// AnswerInputRequest is one keystroke-level update of the typed answer; the
// remote save behind it is debounced.
type AnswerInputRequest struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
}

func handleSessionAnswer(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		var req AnswerInputRequest
		if err := readJSON(r, &req); err != nil || req.QuestionID == "" {
			writeError(w, http.StatusBadRequest, "questionId is required")
			return
		}

		if err := c.SetAnswer(req.QuestionID, req.Text); err != nil {
			writeError(w, http.StatusConflict, "session is over")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// TransitionResponse is returned by the navigation endpoints.
type TransitionResponse struct {
	Success              bool          `json:"success"`
	State                session.State `json:"state"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	TimeLeft             int           `json:"timeLeft"`
	Answer               string        `json:"answer"`
	Completed            bool          `json:"completed"`
	Redirect             string        `json:"redirect,omitempty"`
}

// NextRequest carries the currently displayed answer text, possibly empty.
type NextRequest struct {
	Answer string `json:"answer"`
}

func handleSessionNext(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		var req NextRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		t, err := c.Next(r.Context(), req.Answer)
		writeTransition(w, c, t, err)
	}
}

func handleSessionPass(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		t, err := c.Pass(r.Context())
		writeTransition(w, c, t, err)
	}
}

func handleSessionPrevious(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		t, err := c.Previous()
		writeTransition(w, c, t, err)
	}
}

// JumpRequest selects a question by index.
type JumpRequest struct {
	Index int `json:"index"`
}

func handleSessionJump(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		var req JumpRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		t, err := c.Jump(req.Index)
		if errors.Is(err, session.ErrIndexOutOfRange) {
			writeError(w, http.StatusBadRequest, "question index out of range")
			return
		}
		writeTransition(w, c, t, err)
	}
}

func handleSessionExit(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		t, err := c.SaveAndExit(r.Context())
		if err != nil {
			writeTransition(w, c, t, err)
			return
		}
		writeJSON(w, http.StatusOK, TransitionResponse{
			Success:  true,
			State:    t.State,
			TimeLeft: t.TimeLeft,
			Redirect: dashboardPath,
		})
	}
}

func handleSessionEvents(store *interview.Store, svc *interview.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "token query parameter required")
			return
		}
		user, err := store.UserFromToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		interviewID := chi.URLParam(r, "interviewID")
		iv, err := svc.GetInterviewByID(r.Context(), interviewID)
		if errors.Is(err, interview.ErrNotFound) || (err == nil && iv.UserID != user.ID) {
			writeError(w, http.StatusNotFound, "interview not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ch := broker.Subscribe(interviewID)
		defer broker.Unsubscribe(interviewID, ch)

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: session\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

// openSession resolves the interview's live controller. The session
// endpoints only make sense after POST .../session has opened one.
func openSession(w http.ResponseWriter, r *http.Request, sessions *session.Registry) (*session.Controller, bool) {
	id := chi.URLParam(r, "interviewID")
	c, ok := sessions.Get(id)
	if !ok {
		writeError(w, http.StatusConflict, "no open session for this interview")
		return nil, false
	}
	return c, true
}

// writeTransition maps a navigation outcome onto the wire. A persistence
// failure keeps the machine where it is and reports a retryable error.
func writeTransition(w http.ResponseWriter, c *session.Controller, t session.Transition, err error) {
	if errors.Is(err, session.ErrSessionOver) {
		writeError(w, http.StatusConflict, "session is over")
		return
	}
	if errors.Is(err, session.ErrSaveInFlight) {
		writeError(w, http.StatusConflict, "a save is already in progress")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "saving answer failed, try again")
		return
	}

	resp := TransitionResponse{
		Success:              true,
		State:                t.State,
		CurrentQuestionIndex: t.CurrentQuestionIndex,
		TimeLeft:             t.TimeLeft,
		Answer:               t.Answer,
		Completed:            t.Completed,
	}
	if t.Completed {
		resp.Redirect = resultsPath(c.InterviewID())
	}
	writeJSON(w, http.StatusOK, resp)
}

const dashboardPath = "/dashboard"

func resultsPath(interviewID string) string {
	return "/interviews/" + interviewID + "/results"
}
