package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Interviewd API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for AI-assisted interview practice sessions.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Exchange email and password for a bearer token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(LoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/logout")
	postLogout.SetSummary("Log out")
	postLogout.SetDescription("Invalidates the presented bearer token.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/interviews
	listInterviews, _ := r.NewOperationContext(http.MethodGet, "/api/interviews")
	listInterviews.SetSummary("List interviews")
	listInterviews.SetDescription("Lists the user's interviews, optionally filtered by status. Requires Bearer token.")
	listInterviews.AddRespStructure(ListInterviewsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listInterviews.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listInterviews)

	// POST /api/interviews
	postInterview, _ := r.NewOperationContext(http.MethodPost, "/api/interviews")
	postInterview.SetSummary("Create interview")
	postInterview.SetDescription("Creates an interview; the question set is generated before the call returns. Requires Bearer token.")
	postInterview.AddRespStructure(CreateInterviewResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postInterview.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postInterview.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(postInterview)

	// GET /api/interviews/{interviewID}
	getInterview, _ := r.NewOperationContext(http.MethodGet, "/api/interviews/{interviewID}")
	getInterview.SetSummary("Get interview")
	getInterview.SetDescription("Returns the interview with its questions; per-question results appear once completed.")
	getInterview.AddRespStructure(InterviewResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getInterview.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getInterview)

	// DELETE /api/interviews/{interviewID}
	deleteInterview, _ := r.NewOperationContext(http.MethodDelete, "/api/interviews/{interviewID}")
	deleteInterview.SetSummary("Delete interview")
	deleteInterview.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteInterview.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteInterview)

	// POST /api/interviews/{interviewID}/session
	startSession, _ := r.NewOperationContext(http.MethodPost, "/api/interviews/{interviewID}/session")
	startSession.SetSummary("Start or resume a session")
	startSession.SetDescription("Opens the timed session, resuming a valid local snapshot or initializing fresh from the record.")
	startSession.AddRespStructure(StartSessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	startSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(startSession)

	// POST /api/interviews/{interviewID}/session/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/interviews/{interviewID}/session/answer")
	postAnswer.SetSummary("Record typed answer text")
	postAnswer.SetDescription("Caches the text immediately; the remote save is debounced.")
	postAnswer.AddReqStructure(AnswerInputRequest{})
	postAnswer.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// Navigation endpoints share the transition response.
	for _, op := range []struct {
		path, summary string
		req           any
	}{
		{"/api/interviews/{interviewID}/session/next", "Save the displayed answer and advance", NextRequest{}},
		{"/api/interviews/{interviewID}/session/pass", "Skip the current question and advance", nil},
		{"/api/interviews/{interviewID}/session/previous", "Move back one question", nil},
		{"/api/interviews/{interviewID}/session/jump", "Jump to a question by index", JumpRequest{}},
		{"/api/interviews/{interviewID}/session/exit", "Save and exit early", nil},
	} {
		oc, _ := r.NewOperationContext(http.MethodPost, op.path)
		oc.SetSummary(op.summary)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		oc.AddRespStructure(TransitionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
		_ = r.AddOperation(oc)
	}

	// GET /api/interviews/{interviewID}/session/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/interviews/{interviewID}/session/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream for session warnings and terminal notices. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
