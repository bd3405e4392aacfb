package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/prepwise/interviewd/internal/interview"
	"github.com/prepwise/interviewd/internal/session"
	"github.com/prepwise/interviewd/internal/sessioncache"
)

// Deps are the collaborators the handlers close over.
type Deps struct {
	DB       *sql.DB
	Store    *interview.Store
	Service  *interview.Service
	Sessions *session.Registry
	Cache    sessioncache.Store
	Broker   *Broker
}

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Interviewd API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, d.DB, d.Cache))

	r.Post("/api/login", handleLogin(d.Store))
	r.Post("/api/logout", handleLogout(d.Store))

	r.Route("/api/interviews", func(r chi.Router) {
		r.Use(authMiddleware(d.Store))

		r.Get("/", handleListInterviews(d.Service))
		r.Post("/", handleCreateInterview(d.Service))

		r.Route("/{interviewID}", func(r chi.Router) {
			r.Get("/", handleGetInterview(d.Service))
			r.Delete("/", handleDeleteInterview(d.Service))

			r.Post("/session", handleStartSession(d.Service, d.Sessions))
			r.Post("/session/answer", handleSessionAnswer(d.Sessions))
			r.Post("/session/next", handleSessionNext(d.Sessions))
			r.Post("/session/pass", handleSessionPass(d.Sessions))
			r.Post("/session/previous", handleSessionPrevious(d.Sessions))
			r.Post("/session/jump", handleSessionJump(d.Sessions))
			r.Post("/session/exit", handleSessionExit(d.Sessions))
		})
	})

	// SSE authenticates via query parameter, EventSource cannot set headers.
	r.Get("/api/interviews/{interviewID}/session/events", handleSessionEvents(d.Store, d.Service, d.Broker))
}
