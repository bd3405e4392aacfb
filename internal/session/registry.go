package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prepwise/interviewd/internal/interview"
	"github.com/prepwise/interviewd/internal/sessioncache"
)

// Registry tracks the open session controllers, one per interview.
// Controllers remove themselves when they reach a terminal state.
type Registry struct {
	svc    PersistenceService
	cache  sessioncache.Store
	events Publisher
	logger *slog.Logger
	opts   Options

	mu       sync.Mutex
	sessions map[string]*Controller
}

func NewRegistry(svc PersistenceService, cache sessioncache.Store, events Publisher, logger *slog.Logger, opts Options) *Registry {
	return &Registry{
		svc:      svc,
		cache:    cache,
		events:   events,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*Controller),
	}
}

// Start opens a session for the interview, or re-attaches to the one
// already open. A second client starting the same interview shares the
// first client's controller rather than racing it.
func (r *Registry) Start(ctx context.Context, iv interview.Interview) (*Controller, StartResult, error) {
	r.mu.Lock()
	if c, ok := r.sessions[iv.ID]; ok && !c.Terminal() {
		r.mu.Unlock()
		t := c.Describe()
		return c, StartResult{
			State:                t.State,
			CurrentQuestionIndex: t.CurrentQuestionIndex,
			TimeLeft:             t.TimeLeft,
			Answer:               t.Answer,
			Resumed:              true,
		}, nil
	}
	r.mu.Unlock()

	opts := r.opts
	parentOnTerminal := opts.OnTerminal
	opts.OnTerminal = func(id string) {
		r.remove(id)
		if parentOnTerminal != nil {
			parentOnTerminal(id)
		}
	}

	c, res, err := Start(ctx, iv, r.svc, r.cache, r.events, r.logger, opts)
	if err != nil {
		return nil, StartResult{}, err
	}
	if !c.Terminal() {
		r.mu.Lock()
		r.sessions[iv.ID] = c
		r.mu.Unlock()
	}
	return c, res, nil
}

// Get returns the open controller for the interview, if any.
func (r *Registry) Get(interviewID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[interviewID]
	return c, ok
}

func (r *Registry) remove(interviewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, interviewID)
}

// CloseAll tears down every open session, cancelling their timers. Used on
// shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.sessions))
	for _, c := range r.sessions {
		controllers = append(controllers, c)
	}
	r.sessions = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}
