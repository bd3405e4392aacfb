package session

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prepwise/interviewd/internal/interview"
	"github.com/prepwise/interviewd/internal/sessioncache"
)

// warnAtSeconds is the countdown value at which the time warning fires.
const warnAtSeconds = 10

// Options tune the controller's timers. Zero values take the defaults,
// which match the product behavior; tests shrink them.
type Options struct {
	CountdownInterval time.Duration // default 1s
	SnapshotInterval  time.Duration // default 5s
	DebounceDelay     time.Duration // default 2s
	SnapshotMaxAge    time.Duration // default 24h

	Now func() time.Time

	// OnTerminal is invoked (on its own goroutine) after the session
	// reaches Completed or Exited, or is closed.
	OnTerminal func(interviewID string)
}

func (o Options) withDefaults() Options {
	if o.CountdownInterval <= 0 {
		o.CountdownInterval = time.Second
	}
	if o.SnapshotInterval <= 0 {
		o.SnapshotInterval = 5 * time.Second
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = 2 * time.Second
	}
	if o.SnapshotMaxAge <= 0 {
		o.SnapshotMaxAge = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// StartResult describes the state a session opened in.
type StartResult struct {
	State                State  `json:"state"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
	TimeLeft             int    `json:"timeLeft"`
	Answer               string `json:"answer"`
	// Resumed is true when a prior local session was restored.
	Resumed bool `json:"resumed"`
	// FreshNotice is true when a stale local session was discarded and the
	// user should be told a fresh session was started.
	FreshNotice bool `json:"freshNotice"`
	// Expired is true when the interview's time was already up, in which
	// case the session ended immediately with a save-and-exit.
	Expired bool `json:"expired"`
}

// Transition is the outcome of a navigation action. Answer carries the
// cached text to display for the new current question.
type Transition struct {
	State                State  `json:"state"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
	TimeLeft             int    `json:"timeLeft"`
	Answer               string `json:"answer"`
	Completed            bool   `json:"completed"`
}

// Controller owns the live state of one open interview. All timers it arms
// are cancelled on any terminal transition or on Close, so nothing fires
// after the session ends.
type Controller struct {
	id     string
	svc    PersistenceService
	cache  sessioncache.Store
	events Publisher
	log    *slog.Logger
	opts   Options

	questionIDs []string

	mu       sync.Mutex
	state    State
	index    int
	timeLeft int
	answers  map[string]string
	seq      map[string]uint64
	pending  *time.Timer
	saving   bool
	warned   bool
	expired  bool
	stopped  bool
	done     chan struct{}
}

// Start applies the recovery rules and returns a running session.
//
// Recovery order: a completed interview refuses to start; a valid local
// snapshot resumes; anything else initializes fresh from the server record,
// and if the server says time is already up the session saves-and-exits
// before it ever runs.
func Start(ctx context.Context, iv interview.Interview, svc PersistenceService, cache sessioncache.Store, events Publisher, logger *slog.Logger, opts Options) (*Controller, StartResult, error) {
	if iv.Status == interview.StatusCompleted {
		return nil, StartResult{}, ErrAlreadyCompleted
	}

	opts = opts.withDefaults()
	c := &Controller{
		id:      iv.ID,
		svc:     svc,
		cache:   cache,
		events:  events,
		log:     logger.With("interview_id", iv.ID),
		opts:    opts,
		state:   StateAnswering,
		answers: make(map[string]string),
		seq:     make(map[string]uint64),
		done:    make(chan struct{}),
	}
	for _, q := range iv.Questions {
		c.questionIDs = append(c.questionIDs, q.ID)
	}

	var res StartResult

	snap, haveSnap, err := cache.Snapshot(ctx, iv.ID)
	if err != nil {
		c.log.Warn("reading session snapshot failed", "error", err)
		haveSnap = false
	}
	cached, haveAnswers, err := cache.Answers(ctx, iv.ID)
	if err != nil {
		c.log.Warn("reading answer cache failed", "error", err)
		haveAnswers = false
	}

	if haveSnap && haveAnswers {
		age := opts.Now().Sub(time.UnixMilli(snap.LastUpdated))
		valid := age < opts.SnapshotMaxAge &&
			snap.TimeLeft > 0 && snap.TimeLeft <= iv.DurationLeft &&
			snap.CurrentQuestionIndex >= 0 && snap.CurrentQuestionIndex < len(c.questionIDs)

		if valid {
			c.index = snap.CurrentQuestionIndex
			c.timeLeft = snap.TimeLeft
			c.answers = cached
			if c.answers == nil {
				c.answers = make(map[string]string)
			}
			res = StartResult{
				State:                StateAnswering,
				CurrentQuestionIndex: c.index,
				TimeLeft:             c.timeLeft,
				Answer:               c.answers[c.questionIDs[c.index]],
				Resumed:              true,
			}
			go c.run()
			c.log.Info("session resumed", "index", c.index, "time_left", c.timeLeft)
			return c, res, nil
		}
		res.FreshNotice = true
		c.log.Info("stale session discarded",
			"age", age, "snapshot_time_left", snap.TimeLeft, "duration_left", iv.DurationLeft)
	}

	// Fresh initialization from the server record.
	c.index = iv.FirstUnanswered()
	for _, q := range iv.Questions {
		c.answers[q.ID] = q.Answer.Wire()
	}

	if iv.DurationLeft <= 0 {
		// Time ran out before the session opened; save and end immediately.
		c.timeLeft = 0
		if _, err := c.saveAndExit(ctx); err != nil {
			return nil, StartResult{}, err
		}
		res.State = StateExited
		res.Expired = true
		return c, res, nil
	}

	c.timeLeft = iv.DurationLeft
	if err := cache.PutAnswers(ctx, iv.ID, c.answers); err != nil {
		c.log.Warn("seeding answer cache failed", "error", err)
	}
	c.writeSnapshotLocked(ctx)

	res.State = StateAnswering
	res.CurrentQuestionIndex = c.index
	res.TimeLeft = c.timeLeft
	res.Answer = c.answers[c.questionIDs[c.index]]

	go c.run()
	c.log.Info("session started", "index", c.index, "time_left", c.timeLeft, "fresh_notice", res.FreshNotice)
	return c, res, nil
}

// run drives both timing loops on one goroutine, the closest Go gets to the
// cooperative event loop this machine was designed for.
func (c *Controller) run() {
	countdown := time.NewTicker(c.opts.CountdownInterval)
	defer countdown.Stop()
	snapshot := time.NewTicker(c.opts.SnapshotInterval)
	defer snapshot.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-countdown.C:
			if c.tickCountdown() {
				c.expire()
			}
		case <-snapshot.C:
			c.tickSnapshot()
		}
	}
}

// tickCountdown advances the clock and reports whether time just ran out
// and the expiry exit should run. If a user transition's save is in flight
// when the clock hits zero, the expiry waits for a later tick.
func (c *Controller) tickCountdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalLocked() || c.expired {
		return false
	}

	if c.timeLeft > 0 {
		c.timeLeft--
	}
	if c.timeLeft == warnAtSeconds && !c.warned {
		c.warned = true
		c.events.Publish(c.id, Event{Type: EventTimeWarning, TimeLeft: c.timeLeft})
	}
	if c.timeLeft <= 0 && !c.saving {
		c.timeLeft = 0
		c.expired = true
		return true
	}
	return false
}

func (c *Controller) expire() {
	if _, err := c.saveAndExit(context.Background()); err != nil {
		// The countdown fires the exit exactly once; a failed save here
		// leaves the record pending until the user acts again.
		c.log.Error("save-and-exit on expiry failed", "error", err)
	}
}

func (c *Controller) tickSnapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalLocked() {
		return
	}
	c.writeSnapshotLocked(context.Background())
}

// writeSnapshotLocked is best-effort; a failed local write never interrupts
// the session.
func (c *Controller) writeSnapshotLocked(ctx context.Context) {
	err := c.cache.PutSnapshot(ctx, c.id, sessioncache.Snapshot{
		CurrentQuestionIndex: c.index,
		TimeLeft:             c.timeLeft,
		LastUpdated:          c.opts.Now().UnixMilli(),
	})
	if err != nil {
		c.log.Warn("writing session snapshot failed", "error", err)
	}
}

// SetAnswer records typed answer text: synchronously into the local answer
// cache, and remotely after the debounce delay passes without further
// edits. Re-arming cancels the pending remote write, so a burst of edits
// costs at most one persistence call.
func (c *Controller) SetAnswer(questionID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalLocked() {
		return ErrSessionOver
	}

	c.answers[questionID] = text
	if err := c.cache.PutAnswers(context.Background(), c.id, c.answers); err != nil {
		c.log.Warn("writing answer cache failed", "error", err)
	}

	c.seq[questionID]++
	seq := c.seq[questionID]
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pending = time.AfterFunc(c.opts.DebounceDelay, func() {
		c.flushAnswer(questionID, text, seq)
	})
	return nil
}

// flushAnswer performs the debounced remote save. Failures are logged and
// never surfaced; the next edit or explicit transition saves again. The
// sequence check drops writes superseded while the timer was armed.
func (c *Controller) flushAnswer(questionID, text string, seq uint64) {
	c.mu.Lock()
	if c.terminalLocked() || c.seq[questionID] != seq {
		c.mu.Unlock()
		return
	}
	timeLeft := strconv.Itoa(c.timeLeft)
	c.mu.Unlock()

	// Deliberately outside the lock: autosave must not block typing or
	// navigation.
	if _, err := c.svc.UpdateInterviewDetails(context.Background(), c.id, timeLeft, questionID, text, false); err != nil {
		c.log.Warn("autosave failed", "question_id", questionID, "error", err)
	}
}

// Next persists the displayed answer for the current question and advances,
// or completes the interview from the last question. On a persistence
// failure nothing advances and the same call may be retried.
func (c *Controller) Next(ctx context.Context, answer string) (Transition, error) {
	return c.advance(ctx, answer, true)
}

// Pass records the skip sentinel for the current question instead of the
// typed text, then advances exactly as Next does. The locally cached text
// is left alone.
func (c *Controller) Pass(ctx context.Context) (Transition, error) {
	return c.advance(ctx, interview.Skipped().Wire(), false)
}

func (c *Controller) advance(ctx context.Context, wireAnswer string, overwriteCache bool) (Transition, error) {
	c.mu.Lock()
	if c.terminalLocked() {
		c.mu.Unlock()
		return Transition{}, ErrSessionOver
	}
	if c.saving {
		c.mu.Unlock()
		return Transition{}, ErrSaveInFlight
	}

	questionID := c.questionIDs[c.index]
	c.supersedeDebounceLocked(questionID)

	if overwriteCache {
		c.answers[questionID] = wireAnswer
		if err := c.cache.PutAnswers(ctx, c.id, c.answers); err != nil {
			c.log.Warn("writing answer cache failed", "error", err)
		}
	}

	timeLeft := strconv.Itoa(c.timeLeft)
	completing := c.state == StateCompleting || c.index == len(c.questionIDs)-1
	c.saving = true
	c.mu.Unlock()

	// Awaited without the lock so the countdown and snapshot loops keep
	// running during the save. The saving flag excludes other transitions,
	// so state and index cannot move underneath this call.
	_, err := c.svc.UpdateInterviewDetails(ctx, c.id, timeLeft, questionID, wireAnswer, completing)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false

	if err != nil {
		if completing {
			c.state = StateCompleting
		}
		return c.describeLocked(), err
	}

	if completing {
		if err := c.cache.Delete(ctx, c.id); err != nil {
			c.log.Warn("clearing session cache failed", "error", err)
		}
		c.state = StateCompleted
		c.stopLocked()
		c.events.Publish(c.id, Event{Type: EventCompleted})
		c.log.Info("interview completed")
		t := c.describeLocked()
		t.Completed = true
		return t, nil
	}

	c.index++
	c.writeSnapshotLocked(ctx)
	return c.describeLocked(), nil
}

// Previous moves back one question. Purely local: no persistence call, a
// no-op on the first question.
func (c *Controller) Previous() (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalLocked() {
		return Transition{}, ErrSessionOver
	}
	if c.saving {
		return Transition{}, ErrSaveInFlight
	}
	// Moving away abandons a pending completion retry; the next submit from
	// the new position is an ordinary save.
	if c.state == StateCompleting {
		c.state = StateAnswering
	}
	if c.index > 0 {
		c.index--
		c.writeSnapshotLocked(context.Background())
	}
	return c.describeLocked(), nil
}

// Jump selects any question by index, answered or not. Purely local.
func (c *Controller) Jump(index int) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalLocked() {
		return Transition{}, ErrSessionOver
	}
	if c.saving {
		return Transition{}, ErrSaveInFlight
	}
	if index < 0 || index >= len(c.questionIDs) {
		return Transition{}, ErrIndexOutOfRange
	}
	if c.state == StateCompleting {
		c.state = StateAnswering
	}
	c.index = index
	c.writeSnapshotLocked(context.Background())
	return c.describeLocked(), nil
}

// SaveAndExit persists the current answer with the completion flag and ends
// the session early. The snapshot and answer cache are intentionally not
// cleared on this path.
func (c *Controller) SaveAndExit(ctx context.Context) (Transition, error) {
	return c.saveAndExit(ctx)
}

func (c *Controller) saveAndExit(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	if c.terminalLocked() {
		c.mu.Unlock()
		return Transition{}, ErrSessionOver
	}
	if c.saving {
		c.mu.Unlock()
		return Transition{}, ErrSaveInFlight
	}

	questionID := c.questionIDs[c.index]
	c.supersedeDebounceLocked(questionID)

	answer := c.answers[questionID]
	timeLeft := c.timeLeft
	c.saving = true
	c.mu.Unlock()

	_, err := c.svc.UpdateInterviewDetails(ctx, c.id, strconv.Itoa(timeLeft), questionID, answer, true)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	if err != nil {
		return c.describeLocked(), err
	}

	c.state = StateExited
	c.stopLocked()
	c.events.Publish(c.id, Event{Type: EventExited, TimeLeft: timeLeft})
	c.log.Info("session exited", "time_left", timeLeft)
	return c.describeLocked(), nil
}

// Close cancels all timers without a transition, for when the caller tears
// the session down explicitly. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// InterviewID returns the id of the interview this session belongs to.
func (c *Controller) InterviewID() string {
	return c.id
}

// State returns the machine's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Terminal reports whether the session has ended.
func (c *Controller) Terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminalLocked()
}

// Describe returns the current position without transitioning, used when a
// client re-attaches to an already open session.
func (c *Controller) Describe() Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.describeLocked()
}

func (c *Controller) describeLocked() Transition {
	t := Transition{
		State:                c.state,
		CurrentQuestionIndex: c.index,
		TimeLeft:             c.timeLeft,
	}
	if len(c.questionIDs) > 0 {
		t.Answer = c.answers[c.questionIDs[c.index]]
	}
	return t
}

func (c *Controller) terminalLocked() bool {
	return c.state == StateCompleted || c.state == StateExited
}

// supersedeDebounceLocked cancels a pending debounced write and bumps the
// question's sequence so an already-fired flush drops itself.
func (c *Controller) supersedeDebounceLocked(questionID string) {
	c.seq[questionID]++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Controller) stopLocked() {
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.done)
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	if c.opts.OnTerminal != nil {
		go c.opts.OnTerminal(c.id)
	}
}
