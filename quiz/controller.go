package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/korjavin/alphaquizbot/metrics"
	"github.com/korjavin/alphaquizbot/models"
)

// QuestionProvider serves one random question per call
type QuestionProvider interface {
	FetchRandomQuestion(ctx context.Context) (*models.Question, error)
}

// Controller drives one quiz session: it fetches non-repeating questions,
// runs the answer and checkpoint countdowns, evaluates answers and keeps
// the streak. All exported methods are safe for concurrent use; calls made
// outside their valid phase are ignored and report false.
type Controller struct {
	provider QuestionProvider
	history  *History
	listener Listener
	settings Settings
	clock    Clock
	run      func(func())
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	id       string

	mu            sync.Mutex
	started       bool
	closed        bool
	phase         Phase
	streak        int
	initialStreak int
	won           int
	question      *models.Question
	remaining     int
	selected      string
	correct       bool
	timedOut      bool

	fetching    bool
	fetchGen    uint64
	fetchErr    error
	cancelFetch context.CancelFunc

	timer    Timer
	timerGen uint64

	outbox      []func(Listener)
	dispatching bool
}

// Option configures a Controller
type Option func(*Controller)

func WithSettings(s Settings) Option {
	return func(c *Controller) { c.settings = s.withDefaults() }
}

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRunner replaces the goroutine used for question fetches. run must
// not execute f on the calling goroutine.
func WithRunner(run func(func())) Option {
	return func(c *Controller) { c.run = run }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a session that has not started yet
func NewController(provider QuestionProvider, history *History, listener Listener, opts ...Option) *Controller {
	c := &Controller{
		provider: provider,
		history:  history,
		listener: listener,
		settings: DefaultSettings(),
		clock:    realClock{},
		run:      goRunner,
		log:      logrus.StandardLogger(),
		id:       uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.history == nil {
		c.history = NewHistory(nil, DefaultHistoryLimit, c.log)
	}
	c.log = c.log.WithField("session_id", c.id)
	return c
}

// ID returns the session identifier
func (c *Controller) ID() string {
	return c.id
}

// Start begins the session with initialStreak (0 for a fresh game) and
// requests the first question. Only the first call has an effect.
func (c *Controller) Start(initialStreak int) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	if initialStreak < 0 {
		initialStreak = 0
	}
	c.started = true
	c.streak = initialStreak
	c.initialStreak = initialStreak
	c.phase = PhaseLoading
	c.log.WithField("streak", initialStreak).Info("Quiz session started")
	c.metrics.SessionStarted()
	c.fetchLocked()
	c.mu.Unlock()
	c.flush()
}

// Tick advances the active countdown by one second. It is called by the
// controller's own clock while a question or the checkpoint is on screen.
func (c *Controller) Tick() {
	c.mu.Lock()
	if !c.closed {
		c.tickLocked()
	}
	c.mu.Unlock()
	c.flush()
}

// SubmitAnswer evaluates the selected option. It reports false when no
// question is waiting for an answer.
func (c *Controller) SubmitAnswer(selected string) bool {
	c.mu.Lock()
	if c.closed || c.phase != PhaseAnswering || c.question == nil {
		c.mu.Unlock()
		return false
	}

	c.stopTimerLocked()
	c.phase = PhaseAnswered
	c.selected = selected
	c.correct = selected == c.question.CorrectAnswer

	entry := c.log.WithFields(logrus.Fields{
		"question_id": c.question.ID,
		"correct":     c.correct,
	})
	if c.correct {
		c.streak++
		c.won++
		c.metrics.Answer("correct")
		entry.WithField("streak", c.streak).Info("Correct answer")
		c.scheduleLocked(c.settings.AnswerDelay, c.checkpointLocked)
	} else {
		c.metrics.Answer("incorrect")
		entry.Info("Incorrect answer")
		c.scheduleLocked(c.settings.AnswerDelay, func() { c.endLocked(ReasonIncorrect) })
	}

	snap := c.snapshotLocked()
	c.emitLocked(func(l Listener) { l.Answered(snap) })
	c.mu.Unlock()
	c.flush()
	return true
}

// ContinuePlaying leaves the checkpoint and requests the next question,
// keeping the streak.
func (c *Controller) ContinuePlaying() bool {
	c.mu.Lock()
	if c.closed || c.phase != PhaseCheckpoint {
		c.mu.Unlock()
		return false
	}

	c.stopTimerLocked()
	c.phase = PhaseLoading
	c.question = nil
	c.remaining = 0
	c.selected = ""
	c.correct = false
	c.timedOut = false
	c.log.WithField("streak", c.streak).Debug("Continuing quiz")
	c.fetchLocked()
	c.mu.Unlock()
	c.flush()
	return true
}

// StopAndExit ends the session and emits the current streak. It can be
// called at any point of a running session.
func (c *Controller) StopAndExit() bool {
	c.mu.Lock()
	if c.closed || !c.started || c.phase == PhaseEnded {
		c.mu.Unlock()
		return false
	}
	c.endLocked(ReasonStopped)
	c.mu.Unlock()
	c.flush()
	return true
}

// Retry repeats a failed question fetch
func (c *Controller) Retry() bool {
	c.mu.Lock()
	if c.closed || !c.started || c.phase != PhaseLoading || c.fetching || c.fetchErr == nil {
		c.mu.Unlock()
		return false
	}
	c.log.Info("Retrying question fetch")
	c.fetchLocked()
	c.mu.Unlock()
	c.flush()
	return true
}

// Close abandons the session without emitting a result. Pending timers
// are stopped and a pending fetch is ignored when it completes.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.cancelFetchLocked()
	c.outbox = nil
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) fetchLocked() {
	if c.fetching {
		return
	}
	c.fetchGen++
	gen := c.fetchGen
	ctx, cancel := context.WithTimeout(context.Background(), c.settings.FetchTimeout)
	c.fetching = true
	c.fetchErr = nil
	c.cancelFetch = cancel

	c.run(func() {
		defer cancel()
		c.loadHistory()
		q, err := c.provider.FetchRandomQuestion(ctx)
		c.handleFetchResult(gen, q, err)
	})
}

// loadHistory reads the stored history with its own deadline, so stopping
// the session does not abort the read.
func (c *Controller) loadHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), c.settings.FetchTimeout)
	defer cancel()
	if err := c.history.Load(ctx); err != nil {
		c.log.WithError(err).Warn("Used questions not loaded yet, will retry")
	}
}

func (c *Controller) cancelFetchLocked() {
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.fetching = false
	c.fetchGen++
}

func (c *Controller) handleFetchResult(gen uint64, q *models.Question, err error) {
	c.mu.Lock()
	if c.closed || gen != c.fetchGen || !c.fetching || c.phase != PhaseLoading {
		c.mu.Unlock()
		return
	}
	c.fetching = false
	c.cancelFetch = nil

	if err == nil && q == nil {
		err = errors.New("empty response")
	}
	if err == nil {
		if verr := q.Validate(); verr != nil {
			err = fmt.Errorf("malformed question: %w", verr)
		}
	}
	if err != nil {
		c.fetchErr = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		c.metrics.FetchFailed()
		c.log.WithError(err).Warn("Failed to fetch question")
		snap := c.snapshotLocked()
		ferr := c.fetchErr
		c.emitLocked(func(l Listener) { l.FetchFailed(snap, ferr) })
		c.mu.Unlock()
		c.flush()
		return
	}

	q = q.Clone()
	admission := c.history.Admit(q.ID)
	c.metrics.QuestionOutcome(admission.String())
	if admission == Rejected {
		c.log.WithField("question_id", q.ID).Debug("Question already used, requesting another")
		c.fetchLocked()
		c.mu.Unlock()
		return
	}
	if admission == AcceptedAfterReset {
		c.log.WithField("question_id", q.ID).Info("Used-question history saturated, cleared it")
	}

	c.question = q
	c.selected = ""
	c.correct = false
	c.timedOut = false
	c.phase = PhaseAnswering
	c.remaining = seconds(c.settings.AnswerTime)
	c.scheduleLocked(time.Second, c.tickLocked)
	c.log.WithField("question_id", q.ID).Debug("Question accepted")

	snap := c.snapshotLocked()
	c.emitLocked(func(l Listener) { l.QuestionShown(snap) })
	c.mu.Unlock()
	c.flush()

	ctx, cancel := context.WithTimeout(context.Background(), c.settings.FetchTimeout)
	defer cancel()
	if err := c.history.Persist(ctx); err != nil {
		c.metrics.PersistFailed()
		c.log.WithError(err).Warn("Failed to save used questions")
	}
}

func (c *Controller) tickLocked() {
	if c.phase != PhaseAnswering && c.phase != PhaseCheckpoint {
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	snap := c.snapshotLocked()
	c.emitLocked(func(l Listener) { l.Ticked(snap) })

	if c.remaining > 0 {
		c.scheduleLocked(time.Second, c.tickLocked)
		return
	}

	switch c.phase {
	case PhaseAnswering:
		c.timeoutLocked()
	case PhaseCheckpoint:
		c.log.Info("Checkpoint expired")
		c.endLocked(ReasonCheckpointExpired)
	}
}

func (c *Controller) timeoutLocked() {
	c.stopTimerLocked()
	c.phase = PhaseAnswered
	c.selected = ""
	c.correct = false
	c.timedOut = true
	c.metrics.Answer("timeout")
	c.log.WithField("question_id", c.question.ID).Info("Answer time is up")
	c.scheduleLocked(c.settings.TimeoutDelay, func() { c.endLocked(ReasonTimeout) })

	snap := c.snapshotLocked()
	c.emitLocked(func(l Listener) { l.Answered(snap) })
}

func (c *Controller) checkpointLocked() {
	c.phase = PhaseCheckpoint
	c.remaining = seconds(c.settings.CheckpointTime)
	c.scheduleLocked(time.Second, c.tickLocked)

	snap := c.snapshotLocked()
	c.emitLocked(func(l Listener) { l.CheckpointReached(snap) })
}

func (c *Controller) endLocked(reason EndReason) {
	c.stopTimerLocked()
	c.cancelFetchLocked()
	c.phase = PhaseEnded
	c.remaining = 0

	res := Result{
		SessionID:     c.id,
		Streak:        c.streak,
		InitialStreak: c.initialStreak,
		Won:           c.won,
		Reason:        reason,
	}
	c.metrics.SessionEnded(reason.String(), c.streak)
	c.log.WithFields(logrus.Fields{
		"streak": c.streak,
		"reason": reason.String(),
	}).Info("Quiz session ended")
	c.emitLocked(func(l Listener) { l.Ended(res) })
}

// scheduleLocked replaces the active timer. fn runs with c.mu held.
func (c *Controller) scheduleLocked(d time.Duration, fn func()) {
	c.stopTimerLocked()
	gen := c.timerGen
	c.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		if c.closed || gen != c.timerGen {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		fn()
		c.mu.Unlock()
		c.flush()
	})
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:     c.id,
		Phase:         c.phase,
		Streak:        c.streak,
		InitialStreak: c.initialStreak,
		Question:      c.question.Clone(),
		TimeRemaining: c.remaining,
		Selected:      c.selected,
		Correct:       c.correct,
		TimedOut:      c.timedOut,
		Fetching:      c.fetching,
		FetchErr:      c.fetchErr,
	}
}

func (c *Controller) emitLocked(ev func(Listener)) {
	if c.listener == nil {
		return
	}
	c.outbox = append(c.outbox, ev)
}

// flush delivers queued events in order. If another goroutine is already
// delivering, it picks up the new events instead.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true
	for len(c.outbox) > 0 {
		events := c.outbox
		c.outbox = nil
		c.mu.Unlock()
		for _, ev := range events {
			ev(c.listener)
		}
		c.mu.Lock()
	}
	c.dispatching = false
	c.mu.Unlock()
}
