package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/korjavin/alphaquizbot/logging"
	"github.com/korjavin/alphaquizbot/models"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing due timers in order
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

// Active counts timers that are scheduled and not yet fired or stopped
func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type manualRunner struct {
	mu   sync.Mutex
	jobs []func()
}

func (r *manualRunner) Run(f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, f)
}

func (r *manualRunner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Drain runs queued fetches, including the ones they queue
func (r *manualRunner) Drain() {
	for {
		r.mu.Lock()
		if len(r.jobs) == 0 {
			r.mu.Unlock()
			return
		}
		job := r.jobs[0]
		r.jobs = r.jobs[1:]
		r.mu.Unlock()
		job()
	}
}

type response struct {
	q   *models.Question
	err error
}

type scriptedProvider struct {
	mu        sync.Mutex
	responses []response
	calls     int
}

func (p *scriptedProvider) push(ids ...string) *scriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.responses = append(p.responses, response{q: question(id)})
	}
	return p
}

func (p *scriptedProvider) pushErr(err error) *scriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, response{err: err})
	return p
}

func (p *scriptedProvider) pushQuestion(q *models.Question) *scriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, response{q: q})
	return p
}

func (p *scriptedProvider) FetchRandomQuestion(ctx context.Context) (*models.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.responses) == 0 {
		return nil, errors.New("no more questions")
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	return r.q, r.err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func question(id string) *models.Question {
	return &models.Question{
		ID:            models.QuestionID(id),
		Question:      fmt.Sprintf("Question %s", id),
		Options:       []string{"Alfa", "Bravo", "Charlie", "Delta"},
		CorrectAnswer: "Alfa",
	}
}

type memoryStore struct {
	mu      sync.Mutex
	ids     []models.QuestionID
	loads   int
	saves   int
	loadErr error
	saveErr error

	// checkCtx makes Load fail on a done context, as database drivers do
	checkCtx bool
}

func (s *memoryStore) Load(ctx context.Context) ([]models.QuestionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.checkCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]models.QuestionID(nil), s.ids...), nil
}

func (s *memoryStore) Save(ctx context.Context, ids []models.QuestionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.ids = append([]models.QuestionID(nil), ids...)
	return nil
}

func (s *memoryStore) Saved() []models.QuestionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.QuestionID(nil), s.ids...)
}

func idsUpTo(n int) []models.QuestionID {
	ids := make([]models.QuestionID, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, models.QuestionID(fmt.Sprint(i)))
	}
	return ids
}

type recorder struct {
	mu        sync.Mutex
	events    []string
	shown     []models.QuestionID
	results   []Result
	fetchErrs []error

	onCheckpoint func()
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) QuestionShown(s Snapshot) {
	r.mu.Lock()
	r.shown = append(r.shown, s.Question.ID)
	r.mu.Unlock()
	r.add("question")
}

func (r *recorder) Ticked(s Snapshot) {}

func (r *recorder) Answered(s Snapshot) { r.add("answered") }

func (r *recorder) CheckpointReached(s Snapshot) {
	r.add("checkpoint")
	if r.onCheckpoint != nil {
		r.onCheckpoint()
	}
}

func (r *recorder) FetchFailed(s Snapshot, err error) {
	r.mu.Lock()
	r.fetchErrs = append(r.fetchErrs, err)
	r.mu.Unlock()
	r.add("fetch_failed")
}

func (r *recorder) Ended(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	r.add("ended")
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Shown() []models.QuestionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.QuestionID(nil), r.shown...)
}

func (r *recorder) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

type harness struct {
	ctrl     *Controller
	clock    *fakeClock
	runner   *manualRunner
	provider *scriptedProvider
	store    *memoryStore
	history  *History
	listener *recorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock:    &fakeClock{},
		runner:   &manualRunner{},
		provider: &scriptedProvider{},
		store:    &memoryStore{},
		listener: &recorder{},
	}
	log := logging.Discard()
	h.history = NewHistory(h.store, DefaultHistoryLimit, log)
	all := append([]Option{
		WithClock(h.clock),
		WithRunner(h.runner.Run),
		WithLogger(log),
	}, opts...)
	h.ctrl = NewController(h.provider, h.history, h.listener, all...)
	return h
}

// startWith starts the session and runs fetches until a question is shown
func (h *harness) startWith(streak int) {
	h.ctrl.Start(streak)
	h.runner.Drain()
}
