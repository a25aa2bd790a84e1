package quiz

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/korjavin/alphaquizbot/models"
)

// DefaultHistoryLimit is the number of used questions after which a
// repeated question clears the history instead of being refetched.
const DefaultHistoryLimit = 50

// HistoryStore persists the used-question history of one player
type HistoryStore interface {
	Load(ctx context.Context) ([]models.QuestionID, error)
	Save(ctx context.Context, ids []models.QuestionID) error
}

// Admission is the outcome of offering a question id to the history
type Admission int

const (
	Rejected Admission = iota
	Accepted
	AcceptedAfterReset
)

func (a Admission) String() string {
	switch a {
	case Accepted:
		return "accepted"
	case AcceptedAfterReset:
		return "reset"
	default:
		return "duplicate"
	}
}

// History is the set of question ids already shown to a player. It is
// loaded from its store once per process and shared by every session of
// that player. It never overwrites the stored set before reading it.
type History struct {
	store HistoryStore
	limit int
	log   logrus.FieldLogger

	loadMu sync.Mutex

	mu     sync.Mutex
	loaded bool
	ids    []models.QuestionID
	seen   map[models.QuestionID]struct{}

	saveMu sync.Mutex
}

// NewHistory creates an empty history backed by store. A limit <= 0 uses
// DefaultHistoryLimit.
func NewHistory(store HistoryStore, limit int, log logrus.FieldLogger) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &History{
		store: store,
		limit: limit,
		log:   log,
		seen:  make(map[models.QuestionID]struct{}),
	}
}

// Load reads the persisted history and merges it with the ids admitted so
// far. Once a read succeeds later calls return immediately; a failed read
// is returned and tried again on the next call.
func (h *History) Load(ctx context.Context) error {
	h.loadMu.Lock()
	defer h.loadMu.Unlock()

	if h.isLoaded() {
		return nil
	}
	if h.store == nil {
		h.markLoaded()
		return nil
	}

	ids, err := h.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load used questions: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	loaded := make([]models.QuestionID, 0, len(ids)+len(h.ids))
	seen := make(map[models.QuestionID]struct{}, len(ids)+len(h.ids))
	for _, batch := range [][]models.QuestionID{ids, h.ids} {
		for _, id := range batch {
			if _, dup := seen[id]; dup || id == "" {
				continue
			}
			seen[id] = struct{}{}
			loaded = append(loaded, id)
		}
	}
	h.ids, h.seen = loaded, seen
	h.loaded = true
	h.log.WithField("count", len(loaded)).Debug("Loaded used questions")
	return nil
}

func (h *History) isLoaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded
}

func (h *History) markLoaded() {
	h.mu.Lock()
	h.loaded = true
	h.mu.Unlock()
}

// Admit decides whether a freshly fetched question may be shown. A new id
// is recorded and accepted. A repeated id is rejected while the history
// holds fewer than limit entries; once saturated the history is cleared and
// the id accepted as its only entry.
func (h *History) Admit(id models.QuestionID) Admission {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, dup := h.seen[id]; !dup {
		h.recordLocked(id)
		return Accepted
	}
	if len(h.ids) < h.limit {
		return Rejected
	}

	h.ids = h.ids[:0]
	h.seen = make(map[models.QuestionID]struct{})
	h.recordLocked(id)
	return AcceptedAfterReset
}

func (h *History) recordLocked(id models.QuestionID) {
	h.ids = append(h.ids, id)
	h.seen[id] = struct{}{}
}

// Persist writes the current history to the store, overwriting it. The
// stored set is read first when that has not succeeded yet.
func (h *History) Persist(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	if err := h.Load(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if err := h.store.Save(ctx, h.Snapshot()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return nil
}

// Contains reports whether id has been shown
func (h *History) Contains(id models.QuestionID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.seen[id]
	return ok
}

// Len returns the number of recorded ids
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ids)
}

// Snapshot returns the recorded ids in the order they were shown
func (h *History) Snapshot() []models.QuestionID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.QuestionID(nil), h.ids...)
}
