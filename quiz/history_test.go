package quiz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/alphaquizbot/logging"
	"github.com/korjavin/alphaquizbot/models"
)

func TestHistoryLoadOnce(t *testing.T) {
	store := &memoryStore{ids: []models.QuestionID{"3", "1", "3", ""}}
	h := NewHistory(store, 0, logging.Discard())

	require.NoError(t, h.Load(context.Background()))
	require.NoError(t, h.Load(context.Background()))

	assert.Equal(t, 1, store.loads)
	assert.Equal(t, []models.QuestionID{"3", "1"}, h.Snapshot())
}

func TestHistoryLoadKeepsEarlierAdmissions(t *testing.T) {
	store := &memoryStore{ids: []models.QuestionID{"1"}}
	h := NewHistory(store, 0, logging.Discard())

	assert.Equal(t, Accepted, h.Admit("2"))
	require.NoError(t, h.Load(context.Background()))

	assert.Equal(t, []models.QuestionID{"1", "2"}, h.Snapshot())
}

func TestHistoryAdmit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		existing []models.QuestionID
		id       models.QuestionID
		want     Admission
		after    []models.QuestionID
	}{
		{
			name:  "new id",
			limit: 3,
			id:    "1",
			want:  Accepted,
			after: []models.QuestionID{"1"},
		},
		{
			name:     "duplicate below limit",
			limit:    3,
			existing: []models.QuestionID{"1", "2"},
			id:       "1",
			want:     Rejected,
			after:    []models.QuestionID{"1", "2"},
		},
		{
			name:     "duplicate at limit resets",
			limit:    2,
			existing: []models.QuestionID{"1", "2"},
			id:       "2",
			want:     AcceptedAfterReset,
			after:    []models.QuestionID{"2"},
		},
		{
			name:     "duplicate one below limit",
			limit:    3,
			existing: []models.QuestionID{"1", "2"},
			id:       "2",
			want:     Rejected,
			after:    []models.QuestionID{"1", "2"},
		},
		{
			name:     "new id past limit is kept",
			limit:    2,
			existing: []models.QuestionID{"1", "2"},
			id:       "3",
			want:     Accepted,
			after:    []models.QuestionID{"1", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(&memoryStore{ids: tt.existing}, tt.limit, logging.Discard())
			require.NoError(t, h.Load(context.Background()))

			assert.Equal(t, tt.want, h.Admit(tt.id))
			assert.Equal(t, tt.after, h.Snapshot())
		})
	}
}

func TestHistoryPersist(t *testing.T) {
	store := &memoryStore{}
	h := NewHistory(store, 0, logging.Discard())
	h.Admit("1")
	h.Admit("2")

	require.NoError(t, h.Persist(context.Background()))
	assert.Equal(t, []models.QuestionID{"1", "2"}, store.Saved())

	store.saveErr = errors.New("read-only")
	err := h.Persist(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistenceFailed))
	assert.Equal(t, 2, h.Len(), "memory stays authoritative")
}

func TestHistoryWithoutStore(t *testing.T) {
	h := NewHistory(nil, 0, nil)
	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, Accepted, h.Admit("1"))
	assert.NoError(t, h.Persist(context.Background()))
}

func TestHistoryLoadRetriesAfterFailure(t *testing.T) {
	store := &memoryStore{ids: []models.QuestionID{"1", "2"}, loadErr: errors.New("busy")}
	h := NewHistory(store, 0, logging.Discard())

	require.Error(t, h.Load(context.Background()))
	assert.Equal(t, Accepted, h.Admit("3"))

	store.loadErr = nil
	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, []models.QuestionID{"1", "2", "3"}, h.Snapshot())
	assert.Equal(t, Rejected, h.Admit("1"))
	assert.Equal(t, 2, store.loads)
}

func TestHistoryLoadWithCancelledContextIsRetried(t *testing.T) {
	store := &memoryStore{ids: idsUpTo(5), checkCtx: true}
	h := NewHistory(store, 0, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, h.Load(ctx), context.Canceled)

	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, idsUpTo(5), h.Snapshot())
}

func TestHistoryPersistDoesNotOverwriteUnreadStore(t *testing.T) {
	store := &memoryStore{ids: idsUpTo(3), loadErr: errors.New("locked")}
	h := NewHistory(store, 0, logging.Discard())
	h.Admit("9")

	err := h.Persist(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistenceFailed))
	assert.Equal(t, 0, store.saves)

	store.loadErr = nil
	require.NoError(t, h.Persist(context.Background()))
	assert.Equal(t, []models.QuestionID{"1", "2", "3", "9"}, store.Saved())
}
