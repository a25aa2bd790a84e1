package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/korjavin/alphaquizbot/models"
)

const localOptions = 4

// Local generates questions from the built-in alphabet table. It is used
// when no question API is configured.
type Local struct {
	mu      sync.Mutex
	rng     *rand.Rand
	entries []models.AlphabetEntry
}

// NewLocal creates an offline provider. A zero seed uses the current time.
func NewLocal(seed int64) *Local {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Local{
		rng:     rand.New(rand.NewSource(seed)),
		entries: Alphabet(),
	}
}

// FetchRandomQuestion returns a fresh question: either the code word for a
// letter or the letter for a code word.
func (l *Local) FetchRandomQuestion(ctx context.Context) (*models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[l.rng.Intn(len(l.entries))]
	distractors := l.pickOthers(entry, localOptions-1)

	var q models.Question
	if l.rng.Intn(2) == 0 {
		q = models.Question{
			ID:            models.QuestionID("code-" + entry.Letter),
			Question:      fmt.Sprintf("Which code word stands for the letter %s?", entry.Letter),
			CorrectAnswer: entry.Code,
		}
		q.Options = append(q.Options, entry.Code)
		for _, d := range distractors {
			q.Options = append(q.Options, d.Code)
		}
	} else {
		q = models.Question{
			ID:            models.QuestionID("letter-" + entry.Letter),
			Question:      fmt.Sprintf("Which letter is spelled %s?", entry.Code),
			CorrectAnswer: entry.Letter,
		}
		q.Options = append(q.Options, entry.Letter)
		for _, d := range distractors {
			q.Options = append(q.Options, d.Letter)
		}
	}
	q.ImageURL = entry.IconURL

	l.rng.Shuffle(len(q.Options), func(i, j int) {
		q.Options[i], q.Options[j] = q.Options[j], q.Options[i]
	})
	return &q, nil
}

// Alphabet returns the flashcard entries
func (l *Local) Alphabet(ctx context.Context) ([]models.AlphabetEntry, error) {
	return Alphabet(), nil
}

func (l *Local) pickOthers(exclude models.AlphabetEntry, n int) []models.AlphabetEntry {
	perm := l.rng.Perm(len(l.entries))
	out := make([]models.AlphabetEntry, 0, n)
	for _, i := range perm {
		if l.entries[i].Letter == exclude.Letter {
			continue
		}
		out = append(out, l.entries[i])
		if len(out) == n {
			break
		}
	}
	return out
}
