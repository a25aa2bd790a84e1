package quiz

import (
	"time"

	"github.com/korjavin/alphaquizbot/models"
)

// Phase is the stage of a quiz round
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseAnswering
	PhaseAnswered
	PhaseCheckpoint
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAnswering:
		return "answering"
	case PhaseAnswered:
		return "answered"
	case PhaseCheckpoint:
		return "checkpoint"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EndReason tells why a session reached PhaseEnded
type EndReason int

const (
	ReasonIncorrect EndReason = iota
	ReasonTimeout
	ReasonStopped
	ReasonCheckpointExpired
)

func (r EndReason) String() string {
	switch r {
	case ReasonIncorrect:
		return "incorrect"
	case ReasonTimeout:
		return "timeout"
	case ReasonStopped:
		return "stopped"
	case ReasonCheckpointExpired:
		return "checkpoint_expired"
	default:
		return "unknown"
	}
}

// Settings are the timing rules of a session
type Settings struct {
	AnswerTime     time.Duration // countdown for answering a question
	CheckpointTime time.Duration // countdown for the continue-or-stop prompt
	AnswerDelay    time.Duration // feedback shown after an answer
	TimeoutDelay   time.Duration // feedback shown after the answer countdown ran out
	FetchTimeout   time.Duration
}

// DefaultSettings returns the standard quiz timings
func DefaultSettings() Settings {
	return Settings{
		AnswerTime:     30 * time.Second,
		CheckpointTime: 15 * time.Second,
		AnswerDelay:    time.Second,
		TimeoutDelay:   1500 * time.Millisecond,
		FetchTimeout:   15 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.AnswerTime <= 0 {
		s.AnswerTime = d.AnswerTime
	}
	if s.CheckpointTime <= 0 {
		s.CheckpointTime = d.CheckpointTime
	}
	if s.AnswerDelay <= 0 {
		s.AnswerDelay = d.AnswerDelay
	}
	if s.TimeoutDelay <= 0 {
		s.TimeoutDelay = d.TimeoutDelay
	}
	if s.FetchTimeout <= 0 {
		s.FetchTimeout = d.FetchTimeout
	}
	return s
}

func seconds(d time.Duration) int {
	if n := int(d / time.Second); n > 0 {
		return n
	}
	return 1
}

// Snapshot is a copy of the session state handed to listeners
type Snapshot struct {
	SessionID     string
	Phase         Phase
	Streak        int
	InitialStreak int
	Question      *models.Question
	TimeRemaining int
	Selected      string
	Correct       bool
	TimedOut      bool
	Fetching      bool
	FetchErr      error
}

// Result is emitted once when a session ends
type Result struct {
	SessionID     string
	Streak        int
	InitialStreak int
	Won           int // correct answers within this session
	Reason        EndReason
}

// Listener receives session events in order. Calls are never made while
// the controller holds its lock, so a listener may call back into it.
type Listener interface {
	QuestionShown(s Snapshot)
	Ticked(s Snapshot)
	Answered(s Snapshot)
	CheckpointReached(s Snapshot)
	FetchFailed(s Snapshot, err error)
	Ended(r Result)
}
