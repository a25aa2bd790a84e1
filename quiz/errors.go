package quiz

import "errors"

var (
	// ErrFetchFailed is reported when the question provider is unreachable or
	// returned malformed data. The session stays in PhaseLoading and can be
	// retried.
	ErrFetchFailed = errors.New("question fetch failed")

	// ErrPersistenceFailed is returned by History.Persist when the store
	// rejected the write. The in-memory history stays authoritative.
	ErrPersistenceFailed = errors.New("used-question history could not be saved")
)
