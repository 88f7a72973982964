package schemas

import "errors"

var (
	// ErrSourceUnavailable means the fetch target could not be reached or has no module layout.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrAnalysisFailed means no behavior file in the tree could be parsed.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrCompletionFailed means the completion endpoint failed or answered with a non-success status.
	ErrCompletionFailed = errors.New("completion failed")
)
