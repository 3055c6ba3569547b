package scrape

import "github.com/lexcorpus/lexcorpus"

// EventType indicates the type of run event.
type EventType int

const (
	EventSourceStarted EventType = iota
	EventSourceListed
	EventSourceFailed
	EventSourceFinished
	EventOutcome
)

// Event reports progress during a run.
type Event struct {
	Type   EventType
	Source string

	// Listed is the number of entries the source exposed; Cached reports
	// that the listing was reused from the index cache. Both are set on
	// EventSourceListed.
	Listed int
	Cached bool

	// Removed is the number of records reconciliation dropped because the
	// source stopped listing them. Set on EventSourceFinished.
	Removed int

	// Outcome is set on EventOutcome.
	Outcome *lexcorpus.Outcome

	// Err is set on EventSourceFailed.
	Err error
}

// ProgressFunc is a callback for reporting run progress. Events are pure
// notifications and feed nothing back into control flow; callbacks must be
// safe for concurrent calls.
type ProgressFunc func(event Event)
