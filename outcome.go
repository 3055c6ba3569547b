package lexcorpus

// OutcomeKind classifies what one fetch unit of work did to the corpus.
type OutcomeKind string

// Outcome kinds, one per document attempt.
const (
	OutcomeAdded     OutcomeKind = "added"
	OutcomeUpdated   OutcomeKind = "updated"
	OutcomeUnchanged OutcomeKind = "unchanged"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the transient result of processing one listed document. It is
// never persisted; the orchestrator consumes it for reporting and progress
// events.
type Outcome struct {
	Kind     OutcomeKind
	Source   string
	ID       string
	Reason   string
	Warnings []string
	Err      error
}
