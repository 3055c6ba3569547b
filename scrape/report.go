package scrape

import (
	"sort"
	"sync"
	"time"

	"github.com/lexcorpus/lexcorpus"
)

// SourceReport aggregates one source's outcomes for a run.
type SourceReport struct {
	Source    string
	Listed    int
	Added     int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
	Removed   int

	// Warnings are non-fatal oddities surfaced by fetch units, prefixed
	// with the document id.
	Warnings []string

	// Err is set when the source's listing itself failed.
	Err error
}

// Report describes a whole run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	// Sources is sorted by source name.
	Sources []*SourceReport
}

// Source returns the named source's report, or nil.
func (r *Report) Source(name string) *SourceReport {
	for _, s := range r.Sources {
		if s.Source == name {
			return s
		}
	}
	return nil
}

// Totals sums the counters across sources.
func (r *Report) Totals() SourceReport {
	var total SourceReport
	for _, s := range r.Sources {
		total.Listed += s.Listed
		total.Added += s.Added
		total.Updated += s.Updated
		total.Unchanged += s.Unchanged
		total.Skipped += s.Skipped
		total.Failed += s.Failed
		total.Removed += s.Removed
	}
	return total
}

// tally accumulates outcomes while units complete concurrently.
type tally struct {
	mu      sync.Mutex
	sources map[string]*SourceReport
}

func newTally() *tally {
	return &tally{sources: make(map[string]*SourceReport)}
}

func (t *tally) source(name string) *SourceReport {
	s, ok := t.sources[name]
	if !ok {
		s = &SourceReport{Source: name}
		t.sources[name] = s
	}
	return s
}

func (t *tally) record(o *lexcorpus.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.source(o.Source)
	switch o.Kind {
	case lexcorpus.OutcomeAdded:
		s.Added++
	case lexcorpus.OutcomeUpdated:
		s.Updated++
	case lexcorpus.OutcomeUnchanged:
		s.Unchanged++
	case lexcorpus.OutcomeSkipped:
		s.Skipped++
	case lexcorpus.OutcomeFailed:
		s.Failed++
	}
	for _, w := range o.Warnings {
		s.Warnings = append(s.Warnings, o.ID+": "+w)
	}
}

func (t *tally) setListed(source string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source(source).Listed = n
}

func (t *tally) addRemoved(source string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source(source).Removed += n
}

func (t *tally) fail(source string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source(source).Err = err
}

func (t *tally) report(runID string, started time.Time, duration time.Duration) *Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	sources := make([]*SourceReport, 0, len(t.sources))
	for _, s := range t.sources {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Source < sources[j].Source })
	return &Report{
		RunID:    runID,
		Started:  started,
		Duration: duration,
		Sources:  sources,
	}
}
