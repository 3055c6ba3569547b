// Package scrape orchestrates corpus runs. It schedules each source's
// documents as bounded fetch units, detects content changes by fingerprint,
// and merges outcomes into the corpus store as they complete.
package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lexcorpus/lexcorpus"
)

// Orchestrator runs a scrape across the configured sources. Scrapers, Store,
// and Extractor are required; the remaining fields have working defaults.
type Orchestrator struct {
	Scrapers  []lexcorpus.Scraper
	Store     lexcorpus.CorpusStore
	Extractor lexcorpus.Extractor

	// Index caches listings between runs. Nil means every run re-lists
	// every source.
	Index lexcorpus.IndexCache

	// Gates bounds fetch concurrency. Nil means gates sized from the
	// source descriptors.
	Gates *Coordinator

	// Refresh forces fresh listings regardless of the refresh interval.
	Refresh bool

	// Progress receives run events. Optional.
	Progress ProgressFunc

	Logger *slog.Logger

	// Now is the run's clock. Optional; tests inject a fixed one.
	Now func() time.Time
}

// Run lists every source, processes the listed documents under the
// concurrency gates, and returns the aggregated report. Failures of single
// documents and of single sources are recorded in the report; only corpus
// store errors and context cancellation abort the run. The report is
// returned even on error, covering the work completed before the failure.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	started := o.clock()
	tally := newTally()
	coord := o.Gates
	if coord == nil {
		descriptors := make([]lexcorpus.Descriptor, 0, len(o.Scrapers))
		for _, s := range o.Scrapers {
			descriptors = append(descriptors, s.Descriptor())
		}
		coord = NewCoordinator(descriptors, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, scraper := range o.Scrapers {
		g.Go(func() error {
			return o.runSource(gctx, scraper, coord, tally)
		})
	}
	err := g.Wait()

	report := tally.report(uuid.New().String(), started, o.clock().Sub(started))
	return report, err
}

// runSource lists one source and fans its entries out under the source's
// fetch gate. A listing failure is recorded and isolated; unit errors other
// than store I/O never escape.
func (o *Orchestrator) runSource(ctx context.Context, scraper lexcorpus.Scraper, coord *Coordinator, tally *tally) error {
	desc := scraper.Descriptor()
	source := desc.Name
	o.emit(Event{Type: EventSourceStarted, Source: source})

	entries, cached, err := o.listing(ctx, scraper, desc)
	if err != nil {
		tally.fail(source, err)
		o.emit(Event{Type: EventSourceFailed, Source: source, Err: err})
		return nil
	}
	tally.setListed(source, len(entries))
	o.emit(Event{Type: EventSourceListed, Source: source, Listed: len(entries), Cached: cached})

	// Reconcile departures only against a fresh listing; a cached one was
	// already reconciled when it was fetched.
	var removed []string
	if !cached {
		listed := make(map[string]bool, len(entries))
		for _, e := range entries {
			listed[e.Key()] = true
		}
		removed = o.Store.RemoveMissing(source, listed)
		if len(removed) > 0 {
			tally.addRemoved(source, len(removed))
		}
	}

	gate := coord.FetchGate(source)
	units, uctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		// A matching source-declared version marker means the document
		// cannot have changed; classify it without spending a fetch.
		if prev, ok := o.Store.Lookup(entry.Key()); ok &&
			entry.SourceVersion != "" && prev.SourceVersion == entry.SourceVersion {
			outcome := &lexcorpus.Outcome{
				Kind:   lexcorpus.OutcomeUnchanged,
				Source: source,
				ID:     entry.Key(),
				Reason: "source version unchanged",
			}
			tally.record(outcome)
			o.emit(Event{Type: EventOutcome, Source: source, Outcome: outcome})
			continue
		}

		units.Go(func() error {
			outcome, err := o.processEntry(uctx, scraper, gate, entry)
			if err != nil {
				return err
			}
			tally.record(outcome)
			o.emit(Event{Type: EventOutcome, Source: source, Outcome: outcome})
			return nil
		})
	}
	if err := units.Wait(); err != nil {
		return err
	}

	o.emit(Event{Type: EventSourceFinished, Source: source, Removed: len(removed)})
	return nil
}

// processEntry runs one unit of work: fetch, extract, detect, merge. All of
// it happens under the source's fetch gate. The returned error is non-nil
// only for store failures and cancellation; everything else becomes the
// entry's outcome.
func (o *Orchestrator) processEntry(ctx context.Context, scraper lexcorpus.Scraper, gate lexcorpus.Gate, entry lexcorpus.Entry) (*lexcorpus.Outcome, error) {
	if err := gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer gate.Release()

	res, raw, err := o.fetchUnit(ctx, scraper, entry)
	if lexcorpus.ErrorCode(err) == lexcorpus.EPARSE {
		// A malformed body is usually a truncated or garbled response;
		// re-fetch the whole unit once before giving up on it.
		res, raw, err = o.fetchUnit(ctx, scraper, entry)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return outcomeFor(entry, err), nil
	}

	prev, exists := o.Store.Lookup(entry.Key())
	if exists && prev.VersionID == res.Fingerprint {
		return &lexcorpus.Outcome{
			Kind:     lexcorpus.OutcomeUnchanged,
			Source:   entry.Source,
			ID:       entry.Key(),
			Warnings: res.Warnings,
		}, nil
	}

	doc := &lexcorpus.Document{
		ID:            entry.Key(),
		Source:        entry.Source,
		VersionID:     res.Fingerprint,
		MIME:          res.MIME,
		Date:          firstNonEmpty(raw.Date, entry.Date),
		Citation:      firstNonEmpty(raw.Citation, entry.Citation),
		Jurisdiction:  entry.Jurisdiction,
		Type:          entry.Type,
		Text:          res.Text,
		WhenScraped:   o.clock().UTC(),
		SourceVersion: firstNonEmpty(raw.SourceVersion, entry.SourceVersion),
	}
	if err := o.Store.Apply(doc); err != nil {
		return nil, err
	}

	kind := lexcorpus.OutcomeAdded
	if exists {
		kind = lexcorpus.OutcomeUpdated
	}
	return &lexcorpus.Outcome{
		Kind:     kind,
		Source:   entry.Source,
		ID:       entry.Key(),
		Warnings: res.Warnings,
	}, nil
}

func (o *Orchestrator) fetchUnit(ctx context.Context, scraper lexcorpus.Scraper, entry lexcorpus.Entry) (*lexcorpus.Extraction, *lexcorpus.RawDocument, error) {
	raw, err := scraper.FetchDocument(ctx, entry)
	if err != nil {
		return nil, nil, err
	}
	res, err := o.Extractor.Extract(ctx, scraper, entry, raw)
	if err != nil {
		return nil, nil, err
	}
	return res, raw, nil
}

// listing returns the source's entries, reusing the cached listing when the
// refresh interval has not elapsed. Cache trouble falls back to a fresh
// listing rather than failing the source.
func (o *Orchestrator) listing(ctx context.Context, scraper lexcorpus.Scraper, desc lexcorpus.Descriptor) ([]lexcorpus.Entry, bool, error) {
	now := o.clock()
	if o.Index != nil && !o.Refresh && desc.IndexRefreshInterval > 0 {
		refreshed, err := o.Index.Refreshed(ctx, desc.Name)
		switch {
		case err != nil:
			o.logger().Warn("index cache read failed", "source", desc.Name, "error", err)
		case !refreshed.IsZero() && now.Sub(refreshed) < desc.IndexRefreshInterval:
			entries, err := o.Index.Entries(ctx, desc.Name)
			if err != nil {
				o.logger().Warn("index cache read failed", "source", desc.Name, "error", err)
			} else if len(entries) > 0 {
				return entries, true, nil
			}
		}
	}

	entries, err := scraper.ListDocuments(ctx)
	if err != nil {
		return nil, false, err
	}
	if o.Index != nil {
		if err := o.Index.Replace(ctx, desc.Name, entries, now); err != nil {
			o.logger().Warn("index cache write failed", "source", desc.Name, "error", err)
		}
	}
	return entries, false, nil
}

// outcomeFor converts a unit error into the entry's outcome: documents the
// source cannot usefully provide are skipped, everything else failed.
func outcomeFor(entry lexcorpus.Entry, err error) *lexcorpus.Outcome {
	kind := lexcorpus.OutcomeFailed
	switch lexcorpus.ErrorCode(err) {
	case lexcorpus.ENOTFOUND, lexcorpus.ENOFORMAT, lexcorpus.ESHORTTEXT:
		kind = lexcorpus.OutcomeSkipped
	}
	return &lexcorpus.Outcome{
		Kind:   kind,
		Source: entry.Source,
		ID:     entry.Key(),
		Reason: lexcorpus.ErrorMessage(err),
		Err:    err,
	}
}

func (o *Orchestrator) emit(event Event) {
	if o.Progress != nil {
		o.Progress(event)
	}
}

func (o *Orchestrator) clock() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
