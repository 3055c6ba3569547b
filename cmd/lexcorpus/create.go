package main

import (
	"fmt"
	"time"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/scrape"
	lexslog "github.com/lexcorpus/lexcorpus/slog"
)

// Run executes the create command.
func (c *CreateCmd) Run(deps *Dependencies) error {
	if load := deps.Store.LoadReport(); load.Corrupted > 0 || load.Duplicates > 0 {
		fmt.Fprintf(deps.Stdout, "Repaired corpus on load: %d records live, %d corrupted lines dropped, %d duplicates merged\n",
			load.Live, load.Corrupted, load.Duplicates)
	}

	logSink := lexslog.Progress(deps.Logger)
	progress := func(event scrape.Event) {
		logSink(event)
		switch event.Type {
		case scrape.EventSourceListed:
			cached := ""
			if event.Cached {
				cached = " (cached)"
			}
			fmt.Fprintf(deps.Stdout, "%s: %d documents listed%s\n", event.Source, event.Listed, cached)
		case scrape.EventSourceFailed:
			fmt.Fprintf(deps.Stderr, "%s: %v\n", event.Source, event.Err)
		}
	}

	orchestrator := &scrape.Orchestrator{
		Scrapers:  deps.Scrapers,
		Store:     deps.Store,
		Extractor: deps.Extractor,
		Index:     deps.Index,
		Gates:     deps.Gates,
		Refresh:   c.Refresh,
		Progress:  progress,
		Logger:    deps.Logger,
	}

	report, runErr := orchestrator.Run(deps.Ctx)

	// Flush before reporting so a rewrite failure is not buried under the
	// summary.
	if err := deps.Store.Flush(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lexcorpus.ErrorMessage(err))
		return err
	}
	if report != nil {
		printReport(deps, report)
	}
	if runErr != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lexcorpus.ErrorMessage(runErr))
		return runErr
	}
	return nil
}

// printReport writes the per-source summary and the run totals.
func printReport(deps *Dependencies, report *scrape.Report) {
	for _, s := range report.Sources {
		if s.Err != nil {
			fmt.Fprintf(deps.Stdout, "%s: failed: %v\n", s.Source, s.Err)
			continue
		}
		fmt.Fprintf(deps.Stdout, "%s: %d added, %d updated, %d unchanged, %d skipped, %d failed, %d removed\n",
			s.Source, s.Added, s.Updated, s.Unchanged, s.Skipped, s.Failed, s.Removed)
		for _, warning := range s.Warnings {
			fmt.Fprintf(deps.Stdout, "  warning: %s\n", warning)
		}
	}
	fmt.Fprintf(deps.Stdout, "Run %s finished in %s; %d documents in corpus\n",
		report.RunID, report.Duration.Round(time.Millisecond), deps.Store.Len())
}
