package slog

import (
	"log/slog"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/scrape"
)

// Progress returns a run progress callback that renders events as log lines.
// Source lifecycle goes to Info, per-document outcomes to Debug, failures and
// extraction warnings to their own levels so a quiet log still surfaces them.
func Progress(logger *slog.Logger) scrape.ProgressFunc {
	return func(event scrape.Event) {
		switch event.Type {
		case scrape.EventSourceStarted:
			logger.Info("source started", "source", event.Source)
		case scrape.EventSourceListed:
			logger.Info("source listed",
				"source", event.Source,
				"count", event.Listed,
				"cached", event.Cached,
			)
		case scrape.EventSourceFailed:
			logger.Error("source failed", "source", event.Source, "err", event.Err)
		case scrape.EventSourceFinished:
			logger.Info("source finished", "source", event.Source, "removed", event.Removed)
		case scrape.EventOutcome:
			logOutcome(logger, event.Outcome)
		}
	}
}

func logOutcome(logger *slog.Logger, o *lexcorpus.Outcome) {
	if o == nil {
		return
	}
	switch o.Kind {
	case lexcorpus.OutcomeFailed:
		logger.Warn("document failed", "id", o.ID, "err", o.Err)
	case lexcorpus.OutcomeSkipped:
		logger.Info("document skipped", "id", o.ID, "reason", o.Reason)
	default:
		logger.Debug("document "+string(o.Kind), "id", o.ID)
	}
	for _, warning := range o.Warnings {
		logger.Warn("extraction warning", "id", o.ID, "warning", warning)
	}
}
