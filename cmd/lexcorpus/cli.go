package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/fs"
	"github.com/lexcorpus/lexcorpus/scrape"
	"github.com/lexcorpus/lexcorpus/sources"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Store is the corpus, open for commands that touch it.
	Store *fs.Corpus

	// Index caches source listings between runs.
	Index lexcorpus.IndexCache

	// Scrapers are the sources selected for the command.
	Scrapers []lexcorpus.Scraper

	// Extractor turns raw documents into corpus text.
	Extractor lexcorpus.Extractor

	// Gates bound fetch and OCR concurrency.
	Gates *scrape.Coordinator
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Corpus  string `help:"Path to the corpus file." default:"corpus.jsonl" env:"LEXCORPUS_CORPUS"`
	DataDir string `help:"Directory for the source index cache (default ~/.lexcorpus)." env:"LEXCORPUS_DATA_DIR"`
	Verbose bool   `short:"v" help:"Enable debug logging."`

	Create  CreateCmd  `cmd:"" help:"Scrape every source and synchronize the corpus"`
	Verify  VerifyCmd  `cmd:"" help:"Load, repair, and rewrite the corpus without network access"`
	Fetch   FetchCmd   `cmd:"" help:"Fetch and extract a single document for debugging"`
	Sources SourcesCmd `cmd:"" help:"List the registered sources"`
}

// CreateCmd is the "create" subcommand.
type CreateCmd struct {
	Sources          []string         `short:"s" help:"Sources to scrape, comma delimited. Defaults to all registered sources."`
	Concurrency      map[string]int64 `short:"c" help:"Per-source fetch concurrency overrides." placeholder:"SOURCE=N"`
	MaxConcurrentOCR int64            `name:"max-concurrent-ocr" short:"m" default:"1" help:"How many PDFs may be OCR'd concurrently."`
	RefreshInterval  time.Duration    `name:"refresh-interval" default:"336h" help:"How long cached source listings stay fresh."`
	Refresh          bool             `help:"Re-list every source regardless of the refresh interval."`
	Browser          bool             `help:"Render script-driven listing pages with a headless browser."`
	NoOCR            bool             `name:"no-ocr" help:"Skip OCR; scanned PDFs without a text layer are skipped."`
	OCRLanguages     []string         `name:"ocr-languages" default:"eng" help:"Tesseract language models, comma delimited."`

	MaxRetries   *int           `name:"max-retries" placeholder:"N" help:"Override every source's retry limit."`
	BaseDelay    *time.Duration `name:"base-delay" help:"Override every source's base backoff delay."`
	MaxDelay     *time.Duration `name:"max-delay" help:"Override every source's backoff ceiling."`
	MaxTotalWait *time.Duration `name:"max-total-wait" help:"Override every source's total retry budget."`
}

// retryBounds converts the backoff flag overrides into a source option, or
// nil when none were given.
func (c *CreateCmd) retryBounds() *sources.Option {
	if c.MaxRetries == nil && c.BaseDelay == nil && c.MaxDelay == nil && c.MaxTotalWait == nil {
		return nil
	}
	maxRetries := -1
	if c.MaxRetries != nil {
		maxRetries = *c.MaxRetries
	}
	opt := sources.WithRetryBounds(maxRetries, durationFlag(c.BaseDelay), durationFlag(c.MaxDelay), durationFlag(c.MaxTotalWait))
	return &opt
}

func durationFlag(d *time.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return *d
}

// VerifyCmd is the "verify" subcommand.
type VerifyCmd struct{}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	Source string `arg:"" help:"Source name."`
	ID     string `arg:"" help:"Document id within the source."`

	URL          string   `help:"Document URL, for sources that cannot derive it from the id."`
	Browser      bool     `help:"Render script-driven pages with a headless browser."`
	NoOCR        bool     `name:"no-ocr" help:"Skip OCR."`
	OCRLanguages []string `name:"ocr-languages" default:"eng" help:"Tesseract language models, comma delimited."`
}

// SourcesCmd is the "sources" subcommand.
type SourcesCmd struct{}
