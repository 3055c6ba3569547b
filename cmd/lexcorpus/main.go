package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/extract"
	"github.com/lexcorpus/lexcorpus/fs"
	"github.com/lexcorpus/lexcorpus/rod"
	"github.com/lexcorpus/lexcorpus/scrape"
	lexslog "github.com/lexcorpus/lexcorpus/slog"
	"github.com/lexcorpus/lexcorpus/sources"
	"github.com/lexcorpus/lexcorpus/sqlite"
	"github.com/lexcorpus/lexcorpus/tesseract"
)

func main() {
	// Runs take hours; an interrupt cancels the run and the store still
	// flushes what completed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Store is the corpus, open while a command that uses it runs.
	Store *fs.Corpus

	// DB backs the source index cache.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var err error
	if m.Store != nil {
		err = m.Store.Close()
	}
	if m.DB != nil {
		if cerr := m.DB.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("lexcorpus"),
		kong.Description("Builds and synchronizes a legal document corpus."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle help flags using Kong
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'lexcorpus --help' to see available commands")
	}
	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	// Open the corpus for commands that touch it.
	if cmd == "create" || cmd == "verify" {
		store, err := fs.Open(cli.Corpus)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Set LEXCORPUS_CORPUS to use a different corpus path")
			return fmt.Errorf("failed to open corpus at %q: %w", cli.Corpus, err)
		}
		m.Store = store
		deps.Store = store
	}
	defer m.Close()

	switch cmd {
	case "create":
		dataDir := cli.DataDir
		if dataDir == "" {
			dataDir = defaultDataDir()
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir %q: %w", dataDir, err)
		}
		m.DB = sqlite.NewDB(filepath.Join(dataDir, "index.db"))
		if err := m.DB.Open(); err != nil {
			fmt.Fprintln(stderr, "Hint: Set LEXCORPUS_DATA_DIR to use a different data directory")
			return fmt.Errorf("failed to open index cache: %w", err)
		}
		deps.Index = sqlite.NewIndexCache(m.DB)

		baseOpts := []sources.Option{
			sources.WithLogger(logger),
			sources.WithRefreshInterval(cli.Create.RefreshInterval),
		}
		if bounds := cli.Create.retryBounds(); bounds != nil {
			baseOpts = append(baseOpts, *bounds)
		}
		if cli.Create.Browser {
			renderer, err := rod.NewRenderer()
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer renderer.Close()
			baseOpts = append(baseOpts, sources.WithRenderer(lexslog.NewLoggingRenderer(renderer, logger)))
		}

		scrapers, descriptors, err := buildScrapers(cli.Create.Sources, cli.Create.Concurrency, baseOpts, logger)
		if err != nil {
			return err
		}
		deps.Scrapers = scrapers
		deps.Gates = scrape.NewCoordinator(descriptors, cli.Create.MaxConcurrentOCR)

		extractOpts := []extract.Option{
			extract.WithLogger(logger),
			extract.WithOCRGate(deps.Gates.OCRGate()),
		}
		if !cli.Create.NoOCR {
			recognizer, err := newRecognizer(cli.Create.OCRLanguages, logger, stderr)
			if err != nil {
				return err
			}
			extractOpts = append(extractOpts, extract.WithRecognizer(recognizer))
		}
		deps.Extractor = extract.NewPipeline(extractOpts...)

	case "fetch":
		opts := []sources.Option{sources.WithLogger(logger)}
		if cli.Fetch.Browser {
			renderer, err := rod.NewRenderer()
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer renderer.Close()
			opts = append(opts, sources.WithRenderer(lexslog.NewLoggingRenderer(renderer, logger)))
		}
		scraper, err := sources.New(cli.Fetch.Source, opts...)
		if err != nil {
			return err
		}
		deps.Scrapers = []lexcorpus.Scraper{lexslog.NewLoggingScraper(scraper, logger)}

		extractOpts := []extract.Option{extract.WithLogger(logger)}
		if !cli.Fetch.NoOCR {
			recognizer, err := newRecognizer(cli.Fetch.OCRLanguages, logger, stderr)
			if err != nil {
				return err
			}
			extractOpts = append(extractOpts, extract.WithRecognizer(recognizer))
		}
		deps.Extractor = extract.NewPipeline(extractOpts...)

	case "sources":
		deps.Scrapers = sources.All()
	}

	return kongCtx.Run(deps)
}

// buildScrapers constructs the selected sources, decorated with logging, and
// returns them alongside their descriptors for the concurrency gates.
func buildScrapers(names []string, concurrency map[string]int64, baseOpts []sources.Option, logger *slog.Logger) ([]lexcorpus.Scraper, []lexcorpus.Descriptor, error) {
	if len(names) == 0 {
		names = sources.Names()
	}

	registered := make(map[string]bool, len(sources.Names()))
	for _, name := range sources.Names() {
		registered[name] = true
	}
	for name := range concurrency {
		if !registered[name] {
			return nil, nil, lexcorpus.Errorf(lexcorpus.EINVALID, "unknown source %q in --concurrency", name)
		}
	}

	scrapers := make([]lexcorpus.Scraper, 0, len(names))
	descriptors := make([]lexcorpus.Descriptor, 0, len(names))
	for _, name := range names {
		opts := append([]sources.Option{}, baseOpts...)
		if n, ok := concurrency[name]; ok {
			opts = append(opts, sources.WithConcurrency(n))
		}
		scraper, err := sources.New(name, opts...)
		if err != nil {
			return nil, nil, err
		}
		descriptors = append(descriptors, scraper.Descriptor())
		scrapers = append(scrapers, lexslog.NewLoggingScraper(scraper, logger))
	}
	return scrapers, descriptors, nil
}

// newRecognizer builds the OCR capability, hinting at the system packages it
// shells out to when they are missing.
func newRecognizer(languages []string, logger *slog.Logger, stderr io.Writer) (lexcorpus.Recognizer, error) {
	recognizer, err := tesseract.NewRecognizer(
		tesseract.WithLanguages(languages...),
		tesseract.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Install tesseract and poppler-utils, or pass --no-ocr")
		return nil, fmt.Errorf("failed to configure ocr: %w", err)
	}
	return recognizer, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lexcorpus"
	}
	return filepath.Join(home, ".lexcorpus")
}
