package main

import (
	"fmt"

	"github.com/lexcorpus/lexcorpus"
)

// Run executes the fetch command. Diagnostics go to stderr so the extracted
// text on stdout stays pipeable.
func (c *FetchCmd) Run(deps *Dependencies) error {
	scraper := deps.Scrapers[0]

	entry := lexcorpus.Entry{Source: c.Source, ID: c.ID, URL: c.URL}
	raw, err := scraper.FetchDocument(deps.Ctx, entry)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lexcorpus.ErrorMessage(err))
		return err
	}

	extraction, err := deps.Extractor.Extract(deps.Ctx, scraper, entry, raw)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lexcorpus.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stderr, "%s: %s, fingerprint %s, %d characters\n",
		entry.Key(), extraction.MIME, extraction.Fingerprint, len(extraction.Text))
	for _, warning := range extraction.Warnings {
		fmt.Fprintf(deps.Stderr, "warning: %s\n", warning)
	}
	fmt.Fprintln(deps.Stdout, extraction.Text)
	return nil
}
