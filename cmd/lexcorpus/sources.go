package main

import "fmt"

// Run executes the sources command.
func (c *SourcesCmd) Run(deps *Dependencies) error {
	for _, scraper := range deps.Scrapers {
		d := scraper.Descriptor()
		fmt.Fprintf(deps.Stdout, "%-16s concurrency %-3d refresh %v\n",
			d.Name, d.Concurrency, d.IndexRefreshInterval)
	}
	return nil
}
