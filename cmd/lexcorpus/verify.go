package main

import (
	"fmt"

	"github.com/lexcorpus/lexcorpus"
)

// Run executes the verify command.
func (c *VerifyCmd) Run(deps *Dependencies) error {
	load := deps.Store.LoadReport()
	fmt.Fprintf(deps.Stdout, "%d records live, %d corrupted lines dropped, %d duplicates merged\n",
		load.Live, load.Corrupted, load.Duplicates)

	if err := deps.Store.Flush(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lexcorpus.ErrorMessage(err))
		return err
	}

	if load.Changed {
		fmt.Fprintf(deps.Stdout, "Corpus rewritten: %s\n", deps.Store.Path())
	} else {
		fmt.Fprintln(deps.Stdout, "Corpus already clean.")
	}
	return nil
}
