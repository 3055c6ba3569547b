package lexcorpus

// CorpusStore is the orchestrator's view of the corpus during a run. The
// store is the corpus's only writer; all methods are safe for concurrent use
// from completing fetch units.
type CorpusStore interface {
	// Lookup returns the live record for a source-qualified document id.
	Lookup(id string) (*Document, bool)

	// Apply upserts a record produced by this run and journals it to disk.
	// An Apply failure is fatal to the run.
	Apply(doc *Document) error

	// RemoveMissing drops the source's records whose ids are absent from
	// listed, returning the removed ids. Called only after a successful
	// listing.
	RemoveMissing(source string, listed map[string]bool) []string

	// Len reports the number of live records.
	Len() int
}
