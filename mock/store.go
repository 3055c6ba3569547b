package mock

import "github.com/lexcorpus/lexcorpus"

var _ lexcorpus.CorpusStore = (*CorpusStore)(nil)

// CorpusStore is a mock implementation of lexcorpus.CorpusStore.
type CorpusStore struct {
	LookupFn        func(id string) (*lexcorpus.Document, bool)
	ApplyFn         func(doc *lexcorpus.Document) error
	RemoveMissingFn func(source string, listed map[string]bool) []string
	LenFn           func() int
}

func (s *CorpusStore) Lookup(id string) (*lexcorpus.Document, bool) {
	return s.LookupFn(id)
}

func (s *CorpusStore) Apply(doc *lexcorpus.Document) error {
	return s.ApplyFn(doc)
}

func (s *CorpusStore) RemoveMissing(source string, listed map[string]bool) []string {
	return s.RemoveMissingFn(source, listed)
}

func (s *CorpusStore) Len() int {
	return s.LenFn()
}
