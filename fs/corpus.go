// Package fs persists the corpus as a JSON Lines file.
package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexcorpus/lexcorpus"
)

// Ensure Corpus implements lexcorpus.CorpusStore at compile time.
var _ lexcorpus.CorpusStore = (*Corpus)(nil)

// Corpus is a JSON Lines corpus store with read-first semantics: Open loads
// and reconciles the whole file before any scraping starts, Apply journals
// each completed record as one appended line, and Flush rewrites the file
// atomically only when the reconciled set differs from the on-disk line
// sequence. A run that changes nothing leaves the file byte-for-byte
// untouched.
type Corpus struct {
	mu      sync.Mutex
	path    string
	journal *os.File
	docs    map[string]*lexcorpus.Document
	order   []string
	dirty   bool
	closed  bool

	// needsNewline is set when the loaded file does not end with a newline,
	// so the first journal append does not glue onto a torn final line.
	needsNewline bool

	minContentLength int
	report           LoadReport
}

// LoadReport describes what Open found in the corpus file.
type LoadReport struct {
	// Live is the number of records remaining after reconciliation.
	Live int

	// Corrupted counts lines dropped as undecodable or failing validation.
	// Their documents are re-fetched this run.
	Corrupted int

	// Duplicates counts lines superseded by a newer record with the same id.
	Duplicates int

	// Changed reports whether reconciliation altered the record set, which
	// forces a rewrite on the next Flush.
	Changed bool
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithMinContentLength overrides the minimum number of alphabetic characters
// a stored record's text must have to survive reconciliation.
func WithMinContentLength(n int) Option {
	return func(c *Corpus) {
		c.minContentLength = n
	}
}

// Open loads the corpus at path, reconciling it in memory: undecodable lines
// and records failing validation are dropped, duplicate ids keep the record
// with the most recent scrape time. A missing file starts an empty corpus.
func Open(path string, opts ...Option) (*Corpus, error) {
	c := &Corpus{
		path:             path,
		docs:             make(map[string]*lexcorpus.Document),
		minContentLength: lexcorpus.DefaultMinContentLength,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EINTERNAL, "creating corpus directory: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, lexcorpus.Errorf(lexcorpus.EINTERNAL, "reading corpus %s: %v", path, err)
	}
	c.load(data)
	c.report.Live = len(c.docs)
	c.report.Changed = c.dirty

	journal, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EINTERNAL, "opening corpus %s for append: %v", path, err)
	}
	c.journal = journal
	return c, nil
}

func (c *Corpus) load(data []byte) {
	c.needsNewline = len(data) > 0 && data[len(data)-1] != '\n'

	for len(data) > 0 {
		line, rest, _ := bytes.Cut(data, []byte{'\n'})
		data = rest

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var doc lexcorpus.Document
		if err := json.Unmarshal(line, &doc); err != nil {
			c.report.Corrupted++
			c.dirty = true
			continue
		}
		if err := doc.Validate(); err != nil {
			c.report.Corrupted++
			c.dirty = true
			continue
		}
		if lexcorpus.AlphabeticCount(doc.Text) < c.minContentLength {
			c.report.Corrupted++
			c.dirty = true
			continue
		}

		if prev, ok := c.docs[doc.ID]; ok {
			c.report.Duplicates++
			c.dirty = true
			if !doc.WhenScraped.Before(prev.WhenScraped) {
				c.docs[doc.ID] = &doc
			}
			continue
		}
		c.docs[doc.ID] = &doc
		c.order = append(c.order, doc.ID)
	}
}

// LoadReport returns what Open found. The report does not change during the
// run.
func (c *Corpus) LoadReport() LoadReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// Path returns the corpus file path.
func (c *Corpus) Path() string {
	return c.path
}

func (c *Corpus) Lookup(id string) (*lexcorpus.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	return doc, ok
}

func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Apply upserts the record in memory and appends it to the corpus file as one
// JSON line. An update leaves the superseded line behind, so the next Flush
// rewrites; an append of a new id keeps file and memory in agreement on its
// own.
func (c *Corpus) Apply(doc *lexcorpus.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "corpus %s is closed", c.path)
	}

	line, err := json.Marshal(doc)
	if err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "encoding corpus record %s: %v", doc.ID, err)
	}
	buf := make([]byte, 0, len(line)+2)
	if c.needsNewline {
		buf = append(buf, '\n')
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := c.journal.Write(buf); err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "appending to corpus %s: %v", c.path, err)
	}
	c.needsNewline = false

	if _, ok := c.docs[doc.ID]; ok {
		c.dirty = true
	} else {
		c.order = append(c.order, doc.ID)
	}
	c.docs[doc.ID] = doc
	return nil
}

// RemoveMissing drops the source's records whose ids are absent from listed
// and returns the removed ids in first-seen order.
func (c *Corpus) RemoveMissing(source string, listed map[string]bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	kept := c.order[:0]
	for _, id := range c.order {
		doc := c.docs[id]
		if doc.Source == source && !listed[id] {
			delete(c.docs, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
	if len(removed) > 0 {
		c.dirty = true
	}
	return removed
}

// Flush rewrites the corpus file from the in-memory set if reconciliation,
// updates, or removals made them differ. The rewrite goes to a temporary file
// in the same directory, is synced, and replaces the corpus in one rename.
func (c *Corpus) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flush()
}

func (c *Corpus) flush() error {
	if !c.dirty {
		return nil
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "creating corpus temp file: %v", err)
	}
	renamed := false
	defer func() {
		if !renamed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	for _, id := range c.order {
		line, err := json.Marshal(c.docs[id])
		if err != nil {
			return lexcorpus.Errorf(lexcorpus.EINTERNAL, "encoding corpus record %s: %v", id, err)
		}
		if _, err := w.Write(line); err != nil {
			return lexcorpus.Errorf(lexcorpus.EINTERNAL, "writing corpus temp file: %v", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return lexcorpus.Errorf(lexcorpus.EINTERNAL, "writing corpus temp file: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "writing corpus temp file: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "syncing corpus temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "closing corpus temp file: %v", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "replacing corpus %s: %v", c.path, err)
	}
	renamed = true

	// The journal handle points at the replaced inode; reopen on the new
	// file so later appends land in the corpus.
	if c.journal != nil {
		c.journal.Close()
	}
	journal, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "reopening corpus %s for append: %v", c.path, err)
	}
	c.journal = journal
	c.dirty = false
	c.needsNewline = false
	return nil
}

// Close flushes pending reconciliation and releases the file handle. Close is
// idempotent.
func (c *Corpus) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	flushErr := c.flush()
	c.closed = true
	var closeErr error
	if c.journal != nil {
		closeErr = c.journal.Close()
		c.journal = nil
	}
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return lexcorpus.Errorf(lexcorpus.EINTERNAL, "closing corpus %s: %v", c.path, closeErr)
	}
	return nil
}
