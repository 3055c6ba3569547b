package scrape

import (
	"sync"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/semaphore"
)

// Coordinator owns the run's permit pools: one fetch gate per source, sized
// by the source's descriptor, and one global OCR gate. Fetch gates bound
// whole fetch units; the OCR gate bounds concurrent recognizer processes
// across all sources.
type Coordinator struct {
	mu    sync.Mutex
	fetch map[string]lexcorpus.Gate
	ocr   lexcorpus.Gate
}

// NewCoordinator creates gates for the given source descriptors. A
// maxConcurrentOCR below 1 means one OCR process at a time.
func NewCoordinator(descriptors []lexcorpus.Descriptor, maxConcurrentOCR int64) *Coordinator {
	c := &Coordinator{
		fetch: make(map[string]lexcorpus.Gate, len(descriptors)),
		ocr:   semaphore.NewGate(maxConcurrentOCR),
	}
	for _, d := range descriptors {
		n := d.Concurrency
		if n < 1 {
			n = lexcorpus.DefaultConcurrency
		}
		c.fetch[d.Name] = semaphore.NewGate(n)
	}
	return c
}

// FetchGate returns the source's fetch gate. Sources without a configured
// gate get a default-sized one.
func (c *Coordinator) FetchGate(source string) lexcorpus.Gate {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.fetch[source]
	if !ok {
		g = semaphore.NewGate(lexcorpus.DefaultConcurrency)
		c.fetch[source] = g
	}
	return g
}

// OCRGate returns the global OCR gate.
func (c *Coordinator) OCRGate() lexcorpus.Gate {
	return c.ocr
}
