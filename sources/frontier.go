package sources

import (
	"strings"

	"github.com/lexcorpus/lexcorpus/bloom"
)

// pageFrontier is a FIFO queue of result pages with Bloom filter
// deduplication. Sources whose result counters are unreliable walk their
// pagination links instead of computing page URLs up front; the frontier
// keeps that walk finite.
type pageFrontier struct {
	queue []string
	seen  *bloom.Filter
}

// newPageFrontier creates a frontier sized for n expected pages.
func newPageFrontier(n uint) *pageFrontier {
	return &pageFrontier{seen: bloom.NewFilter(n, 0.001)}
}

// Push queues a page URL unless it has already been seen. Fragments are
// stripped before deduplication.
func (f *pageFrontier) Push(url string) bool {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	if url == "" || f.seen.TestAndAdd(url) {
		return false
	}
	f.queue = append(f.queue, url)
	return true
}

// Pop returns the next page in discovery order.
func (f *pageFrontier) Pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	url := f.queue[0]
	f.queue = f.queue[1:]
	return url, true
}

// Len returns the number of queued pages.
func (f *pageFrontier) Len() int {
	return len(f.queue)
}
