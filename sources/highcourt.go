package sources

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lexcorpus/lexcorpus"
	lexhttp "github.com/lexcorpus/lexcorpus/http"
)

var (
	_ lexcorpus.Scraper          = (*HighCourt)(nil)
	_ lexcorpus.AlternateFetcher = (*HighCourt)(nil)
)

// hcZone is the court's local time; the search collections are year-filtered
// in it.
var hcZone = time.FixedZone("AEST", 10*60*60)

var (
	hcLastItemPattern = regexp.MustCompile(`<span\s+id="lastItem"\s*>([\d,\s]+)</span\s*>`)
	hcCasePattern     = regexp.MustCompile(`<a\s+class="case"\s+href="([^"]+)"\s*>((?:.|\n)*?)</a\s*>`)
	hcDatePattern     = regexp.MustCompile(`<h2>(\d{1,2} [A-Z][a-z]+ \d{4})</h2>`)
	hcButtonPattern   = regexp.MustCompile(`<a[^>]+href="([^"]+)"[^>]*>(PDF|View|Download|DOCX|RTF)</a>`)
	hcTagPattern      = regexp.MustCompile(`<[^>]*>`)
)

// hcMissingMarkers are the database's ways of saying a judgment rendition
// does not exist behind its download link.
var hcMissingMarkers = []string{
	"Document could not be found",
	"There were no matching cases.",
}

// HighCourt scrapes the high court's judgment database. Judgments are listed
// through four search collections paginated by a result counter, and served
// as embedded HTML or behind PDF, DOCX, and RTF download buttons.
type HighCourt struct {
	BaseURL string

	client   *lexhttp.Client
	renderer lexcorpus.Renderer
	desc     lexcorpus.Descriptor
	logger   *slog.Logger
}

// NewHighCourt creates the high court source. The database rate-limits
// aggressively, so the descriptor carries a low concurrency bound and the
// retry policy waits longer than the defaults.
func NewHighCourt(opts ...Option) *HighCourt {
	o := buildOptions(opts)

	retry := lexcorpus.DefaultRetryPolicy()
	retry.BaseDelay = 3 * time.Second
	retry.MaxDelay = 450 * time.Second
	retry.MaxTotalWait = 45 * time.Minute
	retry = o.retryPolicy(retry)

	httpOpts := append([]lexhttp.Option{
		lexhttp.WithRetryPolicy(retry),
		lexhttp.WithLogger(o.logger),
	}, o.httpOptions...)

	return &HighCourt{
		BaseURL:  "https://eresources.hcourt.gov.au",
		client:   lexhttp.NewClient(httpOpts...),
		renderer: o.renderer,
		desc: o.descriptor(lexcorpus.Descriptor{
			Name:        "highcourt",
			Concurrency: 4,
			Retry:       retry,
		}),
		logger: o.logger,
	}
}

// Descriptor returns the source's scheduling configuration.
func (s *HighCourt) Descriptor() lexcorpus.Descriptor {
	return s.desc
}

// collectionURLs returns the base search page of each judgment collection:
// cols 0 to 2 are the judgment datasets, the historical path is the
// unreported judgments.
func (s *HighCourt) collectionURLs() []string {
	year := time.Now().In(hcZone).Year()
	urls := make([]string, 0, 4)
	for col := 0; col <= 2; col++ {
		urls = append(urls, fmt.Sprintf("%s/search?col=%d&filter_4=0+TO+%d", s.BaseURL, col, year))
	}
	return append(urls, fmt.Sprintf("%s/historical/search?col=0&filter_4=0+TO+%d", s.BaseURL, year))
}

// ListDocuments walks every page of every collection. Case links double as
// version markers: a judgment's slug never changes once published.
func (s *HighCourt) ListDocuments(ctx context.Context) ([]lexcorpus.Entry, error) {
	var entries []lexcorpus.Entry
	seen := make(map[string]bool)

	for _, base := range s.collectionURLs() {
		first, err := s.searchText(ctx, base)
		if err != nil {
			return nil, err
		}

		pages, err := hcPageCount(first, base)
		if err != nil {
			return nil, err
		}

		for page := 1; page <= pages; page++ {
			serp, err := s.searchText(ctx, fmt.Sprintf("%s&page=%d", base, page))
			if err != nil {
				return nil, err
			}

			for _, m := range hcCasePattern.FindAllStringSubmatch(serp, -1) {
				slug := m[1]
				if seen[slug] {
					continue
				}
				seen[slug] = true

				entries = append(entries, lexcorpus.Entry{
					Source:        "highcourt",
					ID:            strings.TrimPrefix(slug, "/"),
					URL:           s.BaseURL + slug,
					Citation:      flattenHTML(m[2]),
					Type:          "decision",
					Jurisdiction:  "commonwealth",
					SourceVersion: slug,
				})
			}
		}
	}
	return entries, nil
}

// searchText retrieves one search page, through the renderer when the caller
// supplied one for the script-driven result pages.
func (s *HighCourt) searchText(ctx context.Context, url string) (string, error) {
	if s.renderer != nil {
		return s.renderer.Render(ctx, url)
	}
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for search page %s", resp.StatusCode, url)
	}
	return resp.Text(), nil
}

func hcPageCount(serp, url string) (int, error) {
	m := hcLastItemPattern.FindStringSubmatch(serp)
	if m == nil {
		return 0, lexcorpus.Errorf(lexcorpus.EPARSE, "no page count on search page %s", url)
	}
	digits := strings.NewReplacer(",", "", " ", "").Replace(m[1])
	pages, err := strconv.Atoi(digits)
	if err != nil {
		return 0, lexcorpus.Errorf(lexcorpus.EPARSE, "bad page count %q on search page %s", m[1], url)
	}
	return pages, nil
}

// FetchDocument retrieves one judgment. A download button on the judgment
// page means no embedded HTML exists; the last button is preferred because
// the first is always PDF and the court's PDFs need OCR.
func (s *HighCourt) FetchDocument(ctx context.Context, entry lexcorpus.Entry) (*lexcorpus.RawDocument, error) {
	pageURL := entry.URL
	if pageURL == "" {
		pageURL = s.BaseURL + "/" + entry.ID
	}

	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, lexcorpus.Errorf(lexcorpus.ENOTFOUND, "judgment %s not found", entry.ID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for judgment page %s", resp.StatusCode, pageURL)
	}

	page := resp.Text()

	var date string
	if m := hcDatePattern.FindStringSubmatch(page); m != nil {
		date = parseLongDate(m[1])
	}

	buttons := hcButtonPattern.FindAllStringSubmatch(page, -1)
	if len(buttons) == 0 {
		return &lexcorpus.RawDocument{
			Parts:   [][]byte{[]byte(page)},
			MIME:    lexcorpus.MIMEHTML,
			Date:    date,
			Profile: &lexcorpus.HTMLProfile{ContentSelector: "div.wellCase"},
		}, nil
	}

	last := buttons[len(buttons)-1]
	raw, err := s.fetchButton(ctx, resp.URL, last[1], last[2])
	if err != nil {
		return nil, err
	}
	raw.Date = date
	return raw, nil
}

// FetchAlternate retrieves another rendition when the primary one turned out
// to be legacy DOC, which the court sometimes serves behind its RTF buttons.
func (s *HighCourt) FetchAlternate(ctx context.Context, entry lexcorpus.Entry, exclude string) (*lexcorpus.RawDocument, error) {
	pageURL := entry.URL
	if pageURL == "" {
		pageURL = s.BaseURL + "/" + entry.ID
	}

	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for judgment page %s", resp.StatusCode, pageURL)
	}

	buttons := hcButtonPattern.FindAllStringSubmatch(resp.Text(), -1)
	for _, mime := range []string{lexcorpus.MIMEDocx, lexcorpus.MIMERTF, lexcorpus.MIMEPDF} {
		if mime == exclude {
			continue
		}
		for _, b := range buttons {
			if hcButtonMIME(b[2]) != mime {
				continue
			}
			return s.fetchButton(ctx, resp.URL, b[1], b[2])
		}
	}
	return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "no rendition of %s besides %s", entry.ID, exclude)
}

func (s *HighCourt) fetchButton(ctx context.Context, baseURL, href, label string) (*lexcorpus.RawDocument, error) {
	downloadURL := resolveURL(baseURL, href)
	resp, err := s.client.Get(ctx, downloadURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, lexcorpus.Errorf(lexcorpus.ENOTFOUND, "rendition %s not found", downloadURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for rendition %s", resp.StatusCode, downloadURL)
	}
	for _, marker := range hcMissingMarkers {
		if bytes.Contains(resp.Body, []byte(marker)) {
			return nil, lexcorpus.Errorf(lexcorpus.ENOTFOUND, "rendition %s is missing from the database", downloadURL)
		}
	}

	return &lexcorpus.RawDocument{
		Parts: [][]byte{resp.Body},
		MIME:  hcButtonMIME(label),
	}, nil
}

// hcButtonMIME maps a download button label to the rendition's media type.
// View and Download buttons always point at PDFs.
func hcButtonMIME(label string) string {
	switch label {
	case "DOCX":
		return lexcorpus.MIMEDocx
	case "RTF":
		return lexcorpus.MIMERTF
	default:
		return lexcorpus.MIMEPDF
	}
}

// flattenHTML reduces an HTML fragment to its text, with entities decoded
// and whitespace collapsed.
func flattenHTML(fragment string) string {
	text := hcTagPattern.ReplaceAllString(fragment, " ")
	return strings.Join(strings.Fields(html.UnescapeString(text)), " ")
}
