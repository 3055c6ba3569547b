package sources

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/lexcorpus/lexcorpus"
	lexhttp "github.com/lexcorpus/lexcorpus/http"
)

var _ lexcorpus.Scraper = (*FederalCourt)(nil)

const (
	// fcDocsPerPage is the number of results requested per search page.
	fcDocsPerPage = 20

	// fcExpectedPages sizes the pagination frontier's dedup filter.
	fcExpectedPages = 16384
)

var (
	fcCasePattern = regexp.MustCompile(`<a href="([^"]+/judgments/Judgments/[^"]+)"\s+title="([^"]*)">`)
	fcMetaPattern = regexp.MustCompile(`<p class="?meta"?>([^<]*)<span class="divide">`)
	fcPagePattern = regexp.MustCompile(`<a[^>]+href="([^"]*start_rank=\d+[^"]*)"`)
	fcWordPattern = regexp.MustCompile(`<a\s+href="([^"]+)"[^>]*>Original Word Document`)
)

// fcIndentClasses maps the database's paragraph classes to indent depths so
// the extractor can preserve quote and list nesting. The depths come from the
// database's stylesheet.
var fcIndentClasses = map[string]int{
	"Quote1": 6, "Quote1Bullet": 6,
	"Quote2": 9, "Quote2Bullet": 9,
	"Quote3": 12, "Quote3Bullet": 12,
	"Quote4": 15, "Quote4Bullet": 15,
	"ListNo": 7,
	"ListNo1": 3, "ListNo2": 6, "ListNo3": 8,
	"ListNo1alt": 3, "ListNo2alt": 6, "ListNo3alt": 8,
	"FTOC2": 2, "FTOC3": 4, "FTOC4": 6,
	"Order2": 1, "Order3": 3, "Order4": 4,
	"FCBullets": 3, "FCBullets2": 4,
}

// FederalCourt scrapes the federal court's judgment database. The search
// engine's result counters are unreliable, both on the first page and on the
// alleged last one, so the listing walks pagination links through a frontier
// instead of computing page URLs from a count. Decisions of the Supreme Court
// of Norfolk Island live in the same database but belong to their own
// jurisdiction.
type FederalCourt struct {
	SearchBase string

	client *lexhttp.Client
	desc   lexcorpus.Descriptor
	logger *slog.Logger
}

// NewFederalCourt creates the federal court source.
func NewFederalCourt(opts ...Option) *FederalCourt {
	o := buildOptions(opts)

	retry := o.retryPolicy(lexcorpus.DefaultRetryPolicy())

	httpOpts := append([]lexhttp.Option{
		lexhttp.WithRetryPolicy(retry),
		lexhttp.WithLogger(o.logger),
	}, o.httpOptions...)

	return &FederalCourt{
		SearchBase: "https://search2.fedcourt.gov.au",
		client:     lexhttp.NewClient(httpOpts...),
		desc: o.descriptor(lexcorpus.Descriptor{
			Name:  "federalcourt",
			Retry: retry,
		}),
		logger: o.logger,
	}
}

// Descriptor returns the source's scheduling configuration.
func (s *FederalCourt) Descriptor() lexcorpus.Descriptor {
	return s.desc
}

func (s *FederalCourt) searchURL(rank int) string {
	return fmt.Sprintf("%s/s/search.html?collection=judgments&sort=adate&meta_v_phrase_orsand=judgments/Judgments&num_ranks=%d&start_rank=%d",
		s.SearchBase, fcDocsPerPage, rank)
}

// ListDocuments walks the search pages from the first result onward,
// following every pagination link it has not seen before. Judgment slugs
// double as version markers: a judgment's path never changes once published.
func (s *FederalCourt) ListDocuments(ctx context.Context) ([]lexcorpus.Entry, error) {
	frontier := newPageFrontier(fcExpectedPages)
	frontier.Push(s.searchURL(1))

	var entries []lexcorpus.Entry
	seen := make(map[string]bool)
	first := true

	for {
		pageURL, ok := frontier.Pop()
		if !ok {
			break
		}

		resp, err := s.client.Get(ctx, pageURL)
		if err != nil {
			if first || ctx.Err() != nil {
				return nil, err
			}
			// Search pages referencing certain documents never come back
			// whole; their results are unreachable through this engine.
			s.logger.Warn("skipping unreadable search page",
				slog.String("url", pageURL), slog.Any("error", err))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			if first {
				return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for search page %s", resp.StatusCode, pageURL)
			}
			s.logger.Warn("skipping search page",
				slog.String("url", pageURL), slog.Int("status", resp.StatusCode))
			continue
		}
		first = false

		serp := resp.Text()

		// Result links and their dates appear in document order; pair them
		// by position. Certain search pages repeat results from other pages,
		// hence the dedup by slug.
		links := fcCasePattern.FindAllStringSubmatch(serp, -1)
		dates := fcMetaPattern.FindAllStringSubmatch(serp, -1)
		for i, link := range links {
			docURL := html.UnescapeString(link[1])
			slug := fcSlug(docURL)
			if slug == "" || seen[slug] {
				continue
			}
			seen[slug] = true

			var date string
			if i < len(dates) {
				date = fcDate(dates[i][1])
			}

			jurisdiction := "commonwealth"
			if strings.Contains(docURL, "/Judgments/nfsc/") {
				jurisdiction = "norfolk_island"
			}

			entries = append(entries, lexcorpus.Entry{
				Source:        "federalcourt",
				ID:            slug,
				URL:           docURL,
				Citation:      strings.TrimSpace(html.UnescapeString(link[2])),
				Date:          date,
				Type:          "decision",
				Jurisdiction:  jurisdiction,
				SourceVersion: slug,
			})
		}

		for _, m := range fcPagePattern.FindAllStringSubmatch(serp, -1) {
			frontier.Push(resolveURL(resp.URL, html.UnescapeString(m[1])))
		}
	}

	return entries, nil
}

// fcSlug returns the stable judgment identifier between "/Judgments/" and the
// first ".", which strips file extensions.
func fcSlug(url string) string {
	_, rest, ok := strings.Cut(url, "/Judgments/")
	if !ok {
		return ""
	}
	slug, _, _ := strings.Cut(rest, ".")
	return slug
}

// fcDate parses a listing date, dropping anything from before the court
// existed. Recent decisions are sometimes dated centuries too early.
func fcDate(value string) string {
	d := parseLongDate(value)
	if d < "1976" {
		return ""
	}
	return d
}

// FetchDocument retrieves one judgment. Judgments are served as HTML in
// windows-1250, though some are windows-1252; undecodable ones fall back to
// the linked Word rendition. Scanned judgments come back as PDF.
func (s *FederalCourt) FetchDocument(ctx context.Context, entry lexcorpus.Entry) (*lexcorpus.RawDocument, error) {
	resp, err := s.client.Get(ctx, entry.URL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, lexcorpus.Errorf(lexcorpus.ENOTFOUND, "judgment %s not found", entry.ID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for judgment %s", resp.StatusCode, entry.URL)
	}

	mime := resp.MIME()
	switch {
	case strings.Contains(mime, "html"):
		text, err := resp.Decode("windows-1250", "windows-1252")
		if err != nil {
			return s.fetchWordRendition(ctx, entry, resp)
		}
		return &lexcorpus.RawDocument{
			Parts: [][]byte{[]byte(text)},
			MIME:  lexcorpus.MIMEHTML,
			Profile: &lexcorpus.HTMLProfile{
				ContentSelector: "div.judgment_content",
				IndentClasses:   fcIndentClasses,
				DropLoneBreaks:  true,
			},
		}, nil
	case mime == lexcorpus.MIMEPDF:
		return &lexcorpus.RawDocument{
			Parts: [][]byte{resp.Body},
			MIME:  lexcorpus.MIMEPDF,
		}, nil
	default:
		return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "judgment %s served as %q", entry.ID, mime)
	}
}

// fetchWordRendition follows the "Original Word Document" link of a judgment
// page whose HTML could not be decoded. The link survives undecoded because
// URLs are plain ASCII in every encoding the database uses.
func (s *FederalCourt) fetchWordRendition(ctx context.Context, entry lexcorpus.Entry, page *lexhttp.Response) (*lexcorpus.RawDocument, error) {
	m := fcWordPattern.FindSubmatch(page.Body)
	if m == nil {
		return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "judgment %s is not decodable and has no word rendition", entry.ID)
	}
	wordURL := resolveURL(page.URL, html.UnescapeString(string(m[1])))

	s.logger.Debug("judgment not decodable, fetching word rendition",
		slog.String("id", entry.ID), slog.String("url", wordURL))

	resp, err := s.client.Get(ctx, wordURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for word rendition %s", resp.StatusCode, wordURL)
	}
	return &lexcorpus.RawDocument{
		Parts: [][]byte{resp.Body},
		MIME:  lexcorpus.MIMEDocx,
	}, nil
}
