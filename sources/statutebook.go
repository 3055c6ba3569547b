package sources

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lexcorpus/lexcorpus"
	lexhttp "github.com/lexcorpus/lexcorpus/http"
)

var _ lexcorpus.Scraper = (*StatuteBook)(nil)

// sbStripSelectors remove the intra-document apparatus that is not statute
// text: compilation history notes and editorial annotations.
var sbStripSelectors = []string{"div.histnote", "div.editorialnote"}

// StatuteBook scrapes the state legislation database. The site publishes its
// statute listing through sitemaps, with per-page lastmod dates that serve as
// declared version markers, and links a DOCX rendition from most statute
// pages.
type StatuteBook struct {
	BaseURL      string
	Jurisdiction string

	client  *lexhttp.Client
	sitemap *lexhttp.Sitemap
	desc    lexcorpus.Descriptor
	logger  *slog.Logger
}

// NewStatuteBook creates the statute book source.
func NewStatuteBook(opts ...Option) *StatuteBook {
	o := buildOptions(opts)

	retry := o.retryPolicy(lexcorpus.DefaultRetryPolicy())

	httpOpts := append([]lexhttp.Option{
		lexhttp.WithRetryPolicy(retry),
		lexhttp.WithLogger(o.logger),
	}, o.httpOptions...)
	client := lexhttp.NewClient(httpOpts...)

	return &StatuteBook{
		BaseURL:      "https://www.legislation.wa.gov.au",
		Jurisdiction: "western_australia",
		client:       client,
		sitemap:      lexhttp.NewSitemap(client),
		desc: o.descriptor(lexcorpus.Descriptor{
			Name:  "statutebook",
			Retry: retry,
		}),
		logger: o.logger,
	}
}

// Descriptor returns the source's scheduling configuration.
func (s *StatuteBook) Descriptor() lexcorpus.Descriptor {
	return s.desc
}

// ListDocuments discovers statute pages from the site's sitemaps. The
// sitemap lastmod is the source-declared version marker: the site republishes
// it whenever a compilation changes.
func (s *StatuteBook) ListDocuments(ctx context.Context) ([]lexcorpus.Entry, error) {
	found, err := s.sitemap.Discover(ctx, s.BaseURL+"/statutes")
	if err != nil {
		return nil, err
	}

	entries := make([]lexcorpus.Entry, 0, len(found))
	for _, sm := range found {
		id := sbEntryID(sm.Loc)
		if id == "" {
			continue
		}
		entries = append(entries, lexcorpus.Entry{
			Source:        "statutebook",
			ID:            id,
			URL:           sm.Loc,
			Type:          sbDocType(id),
			Jurisdiction:  s.Jurisdiction,
			MIME:          lexcorpus.MIMEHTML,
			SourceVersion: sm.LastMod,
		})
	}
	return entries, nil
}

// sbEntryID derives the document id from a statute page URL: the path below
// /statutes/, like "acts/crimes-act".
func sbEntryID(loc string) string {
	parsed, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	id := strings.TrimPrefix(parsed.Path, "/statutes/")
	if id == parsed.Path {
		return ""
	}
	return strings.Trim(id, "/")
}

func sbDocType(id string) string {
	switch strings.SplitN(id, "/", 2)[0] {
	case "acts":
		return "primary_legislation"
	case "subsidiary":
		return "secondary_legislation"
	}
	return ""
}

// FetchDocument retrieves one statute. The DOCX rendition is preferred when
// the page links one; the site's generated HTML mangles schedules and
// tables.
func (s *StatuteBook) FetchDocument(ctx context.Context, entry lexcorpus.Entry) (*lexcorpus.RawDocument, error) {
	pageURL := entry.URL
	if pageURL == "" {
		pageURL = s.BaseURL + "/statutes/" + entry.ID
	}

	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, lexcorpus.Errorf(lexcorpus.ENOTFOUND, "statute %s not found", entry.ID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for statute page %s", resp.StatusCode, pageURL)
	}

	page := resp.Text()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "parsing statute page %s: %v", pageURL, err)
	}

	date := doc.Find("time[datetime]").First().AttrOr("datetime", "")
	if len(date) > 10 {
		date = date[:10]
	}
	citation := strings.TrimSpace(doc.Find("h1").First().Text())

	if href, ok := doc.Find(`a[href$=".docx"]`).First().Attr("href"); ok {
		docxURL := resolveURL(resp.URL, href)
		docx, err := s.client.Get(ctx, docxURL)
		if err != nil {
			return nil, err
		}
		if docx.StatusCode != http.StatusOK {
			return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for rendition %s", docx.StatusCode, docxURL)
		}
		return &lexcorpus.RawDocument{
			Parts:    [][]byte{docx.Body},
			MIME:     lexcorpus.MIMEDocx,
			Date:     date,
			Citation: citation,
		}, nil
	}

	return &lexcorpus.RawDocument{
		Parts:    [][]byte{[]byte(page)},
		MIME:     lexcorpus.MIMEHTML,
		Date:     date,
		Citation: citation,
		Profile:  &lexcorpus.HTMLProfile{StripSelectors: sbStripSelectors},
	}, nil
}
