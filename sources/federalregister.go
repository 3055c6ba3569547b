package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/lexcorpus/lexcorpus"
	lexhttp "github.com/lexcorpus/lexcorpus/http"
)

var (
	_ lexcorpus.Scraper          = (*FederalRegister)(nil)
	_ lexcorpus.AlternateFetcher = (*FederalRegister)(nil)
)

const (
	frDocsPerPage = 100

	// frCriteria selects the in-force titles of every collection the
	// register publishes. The query language tolerates no whitespace.
	frCriteria = "criteria='and(collection(Constitution,Act,LegislativeInstrument,NotifiableInstrument," +
		"AdministrativeArrangementsOrder,PrerogativeInstrument,ContinuedLaw),status(InForce))'"
)

// frClassify maps a register collection name to document type and
// jurisdiction. Continued laws carry no type up front; it is derived from the
// title, which distinguishes Norfolk Island acts from instruments.
func frClassify(collection string) (doctype, jurisdiction string) {
	switch collection {
	case "Constitution", "Act":
		return "primary_legislation", "commonwealth"
	case "LegislativeInstrument", "NotifiableInstrument", "AdministrativeArrangementsOrder", "PrerogativeInstrument":
		return "secondary_legislation", "commonwealth"
	case "ContinuedLaw":
		return "", "norfolk_island"
	}
	return "", ""
}

var niActPattern = regexp.MustCompile(`\sAct\s+\d{4}\s+\(NI\)\s*$`)

// FederalRegister scrapes the federal register of legislation. The register
// exposes a paginated JSON search API for listing and serves documents as
// multi-part HTML, with Word and PDF renditions for titles that predate the
// HTML full text.
type FederalRegister struct {
	// APIBase hosts the search API; SiteBase hosts document pages.
	APIBase  string
	SiteBase string

	client *lexhttp.Client
	desc   lexcorpus.Descriptor
	logger *slog.Logger
}

// NewFederalRegister creates the federal register source.
func NewFederalRegister(opts ...Option) *FederalRegister {
	o := buildOptions(opts)

	// The register's servers intermittently answer 400 and 502 when
	// overloaded, and sometimes a 200 carrying an error page.
	retry := lexcorpus.DefaultRetryPolicy()
	retry.RetryableStatuses = append(retry.RetryableStatuses, 400)
	retry.RetryableBodyMarkers = []string{"The service is unavailable."}
	retry = o.retryPolicy(retry)

	httpOpts := append([]lexhttp.Option{
		lexhttp.WithRetryPolicy(retry),
		lexhttp.WithLogger(o.logger),
	}, o.httpOptions...)

	return &FederalRegister{
		APIBase:  "https://api.prod.legislation.gov.au",
		SiteBase: "https://www.legislation.gov.au",
		client:   lexhttp.NewClient(httpOpts...),
		desc: o.descriptor(lexcorpus.Descriptor{
			Name:  "federalregister",
			Retry: retry,
		}),
		logger: o.logger,
	}
}

// Descriptor returns the source's scheduling configuration.
func (s *FederalRegister) Descriptor() lexcorpus.Descriptor {
	return s.desc
}

// searchPage is one page of the register's title search API.
type searchPage struct {
	Count int `json:"@odata.count"`
	Value []struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Collection     string `json:"collection"`
		SearchContexts struct {
			FullTextVersion struct {
				RegisterID string `json:"registerId"`
				Start      string `json:"start"`
			} `json:"fullTextVersion"`
		} `json:"searchContexts"`
	} `json:"value"`
}

// ListDocuments pages through the title search API. Results are ordered by
// registration time; relevance ordering is not stable across pages and
// returns duplicates.
func (s *FederalRegister) ListDocuments(ctx context.Context) ([]lexcorpus.Entry, error) {
	countURL := fmt.Sprintf("%s/v1/titles/search(%s)?$top=0", s.APIBase, frCriteria)
	first, err := s.searchPage(ctx, countURL)
	if err != nil {
		return nil, err
	}

	pages := (first.Count + frDocsPerPage - 1) / frDocsPerPage
	entries := make([]lexcorpus.Entry, 0, first.Count)
	for page := 0; page < pages; page++ {
		pageURL := fmt.Sprintf("%s/v1/titles/search(%s)?$select=collection,id,name,searchContexts"+
			"&$expand=searchContexts($expand=fullTextVersion)"+
			"&$orderby=searchcontexts/fulltextversion/registeredat%%20asc"+
			"&$top=%d&$skip=%d",
			s.APIBase, frCriteria, frDocsPerPage, page*frDocsPerPage)

		result, err := s.searchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if len(result.Value) == 0 {
			return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "search page %d of %d returned no results", page+1, pages)
		}

		for _, title := range result.Value {
			doctype, jurisdiction := frClassify(title.Collection)
			if doctype == "" {
				doctype = "secondary_legislation"
				if niActPattern.MatchString(title.Name) {
					doctype = "primary_legislation"
				}
			}

			date := title.SearchContexts.FullTextVersion.Start
			if len(date) > 10 {
				date = date[:10]
			}

			entries = append(entries, lexcorpus.Entry{
				Source:        "federalregister",
				ID:            title.ID,
				URL:           s.SiteBase + "/" + title.ID,
				Citation:      title.Name,
				Date:          date,
				Type:          doctype,
				Jurisdiction:  jurisdiction,
				SourceVersion: title.SearchContexts.FullTextVersion.RegisterID,
			})
		}
	}
	return entries, nil
}

func (s *FederalRegister) searchPage(ctx context.Context, url string) (*searchPage, error) {
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for search page %s", resp.StatusCode, url)
	}

	var page searchPage
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "decoding search page %s: %v", url, err)
	}
	return &page, nil
}

// FetchDocument retrieves a title's full text. Most titles link the HTML of
// their constituent parts off the status page; older ones only publish Word
// or PDF renditions on the downloads page.
func (s *FederalRegister) FetchDocument(ctx context.Context, entry lexcorpus.Entry) (*lexcorpus.RawDocument, error) {
	statusURL := entry.URL
	if statusURL == "" {
		statusURL = s.SiteBase + "/" + entry.ID
	}

	resp, err := s.client.Get(ctx, statusURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, lexcorpus.Errorf(lexcorpus.ENOTFOUND, "title %s not found", entry.ID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for status page %s", resp.StatusCode, statusURL)
	}

	urls, err := partURLs(resp)
	if err != nil {
		return nil, err
	}
	if len(urls) > 0 {
		parts, err := s.fetchParts(ctx, urls)
		if err != nil {
			return nil, err
		}
		return &lexcorpus.RawDocument{Parts: parts, MIME: lexcorpus.MIMEHTML}, nil
	}

	return s.fetchRendition(ctx, entry, "word", "pdf")
}

// FetchAlternate serves the extraction pipeline's fallback when the primary
// rendition is legacy DOC: the next format on the downloads page.
func (s *FederalRegister) FetchAlternate(ctx context.Context, entry lexcorpus.Entry, exclude string) (*lexcorpus.RawDocument, error) {
	switch exclude {
	case lexcorpus.MIMEDocx, lexcorpus.MIMEDoc:
		return s.fetchRendition(ctx, entry, "pdf")
	default:
		return s.fetchRendition(ctx, entry, "word")
	}
}

// partURLs extracts the HTML full-text part links from a title's status
// page: the navigation pane's epubFrame targets, or the text viewer's iframe
// when a title has a single undivided part.
func partURLs(resp *lexhttp.Response) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "parsing status page %s: %v", resp.URL, err)
	}

	var urls []string
	doc.Find(`a[target="epubFrame"]`).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			urls = append(urls, href)
		}
	})
	if len(urls) == 0 {
		doc.Find(`iframe[name="epubFrame"]`).Each(func(_ int, sel *goquery.Selection) {
			if src, ok := sel.Attr("src"); ok {
				urls = append(urls, src)
			}
		})
	}

	seen := make(map[string]bool, len(urls))
	resolved := make([]string, 0, len(urls))
	for _, u := range urls {
		// Anchors point into the same part; drop them before deduplication.
		if i := strings.IndexByte(u, '#'); i >= 0 {
			u = u[:i]
		}
		u = resolveURL(resp.URL, u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		resolved = append(resolved, u)
	}
	return resolved, nil
}

// fetchParts retrieves the constituent parts concurrently, preserving
// document order. Part requests are sub-requests of one fetch unit; the
// coordinator's gate bounds the unit as a whole.
func (s *FederalRegister) fetchParts(ctx context.Context, urls []string) ([][]byte, error) {
	parts := make([][]byte, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			resp, err := s.client.Get(gctx, u)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for part %s", resp.StatusCode, u)
			}
			parts[i] = []byte(resp.Text())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

var frFormatMIMEs = map[string]string{
	"word": lexcorpus.MIMEDocx,
	"pdf":  lexcorpus.MIMEPDF,
}

// fetchRendition retrieves the first available of the given downloads-page
// formats, in preference order.
func (s *FederalRegister) fetchRendition(ctx context.Context, entry lexcorpus.Entry, formats ...string) (*lexcorpus.RawDocument, error) {
	downloadsURL := s.SiteBase + "/" + entry.ID + "/latest/downloads"
	resp, err := s.client.Get(ctx, downloadsURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for downloads page %s", resp.StatusCode, downloadsURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "parsing downloads page %s: %v", downloadsURL, err)
	}

	primary := doc.Find(".download-list-primary").First()
	if primary.Length() == 0 {
		return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "no published version for %s", entry.ID)
	}

	for _, format := range formats {
		var urls []string
		primary.Find(".document-format-" + format + " a[href]").Each(func(_ int, sel *goquery.Selection) {
			if href, ok := sel.Attr("href"); ok {
				urls = append(urls, resolveURL(resp.URL, href))
			}
		})
		if len(urls) == 0 {
			continue
		}

		parts, err := s.fetchBinaryParts(ctx, urls)
		if err != nil {
			return nil, err
		}
		return &lexcorpus.RawDocument{Parts: parts, MIME: frFormatMIMEs[format]}, nil
	}
	return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "no %s rendition for %s", strings.Join(formats, " or "), entry.ID)
}

func (s *FederalRegister) fetchBinaryParts(ctx context.Context, urls []string) ([][]byte, error) {
	parts := make([][]byte, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			resp, err := s.client.Get(gctx, u)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return lexcorpus.Errorf(lexcorpus.EPARSE, "HTTP %d for rendition part %s", resp.StatusCode, u)
			}
			parts[i] = resp.Body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}
