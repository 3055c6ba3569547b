package http

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"

	"github.com/lexcorpus/lexcorpus"
)

// SitemapEntry is one <url> element from a sitemap: the page location and its
// optional last-modification date. Sources use lastmod as a declared version
// marker.
type SitemapEntry struct {
	Loc     string
	LastMod string
}

// Sitemap discovers a site's document listing from its sitemaps, following
// robots.txt Sitemap directives and recursing through sitemap indexes.
// Requests go through the owning source's Client so listing shares the
// source's retry policy and pacing.
type Sitemap struct {
	client *Client
}

// NewSitemap creates a sitemap reader on the given client.
func NewSitemap(client *Client) *Sitemap {
	return &Sitemap{client: client}
}

// Discover returns all sitemap entries under baseURL. When baseURL has a
// non-root path, only entries whose path starts with that prefix are
// returned. Returns an empty slice, not nil, when the site has no sitemap.
func (s *Sitemap) Discover(ctx context.Context, baseURL string) ([]SitemapEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EINVALID, "invalid base URL %q: %v", baseURL, err)
	}

	pathPrefix := base.Path
	if pathPrefix == "/" {
		pathPrefix = ""
	}

	root := *base
	root.Path = ""

	sitemapURLs, err := s.findSitemapURLs(ctx, &root)
	if err != nil {
		return nil, err
	}

	entries := []SitemapEntry{}
	seenSitemaps := make(map[string]bool)
	seenLocs := make(map[string]bool)

	for _, sitemapURL := range sitemapURLs {
		found, err := s.readSitemap(ctx, sitemapURL, seenSitemaps)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if seenLocs[e.Loc] {
				continue
			}
			seenLocs[e.Loc] = true
			if pathPrefix != "" && !matchesPathPrefix(e.Loc, pathPrefix) {
				continue
			}
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// matchesPathPrefix checks whether a URL's path starts with prefix at a path
// boundary, so "/statutes" matches "/statutes/x" but not "/statutesindex".
func matchesPathPrefix(rawURL, prefix string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(parsed.Path, prefix)
}

// findSitemapURLs reads Sitemap directives from robots.txt, falling back to
// the conventional /sitemap.xml location.
func (s *Sitemap) findSitemapURLs(ctx context.Context, base *url.URL) ([]string, error) {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	if resp, err := s.client.Get(ctx, robotsURL); err == nil && resp.StatusCode == http.StatusOK {
		if sitemaps := parseSitemapsFromRobots(resp.Body); len(sitemaps) > 0 {
			return sitemaps, nil
		}
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sitemapURL := base.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	resp, err := s.client.Get(ctx, sitemapURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if resp.StatusCode == http.StatusOK {
		return []string{sitemapURL}, nil
	}
	return nil, nil
}

// parseSitemapsFromRobots extracts Sitemap: directives from robots.txt.
func parseSitemapsFromRobots(body []byte) []string {
	var sitemaps []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			sitemapURL := strings.TrimSpace(line[len("sitemap:"):])
			if sitemapURL != "" {
				sitemaps = append(sitemaps, sitemapURL)
			}
		}
	}
	return sitemaps
}

// readSitemap fetches and parses one sitemap, recursing into sitemap indexes.
func (s *Sitemap) readSitemap(ctx context.Context, sitemapURL string, seen map[string]bool) ([]SitemapEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	resp, err := s.client.Get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lexcorpus.Errorf(lexcorpus.EUNAVAILABLE, "HTTP %d for sitemap %s", resp.StatusCode, sitemapURL)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(resp.Body); err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "parsing sitemap %s: %v", sitemapURL, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "empty sitemap %s", sitemapURL)
	}

	if root.Tag == "sitemapindex" {
		var all []SitemapEntry
		for _, sm := range root.SelectElements("sitemap") {
			loc := sm.SelectElement("loc")
			if loc == nil {
				continue
			}
			childURL := strings.TrimSpace(loc.Text())
			if childURL == "" {
				continue
			}
			entries, err := s.readSitemap(ctx, childURL, seen)
			if err != nil {
				return nil, err
			}
			all = append(all, entries...)
		}
		return all, nil
	}

	var entries []SitemapEntry
	for _, urlEl := range root.SelectElements("url") {
		loc := urlEl.SelectElement("loc")
		if loc == nil {
			continue
		}
		e := SitemapEntry{Loc: strings.TrimSpace(loc.Text())}
		if e.Loc == "" {
			continue
		}
		if lastmod := urlEl.SelectElement("lastmod"); lastmod != nil {
			e.LastMod = strings.TrimSpace(lastmod.Text())
		}
		entries = append(entries, e)
	}
	return entries, nil
}
