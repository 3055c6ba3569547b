package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	lexhttp "github.com/lexcorpus/lexcorpus/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemap_Discover_FromRobotsTxt(t *testing.T) {
	t.Parallel()

	robotsTxt := `User-agent: *
Disallow: /private/
Sitemap: {{BASE}}/sitemap.xml
`
	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/judgments/2020-fca-1</loc></url>
  <url><loc>{{BASE}}/judgments/2020-fca-2</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/robots.txt":  robotsTxt,
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, srv.URL+"/judgments/2020-fca-1", entries[0].Loc)
	assert.Equal(t, srv.URL+"/judgments/2020-fca-2", entries[1].Loc)
}

func TestSitemap_Discover_FallbackToSitemapXML(t *testing.T) {
	t.Parallel()

	// No robots.txt, should fall back to /sitemap.xml.
	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/judgments/2021-fca-9</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, srv.URL+"/judgments/2021-fca-9", entries[0].Loc)
}

func TestSitemap_Discover_SitemapIndex(t *testing.T) {
	t.Parallel()

	sitemapIndex := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{{BASE}}/sitemap-2020.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/sitemap-2021.xml</loc></sitemap>
</sitemapindex>`

	sitemap2020 := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/judgments/2020-fca-1</loc></url>
</urlset>`

	sitemap2021 := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/judgments/2021-fca-9</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml":      sitemapIndex,
		"/sitemap-2020.xml": sitemap2020,
		"/sitemap-2021.xml": sitemap2021,
	})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, srv.URL+"/judgments/2020-fca-1", entries[0].Loc)
	assert.Equal(t, srv.URL+"/judgments/2021-fca-9", entries[1].Loc)
}

func TestSitemap_Discover_LastMod(t *testing.T) {
	t.Parallel()

	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/judgments/2020-fca-1</loc><lastmod>2023-04-05</lastmod></url>
  <url><loc>{{BASE}}/judgments/2020-fca-2</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2023-04-05", entries[0].LastMod)
	assert.Equal(t, "", entries[1].LastMod)
}

func TestSitemap_Discover_PathPrefix(t *testing.T) {
	t.Parallel()

	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/statutes/act-1999-45</loc></url>
  <url><loc>{{BASE}}/statutesindex</loc></url>
  <url><loc>{{BASE}}/news/update</loc></url>
  <url><loc>{{BASE}}/statutes/act-2003-12</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL+"/statutes")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, srv.URL+"/statutes/act-1999-45", entries[0].Loc)
	assert.Equal(t, srv.URL+"/statutes/act-2003-12", entries[1].Loc)
}

func TestSitemap_Discover_MultipleSitemapsInRobots(t *testing.T) {
	t.Parallel()

	robotsTxt := `User-agent: *
Sitemap: {{BASE}}/sitemap1.xml
Sitemap: {{BASE}}/sitemap2.xml
`
	sitemap1 := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/judgments/2020-fca-1</loc></url>
  <url><loc>{{BASE}}/judgments/shared</loc></url>
</urlset>`

	sitemap2 := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/judgments/shared</loc></url>
  <url><loc>{{BASE}}/judgments/2021-fca-9</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/robots.txt":   robotsTxt,
		"/sitemap1.xml": sitemap1,
		"/sitemap2.xml": sitemap2,
	})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Len(t, entries, 3) // duplicate loc listed once
}

func TestSitemap_Discover_CyclicIndex(t *testing.T) {
	t.Parallel()

	// An index that lists itself must not recurse forever.
	sitemapIndex := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{{BASE}}/sitemap.xml</loc></sitemap>
</sitemapindex>`

	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": sitemapIndex,
	})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSitemap_Discover_NoSitemapFound(t *testing.T) {
	t.Parallel()

	srv := newSitemapServer(t, map[string]string{})
	defer srv.Close()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	entries, err := sm.Discover(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSitemap_Discover_ContextCancellation(t *testing.T) {
	t.Parallel()

	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/page1</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sm := lexhttp.NewSitemap(lexhttp.NewClient(lexhttp.WithRetryPolicy(testPolicy())))
	_, err := sm.Discover(ctx, srv.URL)

	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

// newSitemapServer creates a test server with the given path->content
// mapping. Content strings may contain {{BASE}}, which is replaced with the
// server URL.
func newSitemapServer(t *testing.T, content map[string]string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body = strings.ReplaceAll(body, "{{BASE}}", srv.URL)

		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
		} else {
			w.Header().Set("Content-Type", "application/xml")
		}
		_, _ = w.Write([]byte(body))
	}))

	return srv
}
