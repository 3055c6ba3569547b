//go:build integration

package http_test

import (
	"context"
	"strings"
	"testing"
	"time"

	lexhttp "github.com/lexcorpus/lexcorpus/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemap_Integration_Discover(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sm := lexhttp.NewSitemap(lexhttp.NewClient())

	// htmx.org declares its sitemap in robots.txt.
	entries, err := sm.Discover(ctx, "https://htmx.org")
	require.NoError(t, err)

	assert.NotEmpty(t, entries, "expected at least some entries from htmx.org sitemap")
	t.Logf("found %d entries from htmx.org sitemap", len(entries))

	for _, e := range entries[:min(5, len(entries))] {
		t.Logf("  - %s (lastmod=%q)", e.Loc, e.LastMod)
	}
}

func TestSitemap_Integration_Discover_PathPrefix(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sm := lexhttp.NewSitemap(lexhttp.NewClient())

	entries, err := sm.Discover(ctx, "https://htmx.org/docs")
	require.NoError(t, err)

	for _, e := range entries {
		assert.True(t, strings.Contains(e.Loc, "/docs/"),
			"entry %s escaped the /docs prefix", e.Loc)
	}
}
