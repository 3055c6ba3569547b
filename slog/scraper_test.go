package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/mock"
	lexslog "github.com/lexcorpus/lexcorpus/slog"
)

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggingScraper_ListDocuments(t *testing.T) {
	t.Parallel()

	t.Run("logs the listing with count and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Scraper{
			DescriptorFn: func() lexcorpus.Descriptor {
				return lexcorpus.Descriptor{Name: "highcourt"}
			},
			ListDocumentsFn: func(ctx context.Context) ([]lexcorpus.Entry, error) {
				return []lexcorpus.Entry{
					{Source: "highcourt", ID: "a"},
					{Source: "highcourt", ID: "b"},
				}, nil
			},
		}

		scraper := lexslog.NewLoggingScraper(inner, debugLogger(&buf))
		entries, err := scraper.ListDocuments(context.Background())

		require.NoError(t, err)
		assert.Len(t, entries, 2)
		output := buf.String()
		assert.Contains(t, output, "list documents")
		assert.Contains(t, output, "source=highcourt")
		assert.Contains(t, output, "count=2")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs the error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Scraper{
			DescriptorFn: func() lexcorpus.Descriptor {
				return lexcorpus.Descriptor{Name: "highcourt"}
			},
			ListDocumentsFn: func(ctx context.Context) ([]lexcorpus.Entry, error) {
				return nil, errors.New("network error")
			},
		}

		scraper := lexslog.NewLoggingScraper(inner, debugLogger(&buf))
		_, err := scraper.ListDocuments(context.Background())

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=\"network error\"")
	})
}

func TestLoggingScraper_FetchDocument(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.Scraper{
		FetchDocumentFn: func(ctx context.Context, entry lexcorpus.Entry) (*lexcorpus.RawDocument, error) {
			return &lexcorpus.RawDocument{
				Parts: [][]byte{[]byte("ab"), []byte("c")},
				MIME:  lexcorpus.MIMEHTML,
			}, nil
		},
	}

	scraper := lexslog.NewLoggingScraper(inner, debugLogger(&buf))
	raw, err := scraper.FetchDocument(context.Background(), lexcorpus.Entry{Source: "highcourt", ID: "a"})

	require.NoError(t, err)
	require.Len(t, raw.Parts, 2)
	output := buf.String()
	assert.Contains(t, output, "fetch document")
	assert.Contains(t, output, "id=highcourt/a")
	assert.Contains(t, output, "mime=text/html")
	assert.Contains(t, output, "bytes=3")
}

func TestLoggingScraper_AlternateCapability(t *testing.T) {
	t.Parallel()

	t.Run("a plain scraper stays plain", func(t *testing.T) {
		t.Parallel()

		scraper := lexslog.NewLoggingScraper(&mock.Scraper{}, debugLogger(&bytes.Buffer{}))
		_, ok := scraper.(lexcorpus.AlternateFetcher)
		assert.False(t, ok)
	})

	t.Run("an alternate fetcher keeps the capability", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		var gotExclude string
		inner := &mock.AlternateScraper{
			FetchAlternateFn: func(ctx context.Context, entry lexcorpus.Entry, exclude string) (*lexcorpus.RawDocument, error) {
				gotExclude = exclude
				return &lexcorpus.RawDocument{
					Parts: [][]byte{[]byte("rtf")},
					MIME:  lexcorpus.MIMERTF,
				}, nil
			},
		}

		scraper := lexslog.NewLoggingScraper(inner, debugLogger(&buf))
		alt, ok := scraper.(lexcorpus.AlternateFetcher)
		require.True(t, ok)

		raw, err := alt.FetchAlternate(context.Background(), lexcorpus.Entry{Source: "highcourt", ID: "a"}, lexcorpus.MIMEDocx)

		require.NoError(t, err)
		assert.Equal(t, lexcorpus.MIMERTF, raw.MIME)
		assert.Equal(t, lexcorpus.MIMEDocx, gotExclude)
		output := buf.String()
		assert.Contains(t, output, "fetch alternate rendition")
		assert.Contains(t, output, "exclude="+lexcorpus.MIMEDocx)
	})
}
