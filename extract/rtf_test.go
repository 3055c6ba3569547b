package extract_test

import (
	"context"
	"testing"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rtfRaw(body string) *lexcorpus.RawDocument {
	return &lexcorpus.RawDocument{
		Parts: [][]byte{[]byte(body)},
		MIME:  lexcorpus.MIMERTF,
	}
}

func TestPipeline_Extract_RTF(t *testing.T) {
	t.Parallel()

	t.Run("paragraphs tabs and hex escapes", func(t *testing.T) {
		t.Parallel()

		body := `{\rtf1\ansi\deff0{\fonttbl{\f0 Times New Roman;}}\f0\fs24 The quick judgment\par Second paragraph\tab indented\par \'e9tat and caf\'e9\par}`

		p := extract.NewPipeline()
		res, err := p.Extract(context.Background(), nil, testEntry(), rtfRaw(body))

		require.NoError(t, err)
		assert.Equal(t, "The quick judgment\nSecond paragraph\tindented\nétat and café", res.Text)
	})

	t.Run("skips font color and style tables", func(t *testing.T) {
		t.Parallel()

		body := `{\rtf1{\fonttbl{\f0 Arial;}}{\colortbl;\red0\green0\blue0;}{\stylesheet{\s1 Heading;}}Orders of the court below\par}`

		p := extract.NewPipeline()
		res, err := p.Extract(context.Background(), nil, testEntry(), rtfRaw(body))

		require.NoError(t, err)
		assert.Equal(t, "Orders of the court below", res.Text)
		assert.NotContains(t, res.Text, "Arial")
		assert.NotContains(t, res.Text, "Heading")
	})

	t.Run("skips starred destinations", func(t *testing.T) {
		t.Parallel()

		body := `{\rtf1{\*\generator Riched20 10.0;}Judgment delivered ex tempore\par}`

		p := extract.NewPipeline()
		res, err := p.Extract(context.Background(), nil, testEntry(), rtfRaw(body))

		require.NoError(t, err)
		assert.Equal(t, "Judgment delivered ex tempore", res.Text)
	})

	t.Run("unicode escapes with fallback characters", func(t *testing.T) {
		t.Parallel()

		body := `{\rtf1 Citation \u8212?number applies\par}`

		p := extract.NewPipeline()
		res, err := p.Extract(context.Background(), nil, testEntry(), rtfRaw(body))

		require.NoError(t, err)
		assert.Equal(t, "Citation —number applies", res.Text)
	})

	t.Run("escaped braces are literal", func(t *testing.T) {
		t.Parallel()

		body := `{\rtf1 subsection \{2\}(a) of the parent Act\par}`

		p := extract.NewPipeline()
		res, err := p.Extract(context.Background(), nil, testEntry(), rtfRaw(body))

		require.NoError(t, err)
		assert.Equal(t, "subsection {2}(a) of the parent Act", res.Text)
	})

	t.Run("legacy doc served with rtf label triggers fallback", func(t *testing.T) {
		t.Parallel()

		part := append(append([]byte{}, ole2Header...), []byte("word binary body")...)

		p := extract.NewPipeline()
		_, err := p.Extract(context.Background(), nil, testEntry(), &lexcorpus.RawDocument{
			Parts: [][]byte{part},
			MIME:  lexcorpus.MIMERTF,
		})

		require.Error(t, err)
		assert.Equal(t, lexcorpus.ENOFORMAT, lexcorpus.ErrorCode(err))
	})

	t.Run("non-rtf body fails with EPARSE", func(t *testing.T) {
		t.Parallel()

		p := extract.NewPipeline()
		_, err := p.Extract(context.Background(), nil, testEntry(), rtfRaw("<html>surprise</html>"))

		require.Error(t, err)
		assert.Equal(t, lexcorpus.EPARSE, lexcorpus.ErrorCode(err))
	})
}
