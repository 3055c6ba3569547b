package lexcorpus_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lexcorpus/lexcorpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := lexcorpus.Errorf(lexcorpus.ENOTFOUND, "document %q not found", "test")

	assert.Equal(t, lexcorpus.ENOTFOUND, lexcorpus.ErrorCode(err))
	assert.Equal(t, "document \"test\" not found", lexcorpus.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, lexcorpus.ErrorCode(nil))
}

func TestErrorCode_NonDomainError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, lexcorpus.EINTERNAL, lexcorpus.ErrorCode(errors.New("boom")))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("fetch failed: %w", lexcorpus.Errorf(lexcorpus.EPARSE, "truncated body"))

	assert.Equal(t, lexcorpus.EPARSE, lexcorpus.ErrorCode(err))
	assert.Equal(t, "truncated body", lexcorpus.ErrorMessage(err))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, lexcorpus.ErrorMessage(nil))
}

func TestErrorMessage_NonDomainError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Internal error.", lexcorpus.ErrorMessage(errors.New("boom")))
}

func TestValidFingerprint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "valid", input: "00f1e2d3c4b5a697", want: true},
		{name: "too short", input: "00f1e2d3", want: false},
		{name: "too long", input: "00f1e2d3c4b5a6970", want: false},
		{name: "uppercase hex", input: "00F1E2D3C4B5A697", want: false},
		{name: "non-hex", input: "00f1e2d3c4b5a69z", want: false},
		{name: "empty", input: "", want: false},
		{name: "source token", input: "C2004A00818", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, lexcorpus.ValidFingerprint(tt.input))
		})
	}
}

func TestDocument_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *lexcorpus.Document {
		return &lexcorpus.Document{
			ID:          "highcourt/hca-2024-001",
			Source:      "highcourt",
			VersionID:   "00f1e2d3c4b5a697",
			Text:        "Order of the court",
			WhenScraped: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	t.Run("valid document passes", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, valid().Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()
		doc := valid()
		doc.ID = ""
		err := doc.Validate()
		require.Error(t, err)
		assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		doc := valid()
		doc.Source = ""
		err := doc.Validate()
		require.Error(t, err)
		assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))
	})

	t.Run("malformed fingerprint", func(t *testing.T) {
		t.Parallel()
		doc := valid()
		doc.VersionID = "not-a-fingerprint"
		err := doc.Validate()
		require.Error(t, err)
		assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		doc := valid()
		doc.Text = ""
		err := doc.Validate()
		require.Error(t, err)
		assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))
	})

	t.Run("zero scrape time", func(t *testing.T) {
		t.Parallel()
		doc := valid()
		doc.WhenScraped = time.Time{}
		err := doc.Validate()
		require.Error(t, err)
		assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))
	})
}

func TestEntry_Key(t *testing.T) {
	t.Parallel()

	e := lexcorpus.Entry{Source: "statutebook", ID: "acts/2019-045"}
	assert.Equal(t, "statutebook/acts/2019-045", e.Key())
}

func TestEntry_Validate(t *testing.T) {
	t.Parallel()

	err := lexcorpus.Entry{Source: "", ID: "x"}.Validate()
	require.Error(t, err)
	assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))

	err = lexcorpus.Entry{Source: "x", ID: ""}.Validate()
	require.Error(t, err)
	assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))

	require.NoError(t, lexcorpus.Entry{Source: "x", ID: "y"}.Validate())
}

func TestRetryPolicy_Retryable(t *testing.T) {
	t.Parallel()

	p := lexcorpus.DefaultRetryPolicy()

	assert.True(t, p.Retryable(429))
	assert.True(t, p.Retryable(503))
	assert.False(t, p.Retryable(404))
	assert.False(t, p.Retryable(200))
}

func TestAlphabeticCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, lexcorpus.AlphabeticCount(""))
	assert.Equal(t, 0, lexcorpus.AlphabeticCount("  12 34 .,;()"))
	assert.Equal(t, 8, lexcorpus.AlphabeticCount("abcd efgh"))
	assert.Equal(t, 9, lexcorpus.AlphabeticCount("abcd efghi"))
	assert.Equal(t, 4, lexcorpus.AlphabeticCount("Łódź 1999"))
}
