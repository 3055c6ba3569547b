package tesseract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/tesseract"
)

// Ensure Recognizer implements lexcorpus.Recognizer.
var _ lexcorpus.Recognizer = (*tesseract.Recognizer)(nil)

func TestNewRecognizer_MissingTools(t *testing.T) {
	// t.Setenv is incompatible with t.Parallel.
	t.Setenv("PATH", t.TempDir())

	_, err := tesseract.NewRecognizer()

	require.Error(t, err)
	assert.Equal(t, lexcorpus.EINVALID, lexcorpus.ErrorCode(err))
	assert.Contains(t, lexcorpus.ErrorMessage(err), "pdftoppm is not installed")
}
