package sqlite_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkReplaceListing compares listing-swap performance between WAL and
// rollback journal modes. This simulates a re-index: every refresh replaces a
// source's few thousand entries in one transaction.
func BenchmarkReplaceListing(b *testing.B) {
	const entriesPerListing = 2000

	b.Run("rollback_journal", func(b *testing.B) {
		benchmarkReplaceListing(b, false, entriesPerListing)
	})

	b.Run("wal_mode", func(b *testing.B) {
		benchmarkReplaceListing(b, true, entriesPerListing)
	})
}

func benchmarkReplaceListing(b *testing.B, useWAL bool, entriesPerListing int) {
	b.Helper()

	tmpDir := b.TempDir()
	dbPath := filepath.Join(tmpDir, "bench.db")

	db := sqlite.NewDB(dbPath)
	require.NoError(b, db.Open())

	defer func() {
		db.Close()
		// Clean up WAL files if they exist
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}()

	ctx := context.Background()
	if !useWAL {
		_, err := db.ExecContext(ctx, "PRAGMA journal_mode = DELETE")
		require.NoError(b, err)
	}

	entries := make([]lexcorpus.Entry, entriesPerListing)
	for i := range entries {
		entries[i] = lexcorpus.Entry{
			Source:   "highcourt",
			ID:       fmt.Sprintf("judgments/2001-hca-%d", i),
			URL:      fmt.Sprintf("https://example.com/judgments/2001/hca-%d.html", i),
			Citation: fmt.Sprintf("[2001] HCA %d", i),
			Date:     "2001-02-08",
			MIME:     lexcorpus.MIMEHTML,
		}
	}
	cache := sqlite.NewIndexCache(db)

	// Reset timer to exclude setup time
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := cache.Replace(ctx, "highcourt", entries, time.Now()); err != nil {
			b.Fatal(err)
		}
	}
}
