package feedback

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindsightdev/hindsight/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndEntries(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Record(Entry{FindingID: "f1", Pattern: "missing nil check", Rating: RatingUseful}))
	require.NoError(t, store.Record(Entry{FindingID: "f2", Pattern: "missing nil check", Rating: RatingNoise}))

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// append order preserved, ids and timestamps assigned
	assert.Equal(t, "f1", entries[0].FindingID)
	assert.Equal(t, "f2", entries[1].FindingID)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRecordValidation(t *testing.T) {
	store := openTestStore(t)

	err := store.Record(Entry{Pattern: "p", Rating: RatingUseful})
	require.Error(t, err)
	assert.Equal(t, errors.KindFeedbackStore, errors.KindOf(err))

	err = store.Record(Entry{FindingID: "f", Rating: Rating("amazing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rating")
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	store := openTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = store.Record(Entry{FindingID: "f", Pattern: "p", Rating: RatingNoise})
				entries, err := store.Entries()
				assert.NoError(t, err)
				// a reader never observes a partial record
				for _, e := range entries {
					assert.Equal(t, "f", e.FindingID)
				}
			}
		}()
	}
	wg.Wait()

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 80)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(Entry{FindingID: "f", Pattern: "p", Rating: RatingUseful}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
