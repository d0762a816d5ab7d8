package receiver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(id, key string) Submission {
	return Submission{
		ID:             id,
		ScannedResult:  "SKU-" + id,
		EmploymentID:   "E-1",
		Quantity:       "1",
		IdempotencyKey: key,
		ReceivedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestStore_AddAndList(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore("")
	require.NoError(t, err)

	_, replayed, err := store.Add(ctx, sample("1", ""))
	require.NoError(t, err)
	assert.False(t, replayed)
	_, _, err = store.Add(ctx, sample("2", ""))
	require.NoError(t, err)

	list := store.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "2", list[1].ID)

	// List returns a copy.
	list[0].ID = "changed"
	assert.Equal(t, "1", store.List(ctx)[0].ID)
	assert.NoError(t, store.Close())
}

func TestStore_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore("")
	require.NoError(t, err)

	first, replayed, err := store.Add(ctx, sample("1", "k"))
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := store.Add(ctx, sample("2", "k"))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())
}

func TestStore_JournalSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "submissions.jsonl")

	store, err := NewStore(path)
	require.NoError(t, err)
	_, _, err = store.Add(ctx, sample("1", "k1"))
	require.NoError(t, err)
	_, _, err = store.Add(ctx, sample("2", ""))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	assert.Equal(t, 2, reopened.Len())
	got, replayed, err := reopened.Add(ctx, sample("3", "k1"))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, "1", got.ID)
}

func TestStore_JournalReplaysEscapedRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "submissions.jsonl")

	store, err := NewStore(path)
	require.NoError(t, err)
	sub := sample("1", "k1")
	// json.Marshal writes each of these as a six-byte escape.
	sub.ScannedResult = strings.Repeat("<&>", maxBodyBytes/3)
	_, _, err = store.Add(ctx, sub)
	require.NoError(t, err)
	_, _, err = store.Add(ctx, sample("2", ""))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(4*maxBodyBytes))

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	list := reopened.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, sub.ScannedResult, list[0].ScannedResult)
	assert.Equal(t, "2", list[1].ID)
}

func TestStore_CorruptJournalLaterLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.jsonl")
	good := `{"id":"1","scannedResult":"SKU-1","employmentId":"E-1","quantity":"1","receivedAt":"2026-01-02T03:04:05Z"}`
	require.NoError(t, os.WriteFile(path, []byte(good+"\n\n"+"{truncated"), 0o644))

	_, err := NewStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), path)
}

func TestStore_CorruptJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o644))

	_, err := NewStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "j.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Add(ctx, sample("x", "shared"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.Len())
}
