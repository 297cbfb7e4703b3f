package dataset

import (
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railfield-data/trainset.report/internal/archive"
	"github.com/railfield-data/trainset.report/internal/testutil"
	"github.com/railfield-data/trainset.report/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSample(archiveName string, imageIndex int, markerID, label string) archive.Sample {
	return archive.Sample{
		Patch: testutil.SolidImage(4, 4, color.RGBA{A: 255}),
		Label: label,
		Provenance: archive.Provenance{
			Archive:    archiveName,
			ImageIndex: imageIndex,
			MarkerID:   markerID,
		},
	}
}

func TestOpenDBMigrates(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	// Both tables exist after migration.
	for _, table := range []string{"runs", "samples"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestOpenDBIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Re-opening an already-migrated database must not fail.
	db, err = OpenDB(path)
	require.NoError(t, err)
	db.Close()
}

func TestStoreRunLifecycle(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	started := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(started)
	store := NewStore(db, clock)

	runID, err := store.BeginRun([]string{"train", "signal"}, 200, 165)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := store.Run(runID)
	require.NoError(t, err)
	assert.Equal(t, []string{"train", "signal"}, run.Labels)
	assert.Equal(t, 200, run.Size)
	assert.Equal(t, 165, run.DPT)
	assert.True(t, run.StartedAt.Equal(started))
	assert.Nil(t, run.FinishedAt, "run not finished yet")

	clock.Advance(90 * time.Second)
	require.NoError(t, store.FinishRun(runID, 7))

	run, err = store.Run(runID)
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.FinishedAt.Equal(started.Add(90*time.Second)))
	assert.Equal(t, 7, run.SampleCount)
}

func TestFinishRunUnknownID(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t), nil)
	err := store.FinishRun("no-such-run", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run")
}

func TestRecordAndQuerySamples(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC))
	store := NewStore(db, clock)

	runID, err := store.BeginRun([]string{"train"}, 200, 165)
	require.NoError(t, err)

	// Insert out of order; the query must sort by image index then marker id.
	for _, s := range []archive.Sample{
		testSample("session.r49", 1, "m-b", "train"),
		testSample("session.r49", 0, "m-z", "train"),
		testSample("session.r49", 1, "m-a", "train"),
		testSample("other.r49", 0, "m-1", "train"),
	} {
		_, err := store.RecordSample(runID, s, "out/"+s.Provenance.MarkerID+".jpg")
		require.NoError(t, err)
	}

	rows, err := store.SamplesByArchive("session.r49")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var order []string
	for _, r := range rows {
		order = append(order, r.MarkerID)
		assert.Equal(t, runID, r.RunID)
		assert.Equal(t, "session.r49", r.Archive)
		assert.Equal(t, "train", r.Label)
	}
	assert.Equal(t, []string{"m-z", "m-a", "m-b"}, order)
	assert.Equal(t, 0, rows[0].ImageIndex)
	assert.Equal(t, "out/m-z.jpg", rows[0].PatchPath)
}

func TestRecordResult(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t), nil)

	res := &Result{
		Samples: []archive.Sample{
			testSample("a.r49", 0, "m-1", "train"),
			testSample("a.r49", 0, "m-2", "signal"),
		},
	}
	paths := []string{"out/train/train.a_0.jpg", "out/signal/signal.a_0.jpg"}

	runID, err := store.RecordResult(res, paths, 200, 165, []string{"train", "signal"})
	require.NoError(t, err)

	run, err := store.Run(runID)
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 2, run.SampleCount)

	rows, err := store.SamplesByArchive("a.r49")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, paths[0], rows[0].PatchPath)
	assert.Equal(t, paths[1], rows[1].PatchPath)
}

func TestRecordResultPathCountMismatch(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t), nil)
	res := &Result{Samples: []archive.Sample{testSample("a.r49", 0, "m-1", "train")}}

	_, err := store.RecordResult(res, []string{"one", "two"}, 200, 165, []string{"train"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}
