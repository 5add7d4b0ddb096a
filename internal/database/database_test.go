package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Registry {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cinesync.db")

	db, err := OpenPath(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, db.Path())

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)

	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/w/a.mkv", LinkPath: "/t/A (2001)/A (2001).mkv", Kind: "movie", Title: "A"}))
	require.NoError(t, db.Close())

	// Reopening must not re-run migrations or lose data.
	db, err = OpenPath(path)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.GetLinkBySource("/w/a.mkv")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "A", rec.Title)
}

func TestUpsertLink(t *testing.T) {
	db := setupTestDB(t)

	rec := &LinkRecord{
		SourcePath: "/watch/Batman.Begins.2005.1080p.BluRay.x264.mkv",
		LinkPath:   "/library/Batman Begins (2005) {imdb-tt0372784}/Batman Begins (2005).mkv",
		Kind:       "movie",
		Title:      "Batman Begins",
		Year:       2005,
		ExternalID: "tt0372784",
		Verified:   true,
	}
	require.NoError(t, db.UpsertLink(rec))

	got, err := db.GetLinkBySource(rec.SourcePath)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.LinkPath, got.LinkPath)
	assert.Equal(t, 2005, got.Year)
	assert.True(t, got.Verified)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)

	rec.LinkPath = "/library/Batman Begins (2005) {imdb-tt0372784}/Batman Begins (2005).mp4"
	rec.Verified = false
	require.NoError(t, db.UpsertLink(rec))

	links, err := db.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1, "one row per source")
	assert.Equal(t, rec.LinkPath, links[0].LinkPath)
	assert.False(t, links[0].Verified)
	assert.Equal(t, got.ID, links[0].ID)
}

func TestUpsertLink_TakesOverLinkPath(t *testing.T) {
	db := setupTestDB(t)
	link := "/library/Heat (1995)/Heat (1995).mkv"

	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/watch/Heat.1995.1080p.mkv", LinkPath: link, Kind: "movie", Title: "Heat"}))
	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/watch/Heat.1995.720p.mkv", LinkPath: link, Kind: "movie", Title: "Heat"}))

	links, err := db.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1, "one row per link path")
	assert.Equal(t, "/watch/Heat.1995.720p.mkv", links[0].SourcePath)

	old, err := db.GetLinkBySource("/watch/Heat.1995.1080p.mkv")
	require.NoError(t, err)
	assert.Nil(t, old)
}

func TestGetLinkBySourceMissing(t *testing.T) {
	db := setupTestDB(t)

	rec, err := db.GetLinkBySource("/nope.mkv")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteLinkByPath(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/w/1.mkv", LinkPath: "/t/1.mkv", Kind: "movie", Title: "One"}))
	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/w/2.mkv", LinkPath: "/t/2.mkv", Kind: "movie", Title: "Two"}))

	require.NoError(t, db.DeleteLinkByPath("/t/1.mkv"))
	require.NoError(t, db.DeleteLinkByPath("/t/unknown.mkv"))

	links, err := db.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "/t/2.mkv", links[0].LinkPath)
}

func TestSkippedItems(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.InsertSkippedItem("/w/readme.mkv", "movie", SkipReasonUnparsableName, "no title"))
	require.NoError(t, db.InsertSkippedItem("/w/heat.mkv", "movie", SkipReasonResolverUnavailable, "503"))
	require.NoError(t, db.InsertSkippedItem("/w/heat.mkv", "movie", SkipReasonResolverUnavailable, "timeout"))

	items, err := db.GetSkippedItems()
	require.NoError(t, err)
	require.Len(t, items, 2)

	deferred, err := db.GetSkippedItemsByReason(SkipReasonResolverUnavailable)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, "/w/heat.mkv", deferred[0].Path)
	assert.Equal(t, 2, deferred[0].Attempts)
	assert.Equal(t, "timeout", deferred[0].Detail)
	assert.Equal(t, "movie", deferred[0].Kind)

	counts, err := db.CountSkippedByReason()
	require.NoError(t, err)
	assert.Equal(t, map[SkipReason]int{
		SkipReasonUnparsableName:      1,
		SkipReasonResolverUnavailable: 1,
	}, counts)

	require.NoError(t, db.ClearSkippedItem("/w/heat.mkv"))
	deferred, err = db.GetSkippedItemsByReason(SkipReasonResolverUnavailable)
	require.NoError(t, err)
	assert.Empty(t, deferred)
}

func TestRuns(t *testing.T) {
	db := setupTestDB(t)

	start := time.Unix(1700000000, 0)
	first := &RunRecord{Mode: "run", StartedAt: start, FinishedAt: start.Add(time.Minute), Created: 9, Skipped: 1}
	id, err := db.RecordRun(first)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, first.ID)

	_, err = db.RecordRun(&RunRecord{Mode: "reconcile", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour), Removed: 2})
	require.NoError(t, err)

	runs, err := db.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "reconcile", runs[0].Mode)
	assert.Equal(t, 2, runs[0].Removed)
	assert.Equal(t, "run", runs[1].Mode)
	assert.Equal(t, 9, runs[1].Created)
	assert.Equal(t, start, runs[1].StartedAt)

	runs, err = db.RecentRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, *stats)

	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/w/m.mkv", LinkPath: "/t/m.mkv", Kind: "movie", Title: "M", Verified: true}))
	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/w/e1.mkv", LinkPath: "/t/e1.mkv", Kind: "episode", Title: "E"}))
	require.NoError(t, db.UpsertLink(&LinkRecord{SourcePath: "/w/e2.mkv", LinkPath: "/t/e2.mkv", Kind: "episode", Title: "E", Verified: true}))
	require.NoError(t, db.InsertSkippedItem("/w/x.mkv", "movie", SkipReasonConflict, ""))
	_, err = db.RecordRun(&RunRecord{Mode: "run", StartedAt: time.Now(), FinishedAt: time.Now()})
	require.NoError(t, err)

	stats, err = db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Links: 3, Movies: 1, Episodes: 2, Unverified: 1, Skipped: 1, Runs: 1}, *stats)
}

func TestGetSkippedItem(t *testing.T) {
	db := setupTestDB(t)

	item, err := db.GetSkippedItem("/w/none.mkv")
	require.NoError(t, err)
	assert.Nil(t, item)

	require.NoError(t, db.InsertSkippedItem("/w/x.mkv", "episode", SkipReasonLinkCreationFailed, "permission denied"))
	item, err = db.GetSkippedItem("/w/x.mkv")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, SkipReasonLinkCreationFailed, item.Reason)
	assert.Equal(t, 1, item.Attempts)
}
