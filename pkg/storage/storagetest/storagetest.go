// Package storagetest holds behaviour tests shared by every SessionStore
// backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

// Run exercises a store returned by open. open is called once per subtest
// and must return an empty store.
func Run(t *testing.T, open func(t *testing.T) storage.SessionStore) {
	t.Run("insert assigns ids", func(t *testing.T) {
		testInsert(t, open(t))
	})
	t.Run("newest first", func(t *testing.T) {
		testOrdering(t, open(t))
	})
	t.Run("query recent", func(t *testing.T) {
		testQueryRecent(t, open(t))
	})
	t.Run("query since", func(t *testing.T) {
		testQuerySince(t, open(t))
	})
	t.Run("delete by id", func(t *testing.T) {
		testDelete(t, open(t))
	})
	t.Run("clear all", func(t *testing.T) {
		testClear(t, open(t))
	})
}

func session(start int64, startLevel, endLevel int, charging bool) storage.ChargingSession {
	return storage.ChargingSession{
		StartTime:        start,
		EndTime:          start + 65_000,
		StartLevel:       startLevel,
		EndLevel:         endLevel,
		IsCharging:       charging,
		PowerSource:      "AC",
		AverageCurrentMa: 1234.5,
		AverageTempC:     31.2,
	}
}

func insertAll(t *testing.T, store storage.SessionStore, sessions ...storage.ChargingSession) []storage.ChargingSession {
	t.Helper()
	out := make([]storage.ChargingSession, 0, len(sessions))
	for _, s := range sessions {
		got, err := store.Insert(context.Background(), s)
		require.NoError(t, err)
		out = append(out, got)
	}
	return out
}

func testInsert(t *testing.T, store storage.SessionStore) {
	defer func() { _ = store.Close() }()

	in := session(1_700_000_000_000, 40, 43, true)
	got := insertAll(t, store, in, session(1_700_000_100_000, 43, 30, false))

	assert.NotZero(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	all, err := store.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	stored := all[1]
	assert.Equal(t, got[0].ID, stored.ID)
	assert.Equal(t, in.StartTime, stored.StartTime)
	assert.Equal(t, in.EndTime, stored.EndTime)
	assert.Equal(t, 40, stored.StartLevel)
	assert.Equal(t, 43, stored.EndLevel)
	assert.True(t, stored.IsCharging)
	assert.Equal(t, "AC", stored.PowerSource)
	assert.InDelta(t, 1234.5, stored.AverageCurrentMa, 1e-9)
	assert.InDelta(t, 31.2, stored.AverageTempC, 1e-9)
	assert.Equal(t, 3, stored.LevelChange())
	assert.Equal(t, int64(65_000), stored.DurationMillis())
}

func testOrdering(t *testing.T, store storage.SessionStore) {
	defer func() { _ = store.Close() }()

	// Inserted out of start order on purpose.
	insertAll(t, store,
		session(2_000, 10, 20, true),
		session(1_000, 20, 10, false),
		session(3_000, 20, 30, true),
	)

	all, err := store.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3_000), all[0].StartTime)
	assert.Equal(t, int64(2_000), all[1].StartTime)
	assert.Equal(t, int64(1_000), all[2].StartTime)
}

func testQueryRecent(t *testing.T, store storage.SessionStore) {
	defer func() { _ = store.Close() }()

	for i := int64(1); i <= 5; i++ {
		insertAll(t, store, session(i*1_000, 10, 20, true))
	}

	recent, err := store.QueryRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(5_000), recent[0].StartTime)
	assert.Equal(t, int64(4_000), recent[1].StartTime)

	recent, err = store.QueryRecent(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, recent, 5)

	recent, err = store.QueryRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func testQuerySince(t *testing.T, store storage.SessionStore) {
	defer func() { _ = store.Close() }()

	midnight := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	insertAll(t, store,
		session(midnight.Add(-time.Hour).UnixMilli(), 50, 60, true),
		session(midnight.UnixMilli(), 60, 55, false),
		session(midnight.Add(2*time.Hour).UnixMilli(), 55, 80, true),
	)

	today, err := store.QuerySince(context.Background(), midnight)
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, midnight.Add(2*time.Hour).UnixMilli(), today[0].StartTime)
	assert.Equal(t, midnight.UnixMilli(), today[1].StartTime)
}

func testDelete(t *testing.T, store storage.SessionStore) {
	defer func() { _ = store.Close() }()

	got := insertAll(t, store,
		session(1_000, 10, 20, true),
		session(2_000, 20, 10, false),
	)

	require.NoError(t, store.DeleteByID(context.Background(), got[0].ID))

	all, err := store.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, got[1].ID, all[0].ID)

	err = store.DeleteByID(context.Background(), got[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.DeleteByID(context.Background(), 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testClear(t *testing.T, store storage.SessionStore) {
	defer func() { _ = store.Close() }()

	got := insertAll(t, store,
		session(1_000, 10, 20, true),
		session(2_000, 20, 10, false),
	)

	require.NoError(t, store.ClearAll(context.Background()))

	all, err := store.QueryAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	// Clearing an empty store is fine.
	require.NoError(t, store.ClearAll(context.Background()))

	next := insertAll(t, store, session(3_000, 10, 20, true))
	assert.Greater(t, next[0].ID, got[1].ID, "ids are not reused")
}
