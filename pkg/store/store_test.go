package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/logger"
	"github.com/0xmhha/token-calendar/pkg/parser"
	"github.com/0xmhha/token-calendar/pkg/reconciler"
)

func openStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "snapshots.db")
	s, err := New(Config{DBPath: path}, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func sampleDataset() aggregator.Dataset {
	zone := calendar.UTC()
	table := reconciler.New(zone)
	table.AddAll([]parser.Measurement{
		{MessageID: "m1", Timestamp: time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC),
			Usage: parser.Usage{InputTokens: 1234567, OutputTokens: 89}},
		{MessageID: "m2", Timestamp: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
			Usage: parser.Usage{CacheReadInputTokens: 5, CacheCreationInputTokens: 7}},
	})
	return aggregator.Build(table.Events()).Dataset()
}

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(Config{}, logger.Noop())
	assert.ErrorIs(t, err, ErrNoDBPath)
}

func TestSaveAndGet(t *testing.T) {
	s, _ := openStore(t)
	ds := sampleDataset()

	key, err := s.Save(&Snapshot{
		GeneratedAt: at(1, 10),
		Zone:        "UTC",
		Files:       3,
		Dataset:     ds,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T10:00:00.000000000Z", key)

	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, key, got.Key)
	assert.Equal(t, "UTC", got.Zone)
	assert.Equal(t, 3, got.Files)
	assert.True(t, got.GeneratedAt.Equal(at(1, 10)))
	assert.Equal(t, ds, got.Dataset)
}

func TestGetByPrefix(t *testing.T) {
	s, _ := openStore(t)
	for _, ts := range []time.Time{at(1, 9), at(2, 8), at(2, 20)} {
		_, err := s.Save(&Snapshot{GeneratedAt: ts, Dataset: sampleDataset()})
		require.NoError(t, err)
	}

	got, err := s.Get("2025-03-02")
	require.NoError(t, err)
	assert.True(t, got.GeneratedAt.Equal(at(2, 8)))

	_, err = s.Get("2025-03-05")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("2026")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSameInstantGetsDistinctKeys(t *testing.T) {
	s, _ := openStore(t)

	k1, err := s.Save(&Snapshot{GeneratedAt: at(1, 0)})
	require.NoError(t, err)
	k2, err := s.Save(&Snapshot{GeneratedAt: at(1, 0)})
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.Less(t, k1, k2)
}

func TestSaveDefaultsGeneratedAt(t *testing.T) {
	s, _ := openStore(t)
	snap := &Snapshot{}

	before := time.Now()
	key, err := s.Save(snap)
	require.NoError(t, err)

	assert.False(t, snap.GeneratedAt.Before(before))
	assert.Equal(t, key, snap.Key)
}

func TestLatestAndList(t *testing.T) {
	s, _ := openStore(t)

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	for day := 1; day <= 4; day++ {
		_, err := s.Save(&Snapshot{GeneratedAt: at(day, 12), Zone: "Arizona", Dataset: sampleDataset()})
		require.NoError(t, err)
	}

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.True(t, latest.GeneratedAt.Equal(at(4, 12)))

	infos, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].GeneratedAt.Equal(at(4, 12)))
	assert.True(t, infos[1].GeneratedAt.Equal(at(3, 12)))
	assert.Equal(t, 2, infos[0].DaysWithData)
	assert.Equal(t, 2, infos[0].UniqueMessages)
	assert.Equal(t, int64(1234567+89+5+7), infos[0].TotalTokens)
	assert.Equal(t, "Arizona", infos[0].Zone)

	all, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListSkipsCorruptRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	s, err := New(Config{DBPath: path}, logger.Noop())
	require.NoError(t, err)
	_, err = s.Save(&Snapshot{GeneratedAt: at(1, 0)})
	require.NoError(t, err)

	bs := s.(*boltStore)
	require.NoError(t, bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte("2025-03-09T00:00:00.000000000Z"), []byte("{"))
	}))

	infos, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	_, err = s.Latest()
	assert.True(t, errors.Is(err, ErrCorruptSnapshot))
	require.NoError(t, s.Close())
}

func TestPrune(t *testing.T) {
	s, _ := openStore(t)
	for day := 1; day <= 5; day++ {
		_, err := s.Save(&Snapshot{GeneratedAt: at(day, 0)})
		require.NoError(t, err)
	}

	removed, err := s.Prune(0)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = s.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	infos, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[1].GeneratedAt.Equal(at(4, 0)))

	removed, err = s.Prune(10)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := New(Config{DBPath: path}, logger.Noop())
	require.NoError(t, err)
	key, err := s.Save(&Snapshot{GeneratedAt: at(7, 7), Dataset: sampleDataset()})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(Config{DBPath: path}, logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, sampleDataset(), got.Dataset)
}
