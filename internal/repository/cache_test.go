package repository

import (
	"database/sql"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"log/slog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/fleetsync/internal/domain"
)

func newTestCache(t *testing.T) *SnapshotCache {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	// Одно соединение: параллельные читатели ждут транзакцию,
	// а не получают SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	cache := NewSnapshotCache(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, cache.Init())
	return cache
}

func rawRecords(records ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = json.RawMessage(r)
	}
	return out
}

func TestCacheReadEmptyCollection(t *testing.T) {
	cache := newTestCache(t)

	// Отсутствие снимка — валидный тихий результат, не ошибка.
	records := cache.Read(domain.CollectionVehicles)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestCacheWriteReplacesSnapshot(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Write(domain.CollectionTrips, rawRecords(
		`{"id":"a","reference":"TRIP-1"}`,
		`{"id":"b","reference":"TRIP-2"}`,
	)))
	require.NoError(t, cache.Write(domain.CollectionTrips, rawRecords(
		`{"id":"c","reference":"TRIP-3"}`,
	)))

	records := cache.Read(domain.CollectionTrips)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"id":"c","reference":"TRIP-3"}`, string(records[0]))
}

func TestCachePreservesRecordOrder(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Write(domain.CollectionDrivers, rawRecords(
		`{"id":"z"}`, `{"id":"a"}`, `{"id":"m"}`,
	)))

	records := cache.Read(domain.CollectionDrivers)
	require.Len(t, records, 3)
	assert.Equal(t, `{"id":"z"}`, string(records[0]))
	assert.Equal(t, `{"id":"a"}`, string(records[1]))
	assert.Equal(t, `{"id":"m"}`, string(records[2]))
}

func TestCacheRejectsUnknownCollection(t *testing.T) {
	cache := newTestCache(t)

	err := cache.Write(domain.Collection("bogus"), rawRecords(`{"id":"x"}`))
	assert.Error(t, err)
}

func TestCacheClearAll(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Write(domain.CollectionVehicles, rawRecords(`{"id":"v1"}`)))
	require.NoError(t, cache.Write(domain.CollectionExpenses, rawRecords(`{"id":"e1"}`)))

	require.NoError(t, cache.ClearAll())

	assert.Empty(t, cache.Read(domain.CollectionVehicles))
	assert.Empty(t, cache.Read(domain.CollectionExpenses))
}

func TestCacheWriteIsAtomic(t *testing.T) {
	cache := newTestCache(t)

	old := rawRecords(`{"id":"a"}`, `{"id":"b"}`)
	fresh := rawRecords(`{"id":"c"}`)
	require.NoError(t, cache.Write(domain.CollectionTrips, old))

	// Читатель, параллельный перезаписи, видит либо старый снимок целиком,
	// либо новый целиком — никогда смесь.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			records := cache.Read(domain.CollectionTrips)
			switch len(records) {
			case 2:
				assert.Equal(t, `{"id":"a"}`, string(records[0]))
				assert.Equal(t, `{"id":"b"}`, string(records[1]))
			case 1:
				assert.Equal(t, `{"id":"c"}`, string(records[0]))
			default:
				t.Errorf("наблюдалась смесь снимков: %d записей", len(records))
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, cache.Write(domain.CollectionTrips, fresh))
		require.NoError(t, cache.Write(domain.CollectionTrips, old))
	}
	close(done)
	wg.Wait()
}

func TestCacheRecordWithoutIDKeyedByPosition(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Write(domain.CollectionAnalytics, rawRecords(
		`{"activeFleet":2}`,
	)))

	records := cache.Read(domain.CollectionAnalytics)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"activeFleet":2}`, string(records[0]))
}
