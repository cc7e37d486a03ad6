package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"log/slog"

	"github.com/fleetflow/fleetsync/internal/domain"
)

// SnapshotCache — durable-кэш на стороне клиента: по одному полному снимку
// на коллекцию. Снимок читается, когда живой запрос к серверу не удался.
type SnapshotCache struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSnapshotCache создаёт кэш поверх открытого подключения SQLite.
func NewSnapshotCache(db *sql.DB, logger *slog.Logger) *SnapshotCache {
	return &SnapshotCache{db: db, logger: logger}
}

// Init создаёт таблицу снимков, если её ещё нет.
func (c *SnapshotCache) Init() error {
	query := `
        CREATE TABLE IF NOT EXISTS snapshots (
            collection TEXT NOT NULL,
            record_id TEXT NOT NULL,
            position INTEGER NOT NULL,
            payload TEXT NOT NULL,
            PRIMARY KEY (collection, record_id)
        );
    `
	_, err := c.db.Exec(query)
	return err
}

// Write атомарно заменяет снимок коллекции: очистка и вставка выполняются
// в одной транзакции, читатель никогда не видит смесь старых и новых записей.
func (c *SnapshotCache) Write(collection domain.Collection, records []json.RawMessage) error {
	if !domain.ValidCollection(collection) {
		return fmt.Errorf("unknown collection %q", collection)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE collection = ?;`, collection); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO snapshots (collection, record_id, position, payload) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, record := range records {
		if _, err := stmt.Exec(collection, recordID(record, i), i, string(record)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Read возвращает последний снимок коллекции в исходном порядке.
// Не подводит вызывающего: отсутствие снимка и ошибки хранилища
// одинаково дают пустой список (ошибки при этом логируются).
func (c *SnapshotCache) Read(collection domain.Collection) []json.RawMessage {
	rows, err := c.db.Query(
		`SELECT payload FROM snapshots WHERE collection = ? ORDER BY position;`, collection)
	if err != nil {
		c.logger.Error("Cache read failed", "collection", collection, "error", err)
		return []json.RawMessage{}
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			c.logger.Error("Cache scan failed", "collection", collection, "error", err)
			return []json.RawMessage{}
		}
		records = append(records, json.RawMessage(payload))
	}
	if err := rows.Err(); err != nil {
		c.logger.Error("Cache read failed", "collection", collection, "error", err)
		return []json.RawMessage{}
	}
	return records
}

// ClearAll очищает снимки всех коллекций (logout/сброс).
func (c *SnapshotCache) ClearAll() error {
	_, err := c.db.Exec(`DELETE FROM snapshots;`)
	return err
}

// recordID извлекает ключ записи; у записей без поля id ключом становится позиция.
func recordID(record json.RawMessage, position int) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(record, &probe); err == nil && probe.ID != "" {
		return probe.ID
	}
	return "#" + strconv.Itoa(position)
}
