package devices

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryEntry is one recorded channel value.
type HistoryEntry struct {
	ID         int64           `json:"id"`
	DeviceID   string          `json:"device_id"`
	Channel    string          `json:"channel"`
	Value      json.RawMessage `json:"value"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SQLiteHistory stores channel changes in the channel_history table.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory creates a history store on an open, migrated database.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// Record implements HistoryRecorder. All channels are written in one
// transaction, in name order.
func (h *SQLiteHistory) Record(ctx context.Context, deviceID string, changed Channels, at time.Time) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if len(changed) == 0 {
		return nil
	}

	names := make([]string, 0, len(changed))
	for name := range changed {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting history transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, name := range names {
		value, err := json.Marshal(changed[name])
		if err != nil {
			return fmt.Errorf("marshalling %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO channel_history (device_id, channel, value, recorded_at) VALUES (?, ?, ?, ?)",
			deviceID, name, string(value), at.UnixMilli(),
		); err != nil {
			return fmt.Errorf("inserting channel history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing channel history: %w", err)
	}
	return nil
}

// GetHistory returns a device's recorded values, newest first.
// limit defaults to 50 and is capped at 500. An empty channel matches all.
func (h *SQLiteHistory) GetHistory(ctx context.Context, deviceID, channel string, limit int) ([]HistoryEntry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `SELECT id, device_id, channel, value, recorded_at
		FROM channel_history
		WHERE device_id = ?`
	args := []any{deviceID}
	if channel != "" {
		query += " AND channel = ?"
		args = append(args, channel)
	}
	query += " ORDER BY recorded_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying channel history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		var value string
		var recordedAt int64
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Channel, &value, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning channel history: %w", err)
		}
		e.Value = json.RawMessage(value)
		e.RecordedAt = time.UnixMilli(recordedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channel history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than olderThan and returns how many went.
func (h *SQLiteHistory) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().Add(-olderThan).UnixMilli()
	result, err := h.db.ExecContext(ctx, "DELETE FROM channel_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting channel history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// DeleteDevice removes all history of one device.
func (h *SQLiteHistory) DeleteDevice(ctx context.Context, deviceID string) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM channel_history WHERE device_id = ?", deviceID); err != nil {
		return fmt.Errorf("deleting device history: %w", err)
	}
	return nil
}
