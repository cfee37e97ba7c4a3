package sqlite

import (
	"database/sql"
	"fmt"

	"autosendpic/internal/model"
)

// DeliveryRepository implements repository.DeliveryRepository for SQLite.
type DeliveryRepository struct {
	db *DB
}

// NewDeliveryRepository creates a new SQLite delivery journal.
func NewDeliveryRepository(db *DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Insert adds a journal entry for one sink outcome.
func (r *DeliveryRepository) Insert(d *model.Delivery) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO deliveries (item_id, sink, status, reason, attempted_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ItemID, d.Sink, d.Status, d.Reason, d.AttemptedAt.UTC(), d.DurationMs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert delivery: %w", err)
	}

	return result.LastInsertId()
}

// GetByItemID returns every outcome recorded for an item, in insertion order.
func (r *DeliveryRepository) GetByItemID(itemID string) ([]model.Delivery, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, item_id, sink, status, reason, attempted_at, duration_ms
		FROM deliveries WHERE item_id = ? ORDER BY id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []model.Delivery
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(&d.ID, &d.ItemID, &d.Sink, &d.Status, &d.Reason, &d.AttemptedAt, &d.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// GetStats returns per-sink outcome counts and the most recent failure.
func (r *DeliveryRepository) GetStats() (*model.DeliveryStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.DeliveryStats{
		PerSink: make(map[string]map[string]int),
	}

	rows, err := r.db.Conn().Query(`SELECT sink, status, COUNT(*) FROM deliveries GROUP BY sink, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sink, status string
		var count int
		if err := rows.Scan(&sink, &status, &count); err != nil {
			return nil, err
		}
		if stats.PerSink[sink] == nil {
			stats.PerSink[sink] = make(map[string]int)
		}
		stats.PerSink[sink][status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last model.Delivery
	err = r.db.Conn().QueryRow(`
		SELECT id, item_id, sink, status, reason, attempted_at, duration_ms
		FROM deliveries WHERE status != 'succeeded' ORDER BY id DESC LIMIT 1
	`).Scan(&last.ID, &last.ItemID, &last.Sink, &last.Status, &last.Reason, &last.AttemptedAt, &last.DurationMs)
	switch {
	case err == nil:
		stats.LastFail = &last
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("failed to get last failure: %w", err)
	}

	return stats, nil
}
