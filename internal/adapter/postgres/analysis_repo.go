package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"nutriscan/internal/domain"
)

var _ domain.AnalysisRepository = (*DB)(nil)

// AddEntry inserts an analysis entry. The record is stored as JSONB.
func (d *DB) AddEntry(ctx context.Context, e domain.Entry) error {
	analysis, err := json.Marshal(e.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	_, err = d.sql.ExecContext(ctx,
		"INSERT INTO food_entries(id, user_id, food_name, image_url, analysis, created_at) VALUES($1, $2, $3, $4, $5, $6);",
		e.ID, e.UserID, e.FoodName, e.ImageURL, analysis, e.CreatedAt.UTC(),
	)
	return err
}

// ListRecentEntries returns the most recent entries up to limit for a user.
func (d *DB) ListRecentEntries(ctx context.Context, userID int64, limit int) ([]domain.Entry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, food_name, image_url, analysis, created_at FROM food_entries WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	return scanEntries(rows, limit)
}

// ListEntriesSince returns a user's entries created at or after since, oldest first.
func (d *DB) ListEntriesSince(ctx context.Context, userID int64, since time.Time) ([]domain.Entry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, food_name, image_url, analysis, created_at FROM food_entries WHERE user_id=$1 AND created_at >= $2 ORDER BY created_at ASC;",
		userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	return scanEntries(rows, 0)
}

func scanEntries(rows *sql.Rows, capacity int) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0, capacity)
	for rows.Next() {
		var (
			e   domain.Entry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.FoodName, &e.ImageURL, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
