package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"nutriscan/internal/domain"
)

var _ domain.AnalysisRepository = (*DB)(nil)

// AddEntry inserts an analysis entry. The record is stored as JSON text.
func (d *DB) AddEntry(ctx context.Context, e domain.Entry) error {
	analysis, err := json.Marshal(e.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	_, err = d.sql.ExecContext(ctx,
		"INSERT INTO food_entries(id, user_id, food_name, image_url, analysis, created_at) VALUES(?, ?, ?, ?, ?, ?);",
		e.ID, e.UserID, e.FoodName, e.ImageURL, string(analysis), formatTime(e.CreatedAt),
	)
	return err
}

// ListRecentEntries returns the most recent entries up to limit for a user.
func (d *DB) ListRecentEntries(ctx context.Context, userID int64, limit int) ([]domain.Entry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, food_name, image_url, analysis, created_at FROM food_entries WHERE user_id=? ORDER BY created_at DESC LIMIT ?;",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	return scanEntries(rows)
}

// ListEntriesSince returns a user's entries created at or after since, oldest first.
func (d *DB) ListEntriesSince(ctx context.Context, userID int64, since time.Time) ([]domain.Entry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, food_name, image_url, analysis, created_at FROM food_entries WHERE user_id=? AND created_at >= ? ORDER BY created_at ASC;",
		userID, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	out := []domain.Entry{}
	for rows.Next() {
		var (
			e                domain.Entry
			raw, createdText string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.FoodName, &e.ImageURL, &raw, &createdText); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", e.ID, err)
		}
		created, err := parseTime(createdText)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = created
		out = append(out, e)
	}
	return out, rows.Err()
}
