package database

import (
	"context"
	"fmt"
)

func (s *Store) LoadState(ctx context.Context) ([]StateEntry, map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, source_id, dest_id FROM import_state ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query import state: %w", err)
	}
	defer rows.Close()

	var entries []StateEntry
	for rows.Next() {
		var e StateEntry
		if err := rows.Scan(&e.Kind, &e.SourceID, &e.DestID); err != nil {
			return nil, nil, fmt.Errorf("failed to scan import state: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating import state: %w", err)
	}

	urlRows, err := s.db.QueryContext(ctx, `SELECT old_url, new_url FROM import_urls`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query import urls: %w", err)
	}
	defer urlRows.Close()

	urls := make(map[string]string)
	for urlRows.Next() {
		var oldURL, newURL string
		if err := urlRows.Scan(&oldURL, &newURL); err != nil {
			return nil, nil, fmt.Errorf("failed to scan import url: %w", err)
		}
		urls[oldURL] = newURL
	}
	if err := urlRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating import urls: %w", err)
	}

	return entries, urls, nil
}

func (s *Store) RecordMapping(ctx context.Context, kind string, sourceID, destID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO import_state (kind, source_id, dest_id) VALUES (?, ?, ?)
	`, kind, sourceID, destID)
	if err != nil {
		return fmt.Errorf("failed to record %s mapping: %w", kind, err)
	}
	return nil
}

func (s *Store) DeleteMapping(ctx context.Context, kind string, sourceID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM import_state WHERE kind = ? AND source_id = ?`, kind, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete %s mapping: %w", kind, err)
	}
	return nil
}

func (s *Store) RecordURL(ctx context.Context, oldURL, newURL string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO import_urls (old_url, new_url) VALUES (?, ?)`, oldURL, newURL)
	if err != nil {
		return fmt.Errorf("failed to record url remap: %w", err)
	}
	return nil
}

func (s *Store) ClearState(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"import_state", "import_urls"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state clear: %w", err)
	}
	return nil
}
