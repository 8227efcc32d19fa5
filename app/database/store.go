package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, path: path}

	if _, _, err := RunMigrations(s); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM terms),
			(SELECT COUNT(*) FROM comments),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM options)
	`).Scan(&stats.Posts, &stats.Terms, &stats.Comments, &stats.Users, &stats.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

// Truncate empties the content tables and the import journal. Users and options are kept.
func (s *Store) Truncate(ctx context.Context) error {
	tables := []string{
		"comments", "commentmeta", "postmeta", "posts",
		"terms", "term_relationships", "import_state", "import_urls",
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name IN ('comments', 'commentmeta', 'postmeta', 'posts', 'terms')`)
	if err != nil {
		return fmt.Errorf("failed to reset sequences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit truncate: %w", err)
	}
	return nil
}

func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	return nil
}

// bumpSequence advances the AUTOINCREMENT counter of table past id.
func bumpSequence(ctx context.Context, tx *sql.Tx, table string, id int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE sqlite_sequence SET seq = ? WHERE name = ? AND seq < ?`, id, table, id)
	if err != nil {
		return fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_sequence WHERE name = ?`, table).Scan(&exists); err != nil {
		return fmt.Errorf("failed to read %s sequence: %w", table, err)
	}
	if exists == 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, table, id); err != nil {
			return fmt.Errorf("failed to create %s sequence: %w", table, err)
		}
	}
	return nil
}
