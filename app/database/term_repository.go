package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) TermExists(ctx context.Context, slug, taxonomy string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT term_id FROM terms WHERE slug = ? AND taxonomy = ?`, slug, taxonomy).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up term: %w", err)
	}
	return id, nil
}

func (s *Store) InsertTerm(ctx context.Context, term Term) (int64, error) {
	if term.Slug == "" || term.Taxonomy == "" {
		return 0, fmt.Errorf("term slug and taxonomy are required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO terms (taxonomy, slug, name, description, parent)
		VALUES (?, ?, ?, ?, ?)
	`, term.Taxonomy, term.Slug, term.Name, term.Description, term.Parent)
	if err != nil {
		return 0, fmt.Errorf("failed to insert term: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get term id: %w", err)
	}
	return id, nil
}

func (s *Store) AssignTermID(ctx context.Context, from, to int64) error {
	if from == to {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var taken int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM terms WHERE term_id = ?`, to).Scan(&taken); err != nil {
		return fmt.Errorf("failed to check term id: %w", err)
	}
	if taken > 0 {
		return fmt.Errorf("term %d: %w", to, ErrIDInUse)
	}

	cascades := []string{
		`UPDATE term_relationships SET term_id = ? WHERE term_id = ?`,
		`UPDATE terms SET parent = ? WHERE parent = ?`,
	}
	for _, query := range cascades {
		if _, err := tx.ExecContext(ctx, query, to, from); err != nil {
			return fmt.Errorf("failed to cascade term id: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE terms SET term_id = ? WHERE term_id = ?`, to, from)
	if err != nil {
		return fmt.Errorf("failed to assign term id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("term %d: %w", from, ErrNotFound)
	}

	if err := bumpSequence(ctx, tx, "terms", to); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit term id: %w", err)
	}
	return nil
}

// SetPostTerms replaces the post's terms in taxonomy with termIDs.
func (s *Store) SetPostTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM term_relationships
		WHERE object_id = ? AND term_id IN (SELECT term_id FROM terms WHERE taxonomy = ?)
	`, postID, taxonomy)
	if err != nil {
		return fmt.Errorf("failed to clear post terms: %w", err)
	}

	for i, termID := range termIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO term_relationships (object_id, term_id, term_order) VALUES (?, ?, ?)
		`, postID, termID, i)
		if err != nil {
			return fmt.Errorf("failed to set post term: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit post terms: %w", err)
	}
	return nil
}

func (s *Store) RecountTerms(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE terms SET count = (
			SELECT COUNT(*) FROM term_relationships tr
			JOIN posts p ON p.id = tr.object_id
			WHERE tr.term_id = terms.term_id
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to recount terms: %w", err)
	}
	return nil
}

func (s *Store) ListTerms(ctx context.Context) ([]Term, error) {
	return s.queryTerms(ctx, `
		SELECT term_id, taxonomy, slug, name, description, parent, count
		FROM terms ORDER BY term_id
	`)
}

func (s *Store) PostTerms(ctx context.Context, postID int64) ([]Term, error) {
	return s.queryTerms(ctx, `
		SELECT t.term_id, t.taxonomy, t.slug, t.name, t.description, t.parent, t.count
		FROM terms t
		JOIN term_relationships tr ON tr.term_id = t.term_id
		WHERE tr.object_id = ?
		ORDER BY tr.term_order, t.term_id
	`, postID)
}

func (s *Store) queryTerms(ctx context.Context, query string, args ...any) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Taxonomy, &t.Slug, &t.Name, &t.Description, &t.Parent, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating terms: %w", err)
	}
	return terms, nil
}
