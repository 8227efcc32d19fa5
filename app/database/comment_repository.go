package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) InsertComment(ctx context.Context, comment Comment) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (post_id, author, author_email, author_url, author_ip, comment_date,
			comment_date_gmt, content, approved, type, parent, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, comment.PostID, comment.Author, comment.AuthorEmail, comment.AuthorURL, comment.AuthorIP,
		comment.Date, comment.DateGMT, comment.Content, comment.Approved, comment.Type,
		comment.Parent, comment.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get comment id: %w", err)
	}
	return id, nil
}

func (s *Store) CommentExists(ctx context.Context, postID int64, author, date string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM comments WHERE post_id = ? AND author = ? AND comment_date = ? ORDER BY id LIMIT 1
	`, postID, author, date).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up comment: %w", err)
	}
	return id, nil
}

func (s *Store) SetCommentMeta(ctx context.Context, commentID int64, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM commentmeta WHERE comment_id = ? AND meta_key = ?`, commentID, key); err != nil {
		return fmt.Errorf("failed to clear comment meta: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO commentmeta (comment_id, meta_key, meta_value) VALUES (?, ?, ?)`, commentID, key, value)
	if err != nil {
		return fmt.Errorf("failed to insert comment meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comment meta: %w", err)
	}
	return nil
}

func (s *Store) ListComments(ctx context.Context, postID int64) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, author, author_email, author_url, author_ip, comment_date, comment_date_gmt,
			content, approved, type, parent, user_id
		FROM comments WHERE post_id = ? ORDER BY id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		err := rows.Scan(&c.ID, &c.PostID, &c.Author, &c.AuthorEmail, &c.AuthorURL, &c.AuthorIP,
			&c.Date, &c.DateGMT, &c.Content, &c.Approved, &c.Type, &c.Parent, &c.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

func (s *Store) ListCommentMeta(ctx context.Context, commentID int64) ([]Meta, error) {
	return s.queryMeta(ctx, `SELECT meta_key, meta_value FROM commentmeta WHERE comment_id = ? ORDER BY meta_id`, commentID)
}
