package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const postColumns = `id, author_id, post_date, post_date_gmt, content, title, excerpt, status,
	comment_status, ping_status, password, name, parent, guid, menu_order, type, mime_type, is_sticky`

func (s *Store) PostExists(ctx context.Context, title, date, postType string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM posts WHERE title = ? AND post_date = ? AND type = ? ORDER BY id LIMIT 1
	`, title, date, postType).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up post: %w", err)
	}
	return id, nil
}

func (s *Store) MenuItemExists(ctx context.Context, menuID int64, title, date string, menuOrder int) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id FROM posts p
		JOIN term_relationships tr ON tr.object_id = p.id
		WHERE p.type = 'nav_menu_item' AND tr.term_id = ? AND p.title = ? AND p.post_date = ? AND p.menu_order = ?
		ORDER BY p.id LIMIT 1
	`, menuID, title, date, menuOrder).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up menu item: %w", err)
	}
	return id, nil
}

func (s *Store) InsertPost(ctx context.Context, post Post) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (author_id, post_date, post_date_gmt, content, title, excerpt, status,
			comment_status, ping_status, password, name, parent, guid, menu_order, type, mime_type, is_sticky)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, post.AuthorID, post.Date, post.DateGMT, post.Content, post.Title, post.Excerpt,
		cmp.Or(post.Status, "publish"), cmp.Or(post.CommentStatus, "open"), cmp.Or(post.PingStatus, "open"),
		post.Password, post.Name, post.Parent, post.GUID, post.MenuOrder, cmp.Or(post.Type, "post"),
		post.MimeType, post.IsSticky)
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get post id: %w", err)
	}
	return id, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Date, &p.DateGMT, &p.Content, &p.Title, &p.Excerpt, &p.Status,
		&p.CommentStatus, &p.PingStatus, &p.Password, &p.Name, &p.Parent, &p.GUID, &p.MenuOrder, &p.Type,
		&p.MimeType, &p.IsSticky)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePostParent(ctx context.Context, id, parent int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET parent = ? WHERE id = ?`, parent, id)
	if err != nil {
		return fmt.Errorf("failed to update post parent: %w", err)
	}
	return nil
}

func (s *Store) AssignPostID(ctx context.Context, from, to int64) error {
	if from == to {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var taken int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE id = ?`, to).Scan(&taken); err != nil {
		return fmt.Errorf("failed to check post id: %w", err)
	}
	if taken > 0 {
		return fmt.Errorf("post %d: %w", to, ErrIDInUse)
	}

	cascades := []string{
		`UPDATE postmeta SET post_id = ? WHERE post_id = ?`,
		`UPDATE term_relationships SET object_id = ? WHERE object_id = ?`,
		`UPDATE comments SET post_id = ? WHERE post_id = ?`,
		`UPDATE posts SET parent = ? WHERE parent = ?`,
	}
	for _, query := range cascades {
		if _, err := tx.ExecContext(ctx, query, to, from); err != nil {
			return fmt.Errorf("failed to cascade post id: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE posts SET id = ? WHERE id = ?`, to, from)
	if err != nil {
		return fmt.Errorf("failed to assign post id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("post %d: %w", from, ErrNotFound)
	}

	if err := bumpSequence(ctx, tx, "posts", to); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit post id: %w", err)
	}
	return nil
}

func (s *Store) StickPost(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET is_sticky = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to stick post: %w", err)
	}
	return nil
}

// SetPostMeta replaces every value stored under key for the post.
func (s *Store) SetPostMeta(ctx context.Context, postID int64, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM postmeta WHERE post_id = ? AND meta_key = ?`, postID, key); err != nil {
		return fmt.Errorf("failed to clear post meta: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`, postID, key, value)
	if err != nil {
		return fmt.Errorf("failed to insert post meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit post meta: %w", err)
	}
	return nil
}

func (s *Store) GetPostMeta(ctx context.Context, postID int64, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT meta_value FROM postmeta WHERE post_id = ? AND meta_key = ? ORDER BY meta_id LIMIT 1
	`, postID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get post meta: %w", err)
	}
	return value, true, nil
}

func (s *Store) ListPostMeta(ctx context.Context, postID int64) ([]Meta, error) {
	return s.queryMeta(ctx, `SELECT meta_key, meta_value FROM postmeta WHERE post_id = ? ORDER BY meta_id`, postID)
}

func (s *Store) queryMeta(ctx context.Context, query string, args ...any) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	defer rows.Close()

	var meta []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.Key, &m.Value); err != nil {
			return nil, fmt.Errorf("failed to scan meta: %w", err)
		}
		meta = append(meta, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meta: %w", err)
	}
	return meta, nil
}

// ReplaceInContent substitutes old with new in every post body and returns the number of posts changed.
func (s *Store) ReplaceInContent(ctx context.Context, old, new string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET content = REPLACE(content, ?, ?) WHERE instr(content, ?) > 0
	`, old, new, old)
	if err != nil {
		return 0, fmt.Errorf("failed to replace in content: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) ReplaceInMeta(ctx context.Context, key, old, new string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE postmeta SET meta_value = REPLACE(meta_value, ?, ?) WHERE meta_key = ? AND instr(meta_value, ?) > 0
	`, old, new, key, old)
	if err != nil {
		return 0, fmt.Errorf("failed to replace in meta: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
