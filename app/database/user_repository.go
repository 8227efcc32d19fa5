package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = `id, login, email, display_name, first_name, last_name`

func (s *Store) UserByLogin(ctx context.Context, login string) (*User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE login = ?`, login)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Login, &u.Email, &u.DisplayName, &u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *Store) InsertUser(ctx context.Context, user User) (int64, error) {
	if user.Login == "" {
		return 0, fmt.Errorf("user login is required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (login, email, display_name, first_name, last_name) VALUES (?, ?, ?, ?, ?)
	`, user.Login, user.Email, user.DisplayName, user.FirstName, user.LastName)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}
	return id, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Login, &u.Email, &u.DisplayName, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
