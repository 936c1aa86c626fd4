package repository

import (
	"context"
	"database/sql"
	"errors"

	"todoList/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepository runs user queries against the users table.
type UserRepository struct {
	db queryer
}

func NewUserRepository(db queryer) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user with an already hashed credential.
func (r *UserRepository) Create(ctx context.Context, name, passwordHash string) (*models.User, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (name, password_hash) VALUES (?, ?)`, name, passwordHash)
	if err != nil {
		return nil, err
	}
	return &models.User{Name: name, PasswordHash: passwordHash}, nil
}

// GetByName returns nil, nil when no user has the given name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, `SELECT name, password_hash FROM users WHERE name = ?`, name).Scan(&u.Name, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, password_hash FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Name, &u.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users`)
	return err
}
