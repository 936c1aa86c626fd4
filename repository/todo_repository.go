package repository

import (
	"context"
	"database/sql"
	"errors"

	"todoList/models"
)

// TodoRepository runs todo queries against the todos table. Every query is
// scoped by assignee.
type TodoRepository struct {
	db queryer
}

func NewTodoRepository(db queryer) *TodoRepository {
	return &TodoRepository{db: db}
}

// Create inserts a todo for assignee. It returns nil, nil when assignee is
// not a registered user.
func (r *TodoRepository) Create(ctx context.Context, assignee models.User, name string) (*models.ToDo, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (assignee, name, done) SELECT name, ?, 0 FROM users WHERE name = ?`,
		name, assignee.Name)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.ToDo{ID: id, Name: name, Assignee: assignee}, nil
}

// GetOwned returns nil, nil when no todo with id belongs to assignee.
func (r *TodoRepository) GetOwned(ctx context.Context, assignee models.User, id int64) (*models.ToDo, error) {
	t := models.ToDo{Assignee: assignee}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, done FROM todos WHERE id = ? AND assignee = ?`, id, assignee.Name).
		Scan(&t.ID, &t.Name, &t.Done)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListByAssignee returns the todos of assignee ordered by id.
func (r *TodoRepository) ListByAssignee(ctx context.Context, assignee models.User) ([]models.ToDo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, done FROM todos WHERE assignee = ? ORDER BY id`, assignee.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.ToDo{}
	for rows.Next() {
		t := models.ToDo{Assignee: assignee}
		if err := rows.Scan(&t.ID, &t.Name, &t.Done); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes name and done for an owned todo.
func (r *TodoRepository) Update(ctx context.Context, t *models.ToDo) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE todos SET name = ?, done = ? WHERE id = ? AND assignee = ?`,
		t.Name, t.Done, t.ID, t.Assignee.Name)
	return err
}

func (r *TodoRepository) Delete(ctx context.Context, assignee models.User, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND assignee = ?`, id, assignee.Name)
	return err
}

func (r *TodoRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos`)
	return err
}
