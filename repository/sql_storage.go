package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"todoList/internal/apperr"
	"todoList/internal/crypto"
	"todoList/internal/db"
	"todoList/models"
)

// SQLStorage is the relational backend over SQLite. Uniqueness of user names
// and todo ids is enforced by the schema applied in Open.
type SQLStorage struct {
	path   string
	hasher crypto.PasswordHasher
	db     *sql.DB
}

func NewSQLStorage(path string, hasher crypto.PasswordHasher) *SQLStorage {
	return &SQLStorage{path: path, hasher: hasher}
}

// Open connects and migrates. Calling Open on an open storage is a no-op.
func (s *SQLStorage) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	d, err := db.Open(ctx, s.path)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "open", err, "sqlite open failed")
	}
	s.db = d
	return nil
}

func (s *SQLStorage) Close(context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStorage) conn(op string) (*sql.DB, error) {
	if s.db == nil {
		return nil, apperr.New(apperr.KindUnavailable, op, "storage is not open")
	}
	return s.db, nil
}

func (s *SQLStorage) ClearStorage(ctx context.Context) error {
	return s.inTx(ctx, "clearStorage", func(tx *sql.Tx) error {
		if err := NewTodoRepository(tx).DeleteAll(ctx); err != nil {
			return err
		}
		return NewUserRepository(tx).DeleteAll(ctx)
	})
}

func (s *SQLStorage) CreateUser(ctx context.Context, name, password string) (*models.User, error) {
	d, err := s.conn("createUser")
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u, err := NewUserRepository(d).Create(ctx, name, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errUserTaken("createUser", name)
		}
		return nil, classifySQLite("createUser", err)
	}
	return u, nil
}

func (s *SQLStorage) ReadUser(ctx context.Context, name string) (*models.User, error) {
	d, err := s.conn("readUser")
	if err != nil {
		return nil, err
	}
	u, err := NewUserRepository(d).GetByName(ctx, name)
	if err != nil {
		return nil, classifySQLite("readUser", err)
	}
	if u == nil {
		return nil, errUserNotFound("readUser", name)
	}
	return u, nil
}

func (s *SQLStorage) ReadUsers(ctx context.Context) ([]models.User, error) {
	d, err := s.conn("readUsers")
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(d).List(ctx)
	if err != nil {
		return nil, classifySQLite("readUsers", err)
	}
	return users, nil
}

func (s *SQLStorage) CreateTodo(ctx context.Context, assignee *models.User, name string) (*models.ToDo, error) {
	if assignee == nil {
		return nil, errUnknownAssignee("createTodo", assignee)
	}
	d, err := s.conn("createTodo")
	if err != nil {
		return nil, err
	}
	t, err := NewTodoRepository(d).Create(ctx, *assignee, name)
	if err != nil {
		return nil, classifySQLite("createTodo", err)
	}
	if t == nil {
		return nil, errUnknownAssignee("createTodo", assignee)
	}
	return t, nil
}

func (s *SQLStorage) ReadTodos(ctx context.Context, assignee *models.User) ([]models.ToDo, error) {
	if assignee == nil {
		return []models.ToDo{}, nil
	}
	d, err := s.conn("readTodos")
	if err != nil {
		return nil, err
	}
	todos, err := NewTodoRepository(d).ListByAssignee(ctx, *assignee)
	if err != nil {
		return nil, classifySQLite("readTodos", err)
	}
	return todos, nil
}

func (s *SQLStorage) ReadTodo(ctx context.Context, assignee *models.User, id int64) (*models.ToDo, error) {
	d, err := s.conn("readTodo")
	if err != nil {
		return nil, err
	}
	return readOwned(ctx, NewTodoRepository(d), "readTodo", assignee, id)
}

func (s *SQLStorage) UpdateTodo(ctx context.Context, assignee *models.User, id int64, patch models.ToDoPatch) (*models.ToDo, error) {
	var out *models.ToDo
	err := s.inTx(ctx, "updateTodo", func(tx *sql.Tx) error {
		todos := NewTodoRepository(tx)
		t, err := readOwned(ctx, todos, "updateTodo", assignee, id)
		if err != nil {
			return err
		}
		if !patch.Empty() {
			patch.Apply(t)
			if err := todos.Update(ctx, t); err != nil {
				return err
			}
		}
		out = t
		return nil
	})
	return out, err
}

func (s *SQLStorage) DeleteTodo(ctx context.Context, assignee *models.User, id int64) (*models.ToDo, error) {
	var out *models.ToDo
	err := s.inTx(ctx, "deleteTodo", func(tx *sql.Tx) error {
		todos := NewTodoRepository(tx)
		t, err := readOwned(ctx, todos, "deleteTodo", assignee, id)
		if err != nil {
			return err
		}
		if err := todos.Delete(ctx, *assignee, id); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// readOwned is the ownership-aware read every todo operation composes on.
func readOwned(ctx context.Context, todos *TodoRepository, op string, assignee *models.User, id int64) (*models.ToDo, error) {
	if assignee == nil {
		return nil, errTodoNotFound(op, assignee, id)
	}
	t, err := todos.GetOwned(ctx, *assignee, id)
	if err != nil {
		return nil, classifySQLite(op, err)
	}
	if t == nil {
		return nil, errTodoNotFound(op, assignee, id)
	}
	return t, nil
}

// inTx runs fn in one transaction. Errors already classified by fn pass
// through unchanged.
func (s *SQLStorage) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	d, err := s.conn(op)
	if err != nil {
		return err
	}
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return classifySQLite(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return classifySQLite(op, err)
	}
	if err := tx.Commit(); err != nil {
		return classifySQLite(op, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// classifySQLite maps driver failures onto the error taxonomy.
func classifySQLite(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrConstraint:
			return apperr.Wrap(apperr.KindConstraint, op, err, "constraint violation")
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			return apperr.Wrap(apperr.KindUnavailable, op, err, "sqlite unavailable")
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindUnavailable, op, err, "request cancelled")
	}
	return apperr.Wrap(apperr.KindInternal, op, err, fmt.Sprintf("%s failed", op))
}
