package repository

import (
	"context"

	"todoList/models"
)

// Storage is the contract every backend implements. Ownership is enforced in
// ReadTodo; UpdateTodo and DeleteTodo compose on it, so a todo owned by
// another user is reported as not found.
type Storage interface {
	// Open acquires backend resources. Stateless backends treat it as a no-op.
	Open(ctx context.Context) error
	// Close releases what Open acquired.
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, name, password string) (*models.User, error)
	ReadUser(ctx context.Context, name string) (*models.User, error)
	ReadUsers(ctx context.Context) ([]models.User, error)

	CreateTodo(ctx context.Context, assignee *models.User, name string) (*models.ToDo, error)
	ReadTodo(ctx context.Context, assignee *models.User, id int64) (*models.ToDo, error)
	ReadTodos(ctx context.Context, assignee *models.User) ([]models.ToDo, error)
	UpdateTodo(ctx context.Context, assignee *models.User, id int64, patch models.ToDoPatch) (*models.ToDo, error)
	DeleteTodo(ctx context.Context, assignee *models.User, id int64) (*models.ToDo, error)

	// ClearStorage purges all users and todos. Test and reset hook only.
	ClearStorage(ctx context.Context) error
}

// UserReader is the subset of Storage needed to resolve identities.
type UserReader interface {
	ReadUser(ctx context.Context, name string) (*models.User, error)
}
