package grpcserver

import "todoList/models"

type User struct {
	Name string `json:"name"`
}

type Todo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Assignee *User  `json:"assignee"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type CreateUserResponse struct {
	User *User `json:"user"`
}

type ReadTodosRequest struct{}

type ReadTodosResponse struct {
	Todos []*Todo `json:"todos"`
}

type CreateTodoRequest struct {
	Name string `json:"name"`
}

// UpdateTodoRequest changes only the fields that are set.
type UpdateTodoRequest struct {
	ID   int64   `json:"id"`
	Name *string `json:"name,omitempty"`
	Done *bool   `json:"done,omitempty"`
}

type DeleteTodoRequest struct {
	ID int64 `json:"id"`
}

type TodoResponse struct {
	Todo *Todo `json:"todo"`
}

func toUser(u models.User) *User {
	return &User{Name: u.Name}
}

func toTodo(t models.ToDo) *Todo {
	return &Todo{ID: t.ID, Name: t.Name, Done: t.Done, Assignee: toUser(t.Assignee)}
}
