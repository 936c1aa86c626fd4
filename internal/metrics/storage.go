package metrics

import (
	"context"
	"time"

	"todoList/internal/apperr"
	"todoList/models"
	"todoList/repository"
)

// InstrumentedStorage records duration and failures of every call to the
// wrapped backend.
type InstrumentedStorage struct {
	next    repository.Storage
	backend string
}

var _ repository.Storage = (*InstrumentedStorage)(nil)

func InstrumentStorage(next repository.Storage, backend string) *InstrumentedStorage {
	return &InstrumentedStorage{next: next, backend: backend}
}

// track starts a timer; the returned func must be deferred with a pointer to
// the named error result.
func (s *InstrumentedStorage) track(op string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		StorageOperationDurationSeconds.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
		if *errp != nil {
			StorageOperationErrors.WithLabelValues(s.backend, op, apperr.KindOf(*errp).String()).Inc()
		}
	}
}

func (s *InstrumentedStorage) Open(ctx context.Context) (err error) {
	defer s.track("open")(&err)
	return s.next.Open(ctx)
}

func (s *InstrumentedStorage) Close(ctx context.Context) (err error) {
	defer s.track("close")(&err)
	return s.next.Close(ctx)
}

func (s *InstrumentedStorage) CreateUser(ctx context.Context, name, password string) (u *models.User, err error) {
	defer s.track("createUser")(&err)
	return s.next.CreateUser(ctx, name, password)
}

func (s *InstrumentedStorage) ReadUser(ctx context.Context, name string) (u *models.User, err error) {
	defer s.track("readUser")(&err)
	return s.next.ReadUser(ctx, name)
}

func (s *InstrumentedStorage) ReadUsers(ctx context.Context) (users []models.User, err error) {
	defer s.track("readUsers")(&err)
	return s.next.ReadUsers(ctx)
}

func (s *InstrumentedStorage) CreateTodo(ctx context.Context, assignee *models.User, name string) (t *models.ToDo, err error) {
	defer s.track("createTodo")(&err)
	return s.next.CreateTodo(ctx, assignee, name)
}

func (s *InstrumentedStorage) ReadTodo(ctx context.Context, assignee *models.User, id int64) (t *models.ToDo, err error) {
	defer s.track("readTodo")(&err)
	return s.next.ReadTodo(ctx, assignee, id)
}

func (s *InstrumentedStorage) ReadTodos(ctx context.Context, assignee *models.User) (todos []models.ToDo, err error) {
	defer s.track("readTodos")(&err)
	return s.next.ReadTodos(ctx, assignee)
}

func (s *InstrumentedStorage) UpdateTodo(ctx context.Context, assignee *models.User, id int64, patch models.ToDoPatch) (t *models.ToDo, err error) {
	defer s.track("updateTodo")(&err)
	return s.next.UpdateTodo(ctx, assignee, id, patch)
}

func (s *InstrumentedStorage) DeleteTodo(ctx context.Context, assignee *models.User, id int64) (t *models.ToDo, err error) {
	defer s.track("deleteTodo")(&err)
	return s.next.DeleteTodo(ctx, assignee, id)
}

func (s *InstrumentedStorage) ClearStorage(ctx context.Context) (err error) {
	defer s.track("clearStorage")(&err)
	return s.next.ClearStorage(ctx)
}
