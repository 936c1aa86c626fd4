package repository

import (
	"context"
	"sort"
	"sync"

	"todoList/internal/crypto"
	"todoList/models"
)

// MemoryStorage keeps users and their todos in process memory. Each user's
// todos are kept in creation order, which is also id order.
type MemoryStorage struct {
	mu          sync.RWMutex
	userByName  map[string]models.User
	todosByUser map[string][]models.ToDo
	ids         IDAllocator
	hasher      crypto.PasswordHasher
}

// NewMemoryStorage returns an empty MemoryStorage. A nil ids uses a Counter
// starting at 1.
func NewMemoryStorage(hasher crypto.PasswordHasher, ids IDAllocator) *MemoryStorage {
	if ids == nil {
		ids = NewCounter(0)
	}
	return &MemoryStorage{
		userByName:  make(map[string]models.User),
		todosByUser: make(map[string][]models.ToDo),
		ids:         ids,
		hasher:      hasher,
	}
}

func (s *MemoryStorage) Open(context.Context) error  { return nil }
func (s *MemoryStorage) Close(context.Context) error { return nil }

func (s *MemoryStorage) ClearStorage(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.userByName)
	clear(s.todosByUser)
	return nil
}

func (s *MemoryStorage) CreateUser(_ context.Context, name, password string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userByName[name]; ok {
		return nil, errUserTaken("createUser", name)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := models.User{Name: name, PasswordHash: hash}
	s.userByName[name] = u
	s.todosByUser[name] = nil
	return &u, nil
}

func (s *MemoryStorage) ReadUser(_ context.Context, name string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.userByName[name]
	if !ok {
		return nil, errUserNotFound("readUser", name)
	}
	return &u, nil
}

func (s *MemoryStorage) ReadUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.userByName))
	for _, u := range s.userByName {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStorage) CreateTodo(ctx context.Context, assignee *models.User, name string) (*models.ToDo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if assignee == nil {
		return nil, errUnknownAssignee("createTodo", assignee)
	}
	owner, ok := s.userByName[assignee.Name]
	if !ok {
		return nil, errUnknownAssignee("createTodo", assignee)
	}
	id, err := s.ids.Next(ctx)
	if err != nil {
		return nil, err
	}
	t := models.ToDo{ID: id, Name: name, Assignee: owner}
	s.todosByUser[owner.Name] = append(s.todosByUser[owner.Name], t)
	return &t, nil
}

func (s *MemoryStorage) ReadTodos(_ context.Context, assignee *models.User) ([]models.ToDo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if assignee == nil {
		return []models.ToDo{}, nil
	}
	todos := s.todosByUser[assignee.Name]
	out := make([]models.ToDo, len(todos))
	copy(out, todos)
	return out, nil
}

func (s *MemoryStorage) ReadTodo(_ context.Context, assignee *models.User, id int64) (*models.ToDo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := s.indexOf("readTodo", assignee, id)
	if err != nil {
		return nil, err
	}
	t := s.todosByUser[assignee.Name][i]
	return &t, nil
}

func (s *MemoryStorage) UpdateTodo(_ context.Context, assignee *models.User, id int64, patch models.ToDoPatch) (*models.ToDo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf("updateTodo", assignee, id)
	if err != nil {
		return nil, err
	}
	todos := s.todosByUser[assignee.Name]
	patch.Apply(&todos[i])
	t := todos[i]
	return &t, nil
}

func (s *MemoryStorage) DeleteTodo(_ context.Context, assignee *models.User, id int64) (*models.ToDo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf("deleteTodo", assignee, id)
	if err != nil {
		return nil, err
	}
	todos := s.todosByUser[assignee.Name]
	deleted := todos[i]
	s.todosByUser[assignee.Name] = append(todos[:i:i], todos[i+1:]...)
	return &deleted, nil
}

// indexOf is the ownership-aware lookup every todo operation goes through.
// Callers must hold mu.
func (s *MemoryStorage) indexOf(op string, assignee *models.User, id int64) (int, error) {
	if assignee == nil {
		return -1, errTodoNotFound(op, assignee, id)
	}
	for i, t := range s.todosByUser[assignee.Name] {
		if t.ID == id {
			return i, nil
		}
	}
	return -1, errTodoNotFound(op, assignee, id)
}
