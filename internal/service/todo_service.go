// Package service holds the operations exposed by the API transports. Each
// operation takes the caller resolved by the authorization gate and delegates
// to the storage backend, which enforces ownership.
package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"todoList/internal/apperr"
	"todoList/internal/auth"
	"todoList/internal/crypto"
	"todoList/internal/metrics"
	"todoList/models"
	"todoList/repository"
)

// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
var ErrInvalidCredentials error = &apperr.Error{Kind: apperr.KindAuthorization, Message: "invalid name or password"}

type credentials struct {
	Name     string `validate:"required,max=64,nowhitespace"`
	Password string `validate:"required,maxbytes"`
}

type todoName struct {
	Name string `validate:"required,max=512"`
}

type TodoService struct {
	store    repository.Storage
	tokens   *auth.TokenService
	hasher   crypto.PasswordHasher
	validate *validator.Validate
	log      *log.Logger
}

func NewTodoService(store repository.Storage, tokens *auth.TokenService, hasher crypto.PasswordHasher, logger *log.Logger) *TodoService {
	if logger == nil {
		logger = log.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsSpace) < 0
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= crypto.MaxPasswordBytes
	})
	return &TodoService{
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		validate: v,
		log:      logger,
	}
}

// Login verifies the credential and returns a signed token for the user.
func (s *TodoService) Login(ctx context.Context, name, password string) (string, error) {
	u, err := s.store.ReadUser(ctx, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.log.Warn("login for unknown user", "user", name)
			return "", ErrInvalidCredentials
		}
		return "", s.internal("login", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		s.log.Warn("login with wrong password", "user", name)
		return "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.Name)
	if err != nil {
		return "", s.internal("login", err)
	}
	metrics.TokensIssued.Inc()
	s.log.Debug("token issued", "user", u.Name)
	return token, nil
}

func (s *TodoService) CreateUser(ctx context.Context, name, password string) (*models.User, error) {
	if err := s.check("createUser", credentials{Name: name, Password: password}); err != nil {
		return nil, err
	}
	u, err := s.store.CreateUser(ctx, name, password)
	if err != nil {
		return nil, s.internal("createUser", err)
	}
	s.log.Info("user registered", "user", u.Name)
	return u, nil
}

func (s *TodoService) ReadTodos(ctx context.Context, caller *models.User) ([]models.ToDo, error) {
	todos, err := s.store.ReadTodos(ctx, caller)
	if err != nil {
		return nil, s.internal("readTodos", err)
	}
	return todos, nil
}

func (s *TodoService) CreateTodo(ctx context.Context, caller *models.User, name string) (*models.ToDo, error) {
	if err := s.check("createTodo", todoName{Name: name}); err != nil {
		return nil, err
	}
	t, err := s.store.CreateTodo(ctx, caller, name)
	if err != nil {
		return nil, s.internal("createTodo", err)
	}
	s.log.Debug("todo created", "user", caller.Name, "id", t.ID)
	return t, nil
}

// UpdateTodo changes only the fields set in patch.
func (s *TodoService) UpdateTodo(ctx context.Context, caller *models.User, id int64, patch models.ToDoPatch) (*models.ToDo, error) {
	if patch.Name != nil {
		if err := s.check("updateTodo", todoName{Name: *patch.Name}); err != nil {
			return nil, err
		}
	}
	t, err := s.store.UpdateTodo(ctx, caller, id, patch)
	if err != nil {
		return nil, s.internal("updateTodo", err)
	}
	return t, nil
}

func (s *TodoService) DeleteTodo(ctx context.Context, caller *models.User, id int64) (*models.ToDo, error) {
	t, err := s.store.DeleteTodo(ctx, caller, id)
	if err != nil {
		return nil, s.internal("deleteTodo", err)
	}
	s.log.Debug("todo deleted", "user", caller.Name, "id", id)
	return t, nil
}

func (s *TodoService) check(op string, v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.New(apperr.KindInvalidInput, op, "%s failed on the '%s' rule", fe.Field(), fe.Tag())
		}
		return apperr.Wrap(apperr.KindInvalidInput, op, err, "invalid input")
	}
	return nil
}

// internal logs failures the caller cannot act on and returns err unchanged.
func (s *TodoService) internal(op string, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindInternal, apperr.KindUnavailable, apperr.KindConstraint:
		s.log.Error("storage failure", "op", op, "err", err)
	}
	return err
}
