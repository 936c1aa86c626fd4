// Package graphql serves the query/mutation API over HTTP.
package graphql

import (
	"context"
	_ "embed"
	"math"
	"net/http"

	"github.com/charmbracelet/log"
	gql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"todoList/internal/apperr"
	"todoList/internal/auth"
	"todoList/internal/service"
	"todoList/models"
)

//go:embed schema.graphql
var schemaSDL string

// NewSchema parses the schema against a resolver backed by svc.
func NewSchema(svc *service.TodoService, gate *auth.Gate) (*gql.Schema, error) {
	return gql.ParseSchema(schemaSDL, &Resolver{svc: svc, gate: gate}, gql.MaxDepth(8))
}

// NewHandler returns the HTTP handler for the API. The caller identity is
// resolved from the Authorization header before the query executes.
func NewHandler(svc *service.TodoService, gate *auth.Gate, logger *log.Logger) (http.Handler, error) {
	schema, err := NewSchema(svc, gate)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	h := auth.Middleware(gate)(&relay.Handler{Schema: schema})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		logger.Debug("graphql request", "remote", r.RemoteAddr)
		h.ServeHTTP(w, r)
	}), nil
}

// Resolver is the root resolver for both queries and mutations.
type Resolver struct {
	svc  *service.TodoService
	gate *auth.Gate
}

func (r *Resolver) ReadTodos(ctx context.Context) ([]*todoResolver, error) {
	caller, err := r.gate.Authorize(ctx, "readTodos")
	if err != nil {
		return nil, toGraphQLError(err)
	}
	todos, err := r.svc.ReadTodos(ctx, caller)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	out := make([]*todoResolver, 0, len(todos))
	for i := range todos {
		out = append(out, &todoResolver{t: todos[i]})
	}
	return out, nil
}

type credentialsArgs struct {
	Name     string
	Password string
}

func (r *Resolver) Login(ctx context.Context, args credentialsArgs) (*string, error) {
	if _, err := r.gate.Authorize(ctx, auth.OpLogin); err != nil {
		return nil, toGraphQLError(err)
	}
	token, err := r.svc.Login(ctx, args.Name, args.Password)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &token, nil
}

func (r *Resolver) CreateUser(ctx context.Context, args credentialsArgs) (*userResolver, error) {
	if _, err := r.gate.Authorize(ctx, auth.OpCreateUser); err != nil {
		return nil, toGraphQLError(err)
	}
	u, err := r.svc.CreateUser(ctx, args.Name, args.Password)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &userResolver{u: *u}, nil
}

func (r *Resolver) CreateTodo(ctx context.Context, args struct{ Name string }) (*todoResolver, error) {
	caller, err := r.gate.Authorize(ctx, "createTodo")
	if err != nil {
		return nil, toGraphQLError(err)
	}
	t, err := r.svc.CreateTodo(ctx, caller, args.Name)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &todoResolver{t: *t}, nil
}

type updateTodoArgs struct {
	ID   int32
	Name *string
	Done *bool
}

func (r *Resolver) UpdateTodo(ctx context.Context, args updateTodoArgs) (*todoResolver, error) {
	caller, err := r.gate.Authorize(ctx, "updateTodo")
	if err != nil {
		return nil, toGraphQLError(err)
	}
	t, err := r.svc.UpdateTodo(ctx, caller, int64(args.ID), models.ToDoPatch{Name: args.Name, Done: args.Done})
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &todoResolver{t: *t}, nil
}

func (r *Resolver) DeleteTodo(ctx context.Context, args struct{ ID int32 }) (*todoResolver, error) {
	caller, err := r.gate.Authorize(ctx, "deleteTodo")
	if err != nil {
		return nil, toGraphQLError(err)
	}
	t, err := r.svc.DeleteTodo(ctx, caller, int64(args.ID))
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &todoResolver{t: *t}, nil
}

type userResolver struct{ u models.User }

func (r *userResolver) Name() string { return r.u.Name }

type todoResolver struct{ t models.ToDo }

// ID reports an error for identifiers the GraphQL Int type cannot carry.
func (r *todoResolver) ID() (int32, error) {
	if r.t.ID < math.MinInt32 || r.t.ID > math.MaxInt32 {
		return 0, toGraphQLError(apperr.New(apperr.KindConstraint, "id", "todo id %d exceeds the Int range", r.t.ID))
	}
	return int32(r.t.ID), nil
}

func (r *todoResolver) Name() string { return r.t.Name }
func (r *todoResolver) Done() bool   { return r.t.Done }

func (r *todoResolver) Assignee() *userResolver {
	return &userResolver{u: r.t.Assignee}
}

// resolverError is reported as a GraphQL error entry with the error kind in
// its extensions.
type resolverError struct {
	msg  string
	kind apperr.Kind
}

func (e *resolverError) Error() string { return e.msg }

func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.kind.String()}
}

// toGraphQLError hides internal causes. Gate rejections keep their message.
func toGraphQLError(err error) error {
	return &resolverError{msg: apperr.PublicMessage(err), kind: apperr.KindOf(err)}
}
