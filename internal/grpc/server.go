package grpcserver

import (
	"context"
	"net"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"todoList/internal/apperr"
	"todoList/internal/auth"
	"todoList/internal/config"
	"todoList/internal/service"
	"todoList/models"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Server implements TodoService on top of the service layer. Callers are
// resolved by the auth interceptor before a handler runs.
type Server struct {
	Svc *service.TodoService
}

// NewServer returns a gRPC server with TodoService and the health service
// registered behind the auth interceptor.
func NewServer(svc *service.TodoService, gate *auth.Gate, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.UnaryInterceptor(auth.NewUnaryAuthInterceptor(gate, healthCheckMethod))}, opts...)
	srv := grpc.NewServer(opts...)
	RegisterTodoServiceServer(srv, &Server{Svc: svc})

	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC starts the gRPC server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, svc *service.TodoService, gate *auth.Gate, logger *log.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := NewServer(svc, gate)
	go func() {
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc serve", "err", err)
		}
	}()

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

func (s *Server) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	token, err := s.Svc.Login(ctx, req.Name, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LoginResponse{Token: token}, nil
}

func (s *Server) CreateUser(ctx context.Context, req *CreateUserRequest) (*CreateUserResponse, error) {
	u, err := s.Svc.CreateUser(ctx, req.Name, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateUserResponse{User: toUser(*u)}, nil
}

func (s *Server) ReadTodos(ctx context.Context, _ *ReadTodosRequest) (*ReadTodosResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	todos, err := s.Svc.ReadTodos(ctx, caller)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ReadTodosResponse{Todos: make([]*Todo, 0, len(todos))}
	for _, t := range todos {
		out.Todos = append(out.Todos, toTodo(t))
	}
	return out, nil
}

func (s *Server) CreateTodo(ctx context.Context, req *CreateTodoRequest) (*TodoResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.Svc.CreateTodo(ctx, caller, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TodoResponse{Todo: toTodo(*t)}, nil
}

func (s *Server) UpdateTodo(ctx context.Context, req *UpdateTodoRequest) (*TodoResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.Svc.UpdateTodo(ctx, caller, req.ID, models.ToDoPatch{Name: req.Name, Done: req.Done})
	if err != nil {
		return nil, toStatus(err)
	}
	return &TodoResponse{Todo: toTodo(*t)}, nil
}

func (s *Server) DeleteTodo(ctx context.Context, req *DeleteTodoRequest) (*TodoResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.Svc.DeleteTodo(ctx, caller, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TodoResponse{Todo: toTodo(*t)}, nil
}

// requireCaller returns the identity the interceptor put in ctx.
func requireCaller(ctx context.Context) (*models.User, error) {
	u, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, auth.ErrNotAuthorised.Error())
	}
	return u, nil
}

var kindCodes = map[apperr.Kind]codes.Code{
	apperr.KindNotFound:      codes.NotFound,
	apperr.KindDuplicateUser: codes.AlreadyExists,
	apperr.KindAuthorization: codes.Unauthenticated,
	apperr.KindInvalidInput:  codes.InvalidArgument,
	apperr.KindConstraint:    codes.FailedPrecondition,
	apperr.KindUnavailable:   codes.Unavailable,
}

func toStatus(err error) error {
	code, ok := kindCodes[apperr.KindOf(err)]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, apperr.PublicMessage(err))
}
