package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"todoList/internal/apperr"
	"todoList/internal/auth"
	"todoList/internal/logger"
	"todoList/internal/service"
	"todoList/internal/testutil"
	"todoList/models"
	"todoList/repository"
)

// newTestDeps builds the service and gate over an in-memory backend.
func newTestDeps(t *testing.T) (*service.TodoService, *auth.Gate) {
	t.Helper()
	hasher := testutil.FastHasher()
	store := repository.NewMemoryStorage(hasher, nil)
	tokens := auth.NewTokenService("grpc-secret", time.Hour)
	lg := logger.Discard()
	return service.NewTodoService(store, tokens, hasher, lg), auth.NewGate(tokens, store, lg)
}

// dialBufconn starts a server on an in-process listener and returns a client for it.
func dialBufconn(t *testing.T) (*TodoServiceClient, *grpc.ClientConn) {
	t.Helper()
	svc, gate := newTestDeps(t)
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(svc, gate)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewTodoServiceClient(conn), conn
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestTodoService_EndToEnd(t *testing.T) {
	client, _ := dialBufconn(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range []string{"ralph", "nora"} {
		if _, err := client.CreateUser(ctx, &CreateUserRequest{Name: name, Password: name}); err != nil {
			t.Fatalf("CreateUser(%s): %v", name, err)
		}
	}
	if _, err := client.CreateUser(ctx, &CreateUserRequest{Name: "nora", Password: "x"}); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("duplicate user: want AlreadyExists, got %v", err)
	}

	if _, err := client.CreateTodo(ctx, &CreateTodoRequest{Name: "sneaky"}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous CreateTodo: want Unauthenticated, got %v", err)
	} else if st, _ := status.FromError(err); st.Message() != "Not Authorised!" {
		t.Fatalf("anonymous CreateTodo message = %q", st.Message())
	}

	if _, err := client.Login(ctx, &LoginRequest{Name: "nora", Password: "wrong"}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("bad login: want Unauthenticated, got %v", err)
	}
	noraLogin, err := client.Login(ctx, &LoginRequest{Name: "nora", Password: "nora"})
	if err != nil {
		t.Fatalf("Login(nora): %v", err)
	}
	ralphLogin, err := client.Login(ctx, &LoginRequest{Name: "ralph", Password: "ralph"})
	if err != nil {
		t.Fatalf("Login(ralph): %v", err)
	}
	nora := withToken(ctx, noraLogin.Token)
	ralph := withToken(ctx, ralphLogin.Token)

	created, err := client.CreateTodo(nora, &CreateTodoRequest{Name: "first todo"})
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if created.Todo.Assignee.Name != "nora" || created.Todo.Done {
		t.Fatalf("created = %+v", created.Todo)
	}
	id := created.Todo.ID

	done := true
	if _, err := client.UpdateTodo(ralph, &UpdateTodoRequest{ID: id, Done: &done}); status.Code(err) != codes.NotFound {
		t.Fatalf("ralph update: want NotFound, got %v", err)
	}
	updated, err := client.UpdateTodo(nora, &UpdateTodoRequest{ID: id, Done: &done})
	if err != nil || !updated.Todo.Done || updated.Todo.Name != "first todo" {
		t.Fatalf("nora update: %+v err=%v", updated, err)
	}

	list, err := client.ReadTodos(ralph, &ReadTodosRequest{})
	if err != nil || len(list.Todos) != 0 {
		t.Fatalf("ralph's todos = %+v err=%v", list, err)
	}
	list, err = client.ReadTodos(nora, &ReadTodosRequest{})
	if err != nil || len(list.Todos) != 1 || list.Todos[0].ID != id {
		t.Fatalf("nora's todos = %+v err=%v", list, err)
	}

	if _, err := client.DeleteTodo(ralph, &DeleteTodoRequest{ID: id}); status.Code(err) != codes.NotFound {
		t.Fatalf("ralph delete: want NotFound, got %v", err)
	}
	deleted, err := client.DeleteTodo(nora, &DeleteTodoRequest{ID: id})
	if err != nil || deleted.Todo.ID != id {
		t.Fatalf("nora delete: %+v err=%v", deleted, err)
	}
	if _, err := client.DeleteTodo(nora, &DeleteTodoRequest{ID: id}); status.Code(err) != codes.NotFound {
		t.Fatalf("second delete: want NotFound, got %v", err)
	}
}

func TestHealthCheckBypassesGate(t *testing.T) {
	_, conn := dialBufconn(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}

func TestServer_DirectCalls(t *testing.T) {
	svc, _ := newTestDeps(t)
	s := &Server{Svc: svc}
	ctx := context.Background()

	if _, err := s.ReadTodos(ctx, &ReadTodosRequest{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("no caller: want Unauthenticated, got %v", err)
	}
	if _, err := s.CreateUser(ctx, &CreateUserRequest{Name: "", Password: "pw"}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("empty name: want InvalidArgument, got %v", err)
	}

	u, err := s.CreateUser(ctx, &CreateUserRequest{Name: "bob", Password: "pw"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	caller := auth.WithUser(ctx, &models.User{Name: u.User.Name})
	resp, err := s.CreateTodo(caller, &CreateTodoRequest{Name: "write tests"})
	if err != nil || resp.Todo.Assignee.Name != "bob" {
		t.Fatalf("CreateTodo: %+v err=%v", resp, err)
	}

	// Ids that cannot exist answer like any todo the caller does not own.
	done := true
	if _, err := s.UpdateTodo(caller, &UpdateTodoRequest{ID: 0, Done: &done}); status.Code(err) != codes.NotFound {
		t.Fatalf("update id 0: want NotFound, got %v", err)
	}
	if _, err := s.DeleteTodo(caller, &DeleteTodoRequest{ID: -1}); status.Code(err) != codes.NotFound {
		t.Fatalf("delete id -1: want NotFound, got %v", err)
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
		msg  string
	}{
		{apperr.NotFound("readTodo", "todo 3 missing"), codes.NotFound, "todo 3 missing"},
		{apperr.New(apperr.KindDuplicateUser, "createUser", "taken"), codes.AlreadyExists, "taken"},
		{auth.ErrNotAuthorised, codes.Unauthenticated, "Not Authorised!"},
		{apperr.Wrap(apperr.KindUnavailable, "open", errors.New("dial tcp"), "storage unavailable"), codes.Unavailable, "storage unavailable"},
		{errors.New("boom"), codes.Internal, "internal error"},
	}
	for _, c := range cases {
		st, _ := status.FromError(toStatus(c.err))
		if st.Code() != c.code || st.Message() != c.msg {
			t.Fatalf("toStatus(%v) = %v %q, want %v %q", c.err, st.Code(), st.Message(), c.code, c.msg)
		}
	}
}
