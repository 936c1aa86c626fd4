package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "todolist.v1.TodoService"

// TodoServiceServer is the server API for todolist.v1.TodoService.
type TodoServiceServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	CreateUser(context.Context, *CreateUserRequest) (*CreateUserResponse, error)
	ReadTodos(context.Context, *ReadTodosRequest) (*ReadTodosResponse, error)
	CreateTodo(context.Context, *CreateTodoRequest) (*TodoResponse, error)
	UpdateTodo(context.Context, *UpdateTodoRequest) (*TodoResponse, error)
	DeleteTodo(context.Context, *DeleteTodoRequest) (*TodoResponse, error)
}

// TodoServiceDesc describes the service for grpc.Server.RegisterService.
var TodoServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TodoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", TodoServiceServer.Login),
		unary("CreateUser", TodoServiceServer.CreateUser),
		unary("ReadTodos", TodoServiceServer.ReadTodos),
		unary("CreateTodo", TodoServiceServer.CreateTodo),
		unary("UpdateTodo", TodoServiceServer.UpdateTodo),
		unary("DeleteTodo", TodoServiceServer.DeleteTodo),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterTodoServiceServer(s grpc.ServiceRegistrar, srv TodoServiceServer) {
	s.RegisterService(&TodoServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

// unary builds the method handler for call, running it through the server's
// interceptor chain when one is installed.
func unary[Req, Resp any](method string, call func(TodoServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TodoServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TodoServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// TodoServiceClient calls todolist.v1.TodoService using the JSON codec.
type TodoServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTodoServiceClient(cc grpc.ClientConnInterface) *TodoServiceClient {
	return &TodoServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TodoServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, "Login", in, opts)
}

func (c *TodoServiceClient) CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*CreateUserResponse, error) {
	return invoke[CreateUserResponse](ctx, c.cc, "CreateUser", in, opts)
}

func (c *TodoServiceClient) ReadTodos(ctx context.Context, in *ReadTodosRequest, opts ...grpc.CallOption) (*ReadTodosResponse, error) {
	return invoke[ReadTodosResponse](ctx, c.cc, "ReadTodos", in, opts)
}

func (c *TodoServiceClient) CreateTodo(ctx context.Context, in *CreateTodoRequest, opts ...grpc.CallOption) (*TodoResponse, error) {
	return invoke[TodoResponse](ctx, c.cc, "CreateTodo", in, opts)
}

func (c *TodoServiceClient) UpdateTodo(ctx context.Context, in *UpdateTodoRequest, opts ...grpc.CallOption) (*TodoResponse, error) {
	return invoke[TodoResponse](ctx, c.cc, "UpdateTodo", in, opts)
}

func (c *TodoServiceClient) DeleteTodo(ctx context.Context, in *DeleteTodoRequest, opts ...grpc.CallOption) (*TodoResponse, error) {
	return invoke[TodoResponse](ctx, c.cc, "DeleteTodo", in, opts)
}
