package auth

import (
	"context"
	"path"
	"unicode"
	"unicode/utf8"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewUnaryAuthInterceptor resolves the caller from the authorization
// metadata, puts it in the context and asks the gate whether the method may
// run. Method names map onto gate operations by lower-casing the first
// letter, so "/todolist.v1.TodoService/CreateUser" is "createUser".
// Full method names listed in bypass skip the gate entirely.
func NewUnaryAuthInterceptor(gate *Gate, bypass ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]struct{}, len(bypass))
	for _, m := range bypass {
		skip[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := skip[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		if u := gate.Resolve(ctx, TokenFromMD(ctx)); u != nil {
			ctx = WithUser(ctx, u)
		}
		if _, err := gate.Authorize(ctx, OperationName(info.FullMethod)); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
}

// OperationName converts a gRPC full method name into a gate operation name.
func OperationName(fullMethod string) string {
	m := path.Base(fullMethod)
	r, size := utf8.DecodeRuneInString(m)
	if r == utf8.RuneError {
		return m
	}
	return string(unicode.ToLower(r)) + m[size:]
}
