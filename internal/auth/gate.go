package auth

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"todoList/internal/apperr"
	"todoList/internal/metrics"
	"todoList/models"
	"todoList/repository"
)

// Operations that may run without an identity.
const (
	OpLogin      = "login"
	OpCreateUser = "createUser"
)

// ErrNotAuthorised is returned for every gated operation attempted without a
// valid identity.
var ErrNotAuthorised error = &apperr.Error{Kind: apperr.KindAuthorization, Message: "Not Authorised!"}

// Gate is the request-level authentication policy. It only decides whether
// an identity is present; ownership of individual todos is enforced by the
// storage backend.
type Gate struct {
	tokens *TokenService
	users  repository.UserReader
	allow  map[string]struct{}
	log    *log.Logger
}

// NewGate returns a gate that lets the named operations through without an
// identity. With no names given, login and createUser are allowed.
func NewGate(tokens *TokenService, users repository.UserReader, logger *log.Logger, allowUnauthenticated ...string) *Gate {
	if len(allowUnauthenticated) == 0 {
		allowUnauthenticated = []string{OpLogin, OpCreateUser}
	}
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, op := range allowUnauthenticated {
		allow[strings.TrimSpace(op)] = struct{}{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{tokens: tokens, users: users, allow: allow, log: logger}
}

// Resolve maps an authorization header value to a registered user. An empty,
// invalid or expired token, or one naming an unknown user, resolves to nil.
func (g *Gate) Resolve(ctx context.Context, authorization string) *models.User {
	raw := ExtractToken(authorization)
	if raw == "" {
		return nil
	}
	name, err := g.tokens.Verify(raw)
	if err != nil {
		g.log.Debug("token rejected", "err", err)
		return nil
	}
	u, err := g.users.ReadUser(ctx, name)
	if err != nil {
		g.log.Debug("token names no user", "user", name, "err", err)
		return nil
	}
	return u
}

// Authorize decides whether op may run for the identity stored in ctx. It
// returns that identity, which is nil for allow-listed operations called
// anonymously.
func (g *Gate) Authorize(ctx context.Context, op string) (*models.User, error) {
	u, ok := UserFromContext(ctx)
	if _, allowed := g.allow[op]; allowed {
		metrics.GateDecisions.WithLabelValues(op, "allowed").Inc()
		return u, nil
	}
	if !ok {
		metrics.GateDecisions.WithLabelValues(op, "rejected").Inc()
		g.log.Warn("unauthenticated call rejected", "op", op)
		return nil, ErrNotAuthorised
	}
	metrics.GateDecisions.WithLabelValues(op, "allowed").Inc()
	return u, nil
}
