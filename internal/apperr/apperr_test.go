package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesSentinelByKind(t *testing.T) {
	err := NotFound("readTodo", "todo %d doesn't exist", 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound match for %v", err)
	}
	if errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("unexpected ErrDuplicateUser match")
	}
	wrapped := fmt.Errorf("resolver: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected match through fmt wrapping")
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindUnavailable, "open", cause, "graph store unreachable")
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("kind lost")
	}
	if got := err.Error(); got != "open: graph store unreachable: dial tcp: refused" {
		t.Fatalf("unexpected message %q", got)
	}
	if Wrap(KindInternal, "x", nil, "y") != nil {
		t.Fatalf("nil cause must give nil error")
	}
}

func TestKindOfAndPublicMessage(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors are internal")
	}
	if PublicMessage(errors.New("secret detail")) != "internal error" {
		t.Fatalf("internal details must be masked")
	}
	err := New(KindDuplicateUser, "createUser", "username (%s) is already taken", "nora")
	if KindOf(err) != KindDuplicateUser {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if PublicMessage(err) != "username (nora) is already taken" {
		t.Fatalf("public message = %q", PublicMessage(err))
	}
}
