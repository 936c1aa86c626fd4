package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware_InjectsResolvedUser(t *testing.T) {
	gate, tokens, _ := newTestGate(t)
	var seen string
	h := Middleware(gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := UserFromContext(r.Context()); ok {
			seen = u.Name
		}
	}))

	tok, _ := tokens.Issue("bob")
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "bob" {
		t.Fatalf("identity = %q, want bob", seen)
	}

	seen = ""
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))
	if seen != "" {
		t.Fatalf("anonymous request got identity %q", seen)
	}
}
