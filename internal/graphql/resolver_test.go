package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todoList/internal/auth"
	"todoList/internal/crypto"
	"todoList/internal/logger"
	"todoList/internal/service"
	"todoList/internal/testutil"
	"todoList/repository"
)

const (
	readTodosQuery     = `query { readTodos { id name done assignee { name } } }`
	loginMutation      = `mutation Login($name: String!, $password: String!) { login(name: $name, password: $password) }`
	createTodoMutation = `mutation CreateTodo($name: String!) { createTodo(name: $name) { id name done assignee { name } } }`
	updateTodoMutation = `mutation UpdateTodo($id: Int!, $name: String, $done: Boolean) { updateTodo(id: $id, name: $name, done: $done) { id name done assignee { name } } }`
	deleteTodoMutation = `mutation DeleteTodo($id: Int!) { deleteTodo(id: $id) { id name done assignee { name } } }`
	createUserMutation = `mutation CreateUser($name: String!, $password: String!) { createUser(name: $name, password: $password) { name } }`
)

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

type todoJSON struct {
	ID       int32  `json:"id"`
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Assignee struct {
		Name string `json:"name"`
	} `json:"assignee"`
}

type testServer struct {
	srv    *httptest.Server
	tokens *auth.TokenService
}

// newTestServer builds the API over an in-memory backend holding ralph and
// nora, with "first todo" for nora and "second todo" for ralph.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hasher := testutil.FastHasher()
	store := repository.NewMemoryStorage(hasher, nil)
	ctx := context.Background()
	ralph, err := store.CreateUser(ctx, "ralph", "ralph")
	if err != nil {
		t.Fatalf("create ralph: %v", err)
	}
	nora, err := store.CreateUser(ctx, "nora", "nora")
	if err != nil {
		t.Fatalf("create nora: %v", err)
	}
	if _, err := store.CreateTodo(ctx, nora, "first todo"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.CreateTodo(ctx, ralph, "second todo"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	return newTestServerFor(t, store, hasher)
}

func newTestServerFor(t *testing.T, store repository.Storage, hasher crypto.PasswordHasher) *testServer {
	t.Helper()
	tokens := auth.NewTokenService("graphql-secret", time.Hour)
	lg := logger.Discard()
	gate := auth.NewGate(tokens, store, lg)
	h, err := NewHandler(service.NewTodoService(store, tokens, hasher, lg), gate, lg)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, tokens: tokens}
}

func (ts *testServer) do(t *testing.T, token, query string, vars map[string]any) gqlResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"query": query, "variables": vars})
	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func (ts *testServer) token(t *testing.T, name string) string {
	t.Helper()
	tok, err := ts.tokens.Issue(name)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func decodeField[T any](t *testing.T, resp gqlResponse, field string) *T {
	t.Helper()
	raw, ok := resp.Data[field]
	if !ok || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", field, err)
	}
	return &v
}

func TestUnauthenticatedCallsAreRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "", createTodoMutation, map[string]any{"name": "sneaky"})
	if len(resp.Errors) != 1 || resp.Errors[0].Message != "Not Authorised!" {
		t.Fatalf("errors = %+v", resp.Errors)
	}
	if got := decodeField[todoJSON](t, resp, "createTodo"); got != nil {
		t.Fatalf("createTodo data = %+v, want null", got)
	}

	resp = ts.do(t, "I'm not a valid token", deleteTodoMutation, map[string]any{"id": 1})
	if len(resp.Errors) != 1 || resp.Errors[0].Message != "Not Authorised!" {
		t.Fatalf("garbage token: errors = %+v", resp.Errors)
	}

	resp = ts.do(t, "", readTodosQuery, nil)
	if len(resp.Errors) != 1 || resp.Errors[0].Message != "Not Authorised!" {
		t.Fatalf("readTodos: errors = %+v", resp.Errors)
	}
}

func TestLoginAndCreateUserNeedNoToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "", createUserMutation, map[string]any{"name": "carl", "password": "secret"})
	if len(resp.Errors) != 0 {
		t.Fatalf("createUser errors: %+v", resp.Errors)
	}
	if u := decodeField[struct{ Name string }](t, resp, "createUser"); u == nil || u.Name != "carl" {
		t.Fatalf("createUser = %+v", u)
	}

	resp = ts.do(t, "", loginMutation, map[string]any{"name": "carl", "password": "secret"})
	tok := decodeField[string](t, resp, "login")
	if tok == nil || *tok == "" {
		t.Fatalf("login = %+v errors=%+v", tok, resp.Errors)
	}
	if name, err := ts.tokens.Verify(*tok); err != nil || name != "carl" {
		t.Fatalf("login token: name=%q err=%v", name, err)
	}

	resp = ts.do(t, "Bearer "+*tok, readTodosQuery, nil)
	todos := decodeField[[]todoJSON](t, resp, "readTodos")
	if todos == nil || len(*todos) != 0 {
		t.Fatalf("carl's todos = %+v errors=%+v", todos, resp.Errors)
	}

	resp = ts.do(t, "", loginMutation, map[string]any{"name": "carl", "password": "nope"})
	if len(resp.Errors) != 1 || decodeField[string](t, resp, "login") != nil {
		t.Fatalf("bad login: %+v", resp)
	}

	resp = ts.do(t, "", createUserMutation, map[string]any{"name": "carl", "password": "again"})
	if len(resp.Errors) != 1 || resp.Errors[0].Extensions["code"] != "DUPLICATE_USER" {
		t.Fatalf("duplicate createUser: %+v", resp.Errors)
	}
}

func TestUsersOnlySeeAndChangeTheirOwnTodos(t *testing.T) {
	ts := newTestServer(t)
	ralph := ts.token(t, "ralph")
	nora := ts.token(t, "nora")

	resp := ts.do(t, nora, readTodosQuery, nil)
	todos := decodeField[[]todoJSON](t, resp, "readTodos")
	if todos == nil || len(*todos) != 1 || (*todos)[0].Name != "first todo" || (*todos)[0].Assignee.Name != "nora" {
		t.Fatalf("nora's todos = %+v errors=%+v", todos, resp.Errors)
	}
	noraID := (*todos)[0].ID

	resp = ts.do(t, ralph, updateTodoMutation, map[string]any{"id": noraID, "name": "hijacked"})
	if len(resp.Errors) != 1 || resp.Errors[0].Extensions["code"] != "NOT_FOUND" {
		t.Fatalf("ralph updating nora's todo: %+v", resp.Errors)
	}
	if got := decodeField[todoJSON](t, resp, "updateTodo"); got != nil {
		t.Fatalf("update data = %+v, want null", got)
	}
	resp = ts.do(t, ralph, deleteTodoMutation, map[string]any{"id": noraID})
	if len(resp.Errors) != 1 {
		t.Fatalf("ralph deleting nora's todo: %+v", resp)
	}

	resp = ts.do(t, "Bearer "+nora, updateTodoMutation, map[string]any{"id": noraID, "done": true})
	updated := decodeField[todoJSON](t, resp, "updateTodo")
	if updated == nil || !updated.Done || updated.Name != "first todo" {
		t.Fatalf("nora's update = %+v errors=%+v", updated, resp.Errors)
	}

	resp = ts.do(t, ralph, createTodoMutation, map[string]any{"name": "third todo"})
	created := decodeField[todoJSON](t, resp, "createTodo")
	if created == nil || created.Assignee.Name != "ralph" || created.Done {
		t.Fatalf("ralph's create = %+v errors=%+v", created, resp.Errors)
	}

	resp = ts.do(t, ralph, deleteTodoMutation, map[string]any{"id": created.ID})
	deleted := decodeField[todoJSON](t, resp, "deleteTodo")
	if deleted == nil || deleted.ID != created.ID {
		t.Fatalf("ralph's delete = %+v errors=%+v", deleted, resp.Errors)
	}
	resp = ts.do(t, ralph, readTodosQuery, nil)
	if todos := decodeField[[]todoJSON](t, resp, "readTodos"); todos == nil || len(*todos) != 1 {
		t.Fatalf("ralph's todos after delete = %+v", todos)
	}
}

func TestHandlerRejectsGet(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestIDsBeyondIntRangeAreReportedNotWrapped(t *testing.T) {
	hasher := testutil.FastHasher()
	store := repository.NewMemoryStorage(hasher, repository.NewCounter(1<<31))
	ralph, err := store.CreateUser(context.Background(), "ralph", "ralph")
	if err != nil {
		t.Fatalf("create ralph: %v", err)
	}
	ts := newTestServerFor(t, store, hasher)
	tok := ts.token(t, ralph.Name)

	resp := ts.do(t, tok, createTodoMutation, map[string]any{"name": "big"})
	if len(resp.Errors) != 1 || resp.Errors[0].Extensions["code"] != "CONSTRAINT" {
		t.Fatalf("createTodo errors = %+v", resp.Errors)
	}
	if got := decodeField[todoJSON](t, resp, "createTodo"); got != nil {
		t.Fatalf("createTodo data = %+v, want null", got)
	}

	resp = ts.do(t, tok, readTodosQuery, nil)
	if len(resp.Errors) != 1 || resp.Errors[0].Extensions["code"] != "CONSTRAINT" {
		t.Fatalf("readTodos errors = %+v", resp.Errors)
	}
	if got := decodeField[[]todoJSON](t, resp, "readTodos"); got != nil {
		t.Fatalf("readTodos data = %+v, want null", got)
	}
}
