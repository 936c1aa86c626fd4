package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"todoList/internal/apperr"
	"todoList/internal/crypto"
	"todoList/models"
)

// GraphConfig locates the graph database.
type GraphConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// GraphStorage is the Neo4j backend. Users and todos are nodes, ownership is
// a (:User)-[:ASSIGNED_TO]->(:ToDo) relationship. Every call opens its own
// session and runs in a single explicit transaction.
type GraphStorage struct {
	cfg    GraphConfig
	hasher crypto.PasswordHasher
	driver neo4j.DriverWithContext
}

func NewGraphStorage(cfg GraphConfig, hasher crypto.PasswordHasher) *GraphStorage {
	return &GraphStorage{cfg: cfg, hasher: hasher}
}

var graphConstraints = []string{
	`CREATE CONSTRAINT user_name_unique IF NOT EXISTS FOR (u:User) REQUIRE u.name IS UNIQUE`,
	`CREATE CONSTRAINT todo_id_unique IF NOT EXISTS FOR (t:ToDo) REQUIRE t.id IS UNIQUE`,
	`CREATE CONSTRAINT sequence_name_unique IF NOT EXISTS FOR (s:Sequence) REQUIRE s.name IS UNIQUE`,
}

// Open connects to the database and establishes the uniqueness constraints.
func (s *GraphStorage) Open(ctx context.Context) error {
	if s.driver != nil {
		return nil
	}
	driver, err := neo4j.NewDriverWithContext(s.cfg.URI, neo4j.BasicAuth(s.cfg.Username, s.cfg.Password, ""))
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "open", err, "invalid graph store configuration")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return apperr.Wrap(apperr.KindUnavailable, "open", err, "graph store unreachable")
	}
	s.driver = driver
	for _, c := range graphConstraints {
		err := s.write(ctx, "open", func(tx neo4j.ExplicitTransaction) error {
			_, err := tx.Run(ctx, c, nil)
			return err
		})
		if err != nil {
			_ = s.Close(ctx)
			return err
		}
	}
	return nil
}

func (s *GraphStorage) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

func (s *GraphStorage) ClearStorage(ctx context.Context) error {
	// The id sequence survives so identifiers are never handed out twice.
	return s.write(ctx, "clearStorage", func(tx neo4j.ExplicitTransaction) error {
		_, err := tx.Run(ctx, `MATCH (n) WHERE n:User OR n:ToDo DETACH DELETE n`, nil)
		return err
	})
}

func (s *GraphStorage) CreateUser(ctx context.Context, name, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	err = s.write(ctx, "createUser", func(tx neo4j.ExplicitTransaction) error {
		_, err := tx.Run(ctx, `CREATE (:User {name: $name, hashedPassword: $hash})`,
			map[string]any{"name": name, "hash": hash})
		return err
	})
	if err != nil {
		if isGraphConstraintViolation(err) {
			return nil, errUserTaken("createUser", name)
		}
		return nil, err
	}
	return &models.User{Name: name, PasswordHash: hash}, nil
}

func (s *GraphStorage) ReadUser(ctx context.Context, name string) (*models.User, error) {
	var out *models.User
	err := s.read(ctx, "readUser", func(tx neo4j.ExplicitTransaction) error {
		records, err := collect(ctx, tx,
			`MATCH (u:User {name: $name}) RETURN u.name AS name, u.hashedPassword AS hash`,
			map[string]any{"name": name})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return errUserNotFound("readUser", name)
		}
		out = userFromRecord(records[0])
		return nil
	})
	return out, err
}

func (s *GraphStorage) ReadUsers(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	err := s.read(ctx, "readUsers", func(tx neo4j.ExplicitTransaction) error {
		records, err := collect(ctx, tx,
			`MATCH (u:User) RETURN u.name AS name, u.hashedPassword AS hash ORDER BY u.name`, nil)
		if err != nil {
			return err
		}
		for _, r := range records {
			out = append(out, *userFromRecord(r))
		}
		return nil
	})
	return out, err
}

// CreateTodo allocates the id from a (:Sequence) node inside the same
// transaction, so identifiers are unique across processes.
func (s *GraphStorage) CreateTodo(ctx context.Context, assignee *models.User, name string) (*models.ToDo, error) {
	if assignee == nil {
		return nil, errUnknownAssignee("createTodo", assignee)
	}
	var out *models.ToDo
	err := s.write(ctx, "createTodo", func(tx neo4j.ExplicitTransaction) error {
		records, err := collect(ctx, tx, `
			MATCH (u:User {name: $assignee})
			MERGE (seq:Sequence {name: 'todo'})
			ON CREATE SET seq.last = 0
			SET seq.last = seq.last + 1
			CREATE (u)-[:ASSIGNED_TO]->(t:ToDo {id: seq.last, name: $name, done: false})
			RETURN t.id AS id, t.name AS name, t.done AS done`,
			map[string]any{"assignee": assignee.Name, "name": name})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return errUnknownAssignee("createTodo", assignee)
		}
		out = todoFromRecord(records[0], *assignee)
		return nil
	})
	return out, err
}

func (s *GraphStorage) ReadTodos(ctx context.Context, assignee *models.User) ([]models.ToDo, error) {
	out := []models.ToDo{}
	if assignee == nil {
		return out, nil
	}
	err := s.read(ctx, "readTodos", func(tx neo4j.ExplicitTransaction) error {
		records, err := collect(ctx, tx, `
			MATCH (u:User {name: $assignee})-[:ASSIGNED_TO]->(t:ToDo)
			RETURN t.id AS id, t.name AS name, t.done AS done
			ORDER BY t.id`,
			map[string]any{"assignee": assignee.Name})
		if err != nil {
			return err
		}
		for _, r := range records {
			out = append(out, *todoFromRecord(r, *assignee))
		}
		return nil
	})
	return out, err
}

func (s *GraphStorage) ReadTodo(ctx context.Context, assignee *models.User, id int64) (*models.ToDo, error) {
	var out *models.ToDo
	err := s.read(ctx, "readTodo", func(tx neo4j.ExplicitTransaction) error {
		t, err := readOwnedNode(ctx, tx, "readTodo", assignee, id)
		out = t
		return err
	})
	return out, err
}

// UpdateTodo reads through the ownership check, then merges the ownership
// relationship and sets the mutated properties.
func (s *GraphStorage) UpdateTodo(ctx context.Context, assignee *models.User, id int64, patch models.ToDoPatch) (*models.ToDo, error) {
	var out *models.ToDo
	err := s.write(ctx, "updateTodo", func(tx neo4j.ExplicitTransaction) error {
		t, err := readOwnedNode(ctx, tx, "updateTodo", assignee, id)
		if err != nil {
			return err
		}
		if patch.Empty() {
			out = t
			return nil
		}
		patch.Apply(t)
		records, err := collect(ctx, tx, `
			MATCH (u:User {name: $assignee})
			MATCH (t:ToDo {id: $id})
			MERGE (u)-[:ASSIGNED_TO]->(t)
			SET t.name = $name, t.done = $done
			RETURN t.id AS id, t.name AS name, t.done AS done`,
			map[string]any{"assignee": assignee.Name, "id": id, "name": t.Name, "done": t.Done})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return errTodoNotFound("updateTodo", assignee, id)
		}
		out = todoFromRecord(records[0], *assignee)
		return nil
	})
	return out, err
}

func (s *GraphStorage) DeleteTodo(ctx context.Context, assignee *models.User, id int64) (*models.ToDo, error) {
	var out *models.ToDo
	err := s.write(ctx, "deleteTodo", func(tx neo4j.ExplicitTransaction) error {
		t, err := readOwnedNode(ctx, tx, "deleteTodo", assignee, id)
		if err != nil {
			return err
		}
		_, err = tx.Run(ctx,
			`MATCH (:User {name: $assignee})-[:ASSIGNED_TO]->(t:ToDo {id: $id}) DETACH DELETE t`,
			map[string]any{"assignee": assignee.Name, "id": id})
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func readOwnedNode(ctx context.Context, tx neo4j.ExplicitTransaction, op string, assignee *models.User, id int64) (*models.ToDo, error) {
	if assignee == nil {
		return nil, errTodoNotFound(op, assignee, id)
	}
	records, err := collect(ctx, tx, `
		MATCH (u:User {name: $assignee})-[:ASSIGNED_TO]->(t:ToDo {id: $id})
		RETURN t.id AS id, t.name AS name, t.done AS done`,
		map[string]any{"assignee": assignee.Name, "id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errTodoNotFound(op, assignee, id)
	}
	return todoFromRecord(records[0], *assignee), nil
}

func (s *GraphStorage) read(ctx context.Context, op string, work func(tx neo4j.ExplicitTransaction) error) error {
	return s.inTx(ctx, op, neo4j.AccessModeRead, work)
}

func (s *GraphStorage) write(ctx context.Context, op string, work func(tx neo4j.ExplicitTransaction) error) error {
	return s.inTx(ctx, op, neo4j.AccessModeWrite, work)
}

// inTx opens a session, runs work in one transaction and closes the session
// on every path. Driver errors are classified; errors produced by work that
// are already classified pass through.
func (s *GraphStorage) inTx(ctx context.Context, op string, mode neo4j.AccessMode, work func(tx neo4j.ExplicitTransaction) error) (err error) {
	if s.driver == nil {
		return apperr.New(apperr.KindUnavailable, op, "storage is not open")
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.cfg.Database})
	defer func() {
		if cerr := session.Close(ctx); cerr != nil && err == nil {
			err = classifyGraph(op, cerr)
		}
	}()

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return classifyGraph(op, err)
	}
	if err := work(tx); err != nil {
		_ = tx.Rollback(ctx)
		return classifyGraph(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyGraph(op, err)
	}
	return nil
}

func collect(ctx context.Context, tx neo4j.ExplicitTransaction, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func userFromRecord(r *neo4j.Record) *models.User {
	name, _ := r.Get("name")
	hash, _ := r.Get("hash")
	u := &models.User{}
	u.Name, _ = name.(string)
	u.PasswordHash, _ = hash.(string)
	return u
}

func todoFromRecord(r *neo4j.Record, assignee models.User) *models.ToDo {
	id, _ := r.Get("id")
	name, _ := r.Get("name")
	done, _ := r.Get("done")
	t := &models.ToDo{Assignee: assignee}
	t.ID, _ = id.(int64)
	t.Name, _ = name.(string)
	t.Done, _ = done.(bool)
	return t
}

func isGraphConstraintViolation(err error) bool {
	var ne *neo4j.Neo4jError
	return errors.As(err, &ne) && strings.HasSuffix(ne.Code, "ConstraintValidationFailed")
}

// classifyGraph keeps no-match, constraint and connectivity failures apart.
func classifyGraph(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if isGraphConstraintViolation(err) {
		return apperr.Wrap(apperr.KindConstraint, op, err, "constraint violation")
	}
	if neo4j.IsConnectivityError(err) {
		return apperr.Wrap(apperr.KindUnavailable, op, err, "graph store unreachable")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindUnavailable, op, err, "request cancelled")
	}
	return apperr.Wrap(apperr.KindInternal, op, err, op+" failed")
}
