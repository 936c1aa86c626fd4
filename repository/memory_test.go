package repository

import (
	"context"
	"sync"
	"testing"

	"todoList/internal/testutil"
)

type fixedIDs struct{ next int64 }

func (f *fixedIDs) Next(context.Context) (int64, error) {
	f.next += 10
	return f.next, nil
}

func TestMemoryStorage_UsesInjectedAllocator(t *testing.T) {
	s := NewMemoryStorage(testutil.FastHasher(), &fixedIDs{})
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "nora", "pw")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	a, _ := s.CreateTodo(ctx, u, "a")
	b, _ := s.CreateTodo(ctx, u, "b")
	if a.ID != 10 || b.ID != 20 {
		t.Fatalf("ids = %d, %d; want 10, 20", a.ID, b.ID)
	}
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	s := NewMemoryStorage(testutil.FastHasher(), nil)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "nora", "pw")
	td, _ := s.CreateTodo(ctx, u, "original")
	td.Name = "mutated by caller"

	got, err := s.ReadTodo(ctx, u, td.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Name != "original" {
		t.Fatalf("caller mutation leaked into storage: %+v", got)
	}
}

func TestCounter_ConcurrentUnique(t *testing.T) {
	c := NewCounter(0)
	const n = 200
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := c.Next(context.Background())
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[int64]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d ids, want %d", len(seen), n)
	}
}
