package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/cartsync/internal/docstore"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	id1, err := s.Create(ctx, "cart", docstore.Fields{"uid": "u1", "asin": "A", "amount": 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id2, err := s.Create(ctx, "cart", docstore.Fields{"uid": "u1", "asin": "B", "amount": 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, "cart", docstore.Fields{"uid": "u2", "asin": "A", "amount": 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	docs, err := s.Query(ctx, "cart", docstore.Eq("uid", "u1"))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != id1 || docs[1].ID != id2 {
		t.Fatalf("expected insertion ordered docs for u1, got %+v", docs)
	}

	if err := s.Update(ctx, "cart", id1, docstore.Fields{"amount": 5}); err != nil {
		t.Fatalf("update: %v", err)
	}
	docs, _ = s.Query(ctx, "cart", docstore.Eq("uid", "u1"), docstore.Eq("asin", "A"))
	if n, _ := docs[0].Fields.Int("amount"); n != 5 {
		t.Fatalf("expected merged amount 5, got %d", n)
	}
	if docs[0].Fields.String("uid") != "u1" {
		t.Fatalf("update should merge, not replace")
	}

	if err := s.Update(ctx, "cart", "missing", docstore.Fields{"amount": 1}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Delete(ctx, "cart", id1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "cart", id1); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}

	if err := s.BatchDelete(ctx, "cart", []string{id2, "missing"}); err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if s.Len("cart") != 1 {
		t.Fatalf("expected only the other user's doc to remain, got %d", s.Len("cart"))
	}
}

func TestQueryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Create(ctx, "wishlist", docstore.Fields{"uid": "u1", "name": "Lamp"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	docs, _ := s.Query(ctx, "wishlist")
	docs[0].Fields["name"] = "changed"

	docs, _ = s.Query(ctx, "wishlist")
	if docs[0].Fields.String("name") != "Lamp" {
		t.Fatalf("query results must not alias stored fields")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Query(ctx, "cart"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
