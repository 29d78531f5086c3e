package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/internal/docstore/memory"
	"github.com/angelmondragon/cartsync/internal/product"
	"github.com/angelmondragon/cartsync/internal/session"
	"github.com/shopspring/decimal"
)

var errBackend = errors.New("backend down")

// flakyStore wraps a docstore and fails selected calls on demand.
type flakyStore struct {
	docstore.Store

	mu         sync.Mutex
	failQuery  bool
	failBatch  bool
	blockQuery chan struct{}
	queryHit   chan struct{}

	// blockUpdate and afterQuery fire once and are then cleared.
	blockUpdate chan struct{}
	updateHit   chan struct{}
	afterQuery  func()
}

func (f *flakyStore) Query(ctx context.Context, coll string, filters ...docstore.Filter) ([]docstore.Document, error) {
	f.mu.Lock()
	fail, block, hit := f.failQuery, f.blockQuery, f.queryHit
	f.mu.Unlock()
	if hit != nil {
		hit <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if fail {
		return nil, errBackend
	}
	docs, err := f.Store.Query(ctx, coll, filters...)
	f.mu.Lock()
	after := f.afterQuery
	f.afterQuery = nil
	f.mu.Unlock()
	if after != nil {
		after()
	}
	return docs, err
}

func (f *flakyStore) Update(ctx context.Context, coll, id string, fields docstore.Fields) error {
	f.mu.Lock()
	block, hit := f.blockUpdate, f.updateHit
	f.blockUpdate, f.updateHit = nil, nil
	f.mu.Unlock()
	if hit != nil {
		hit <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return f.Store.Update(ctx, coll, id, fields)
}

func (f *flakyStore) BatchDelete(ctx context.Context, coll string, ids []string) error {
	f.mu.Lock()
	fail := f.failBatch
	f.mu.Unlock()
	if fail {
		return errBackend
	}
	return f.Store.BatchDelete(ctx, coll, ids)
}

func (f *flakyStore) set(fn func(*flakyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newTestEngine(t *testing.T, store docstore.Store, user string) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineParams{Store: store, Session: session.Static(user)})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func lamp(price string) product.Product {
	return product.Product{Key: "P1", Name: "Desk lamp", Price: decimal.RequireFromString(price)}
}

func assertTotals(t *testing.T, a Aggregate) {
	t.Helper()
	amount := 0
	total := decimal.Zero
	for _, item := range a.Items {
		if !item.TotalPrice.Equal(lineTotal(item.Price, item.Amount)) {
			t.Fatalf("line %s subtotal %s does not match price %s x %d", item.ProductKey, item.TotalPrice, item.Price, item.Amount)
		}
		amount += item.Amount
		total = total.Add(item.TotalPrice)
	}
	if a.TotalAmount != amount || !a.TotalPrice.Equal(total) {
		t.Fatalf("totals drifted: have %d/%s want %d/%s", a.TotalAmount, a.TotalPrice, amount, total)
	}
}

func newMemory() *memory.Store {
	return memory.New()
}
