package wishlist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/cartsync/internal/aggregate"
	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/internal/docstore/memory"
	"github.com/angelmondragon/cartsync/internal/product"
	"github.com/angelmondragon/cartsync/internal/session"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type failingQueries struct {
	docstore.Store
}

func (failingQueries) Query(context.Context, string, ...docstore.Filter) ([]docstore.Document, error) {
	return nil, errors.New("backend down")
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

func headphones() product.Product {
	return product.Product{Key: "B07", Name: "Headphones", Price: decimal.RequireFromString("59.90")}
}

func TestAddRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := newTestEngine(t, store, "user-1")

	if _, err := engine.Add(ctx, headphones()); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := engine.Add(ctx, headphones())
	if !pkgerrors.Is(err, pkgerrors.CodeDuplicateItem) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	snap := engine.Snapshot()
	if len(snap.List) != 1 {
		t.Fatalf("duplicate must not grow the list, got %d", len(snap.List))
	}
	if snap.Status != aggregate.StatusError || snap.LastError != DuplicateMessage {
		t.Fatalf("unexpected state %+v", snap.SyncState)
	}
	if store.Len(DefaultCollection) != 1 {
		t.Fatalf("expected one remote document, got %d", store.Len(DefaultCollection))
	}
}

func TestAddAllowsDifferentPrice(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, memory.New(), "user-1")

	if _, err := engine.Add(ctx, headphones()); err != nil {
		t.Fatalf("add: %v", err)
	}
	cheaper := headphones()
	cheaper.Price = decimal.RequireFromString("49.90")
	if _, err := engine.Add(ctx, cheaper); err != nil {
		t.Fatalf("add at a new price: %v", err)
	}
	if got := len(engine.Snapshot().List); got != 2 {
		t.Fatalf("expected two entries, got %d", got)
	}
}

func TestConcurrentDuplicateAddsKeepOneEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := newTestEngine(t, store, "user-1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	dupes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Add(ctx, headphones())
			if pkgerrors.Is(err, pkgerrors.CodeDuplicateItem) {
				mu.Lock()
				dupes++
				mu.Unlock()
			} else if err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	if dupes != 9 || store.Len(DefaultCollection) != 1 {
		t.Fatalf("expected one save and nine duplicates, got %d duplicates and %d documents", dupes, store.Len(DefaultCollection))
	}
}

func TestFetchAndRemove(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := newTestEngine(t, store, "user-1")
	item, err := writer.Add(ctx, headphones())
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	reader := newTestEngine(t, store, "user-1")
	if err := reader.Fetch(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	snap := reader.Snapshot()
	if len(snap.List) != 1 || snap.List[0].ID != item.ID || !snap.List[0].Price.Equal(item.Price) {
		t.Fatalf("unexpected fetched list %+v", snap.List)
	}
	if !snap.Contains("B07") {
		t.Fatalf("expected Contains to find the saved product")
	}

	if err := reader.Remove(ctx, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := reader.Remove(ctx, item.ID); err != nil {
		t.Fatalf("second remove should succeed, got %v", err)
	}
	if len(reader.Snapshot().List) != 0 {
		t.Fatalf("expected empty list")
	}
}

func TestFetchFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	engine := newTestEngine(t, mem, "user-1")
	if _, err := engine.Add(ctx, headphones()); err != nil {
		t.Fatalf("add: %v", err)
	}

	broken := newTestEngine(t, failingQueries{Store: mem}, "user-1")
	err := broken.Fetch(ctx)
	if !pkgerrors.Is(err, pkgerrors.CodeRemoteUnavailable) {
		t.Fatalf("expected remote unavailable, got %v", err)
	}
	if snap := broken.Snapshot(); snap.Status != aggregate.StatusError || len(snap.List) != 0 {
		t.Fatalf("unexpected state after failed fetch %+v", snap)
	}
}

func TestResetClearsList(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, memory.New(), "user-1")
	if _, err := engine.Add(ctx, headphones()); err != nil {
		t.Fatalf("add: %v", err)
	}

	notified := 0
	engine.Subscribe(func(a Aggregate) {
		if len(a.List) == 0 {
			notified++
		}
	})
	engine.Reset()
	if len(engine.Snapshot().List) != 0 || notified != 1 {
		t.Fatalf("reset must empty the list and notify once, notified=%d", notified)
	}
}

func TestRequiresSignedInUser(t *testing.T) {
	engine := newTestEngine(t, memory.New(), "")
	if _, err := engine.Add(context.Background(), headphones()); !pkgerrors.Is(err, pkgerrors.CodeNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if err := engine.Fetch(context.Background()); !pkgerrors.Is(err, pkgerrors.CodeNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
}

func TestClosedEngine(t *testing.T) {
	engine := newTestEngine(t, memory.New(), "user-1")
	engine.Close()
	if _, err := engine.Add(context.Background(), headphones()); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestEngineReportsItemCountOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine, err := NewEngine(EngineParams{
		Store:   memory.New(),
		Session: session.Static("user-1"),
		Metrics: metrics.NewSyncMetrics(reg),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := engine.Add(context.Background(), headphones()); err != nil {
		t.Fatalf("add: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var items float64
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := m.GetLabel()
			if len(labels) != 1 || labels[0].GetValue() != engineName {
				continue
			}
			switch mf.GetName() {
			case "sync_aggregate_items":
				items = m.GetGauge().GetValue()
			case "sync_aggregate_quantity":
				t.Fatalf("wishlist must not publish a quantity, got %f", m.GetGauge().GetValue())
			}
		}
	}
	if items != 1 {
		t.Fatalf("expected items gauge 1, got %f", items)
	}
}
