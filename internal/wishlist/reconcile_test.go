package wishlist

import (
	"testing"

	"github.com/angelmondragon/cartsync/internal/aggregate"
	"github.com/shopspring/decimal"
)

func saved(id, key, price string) Item {
	return Item{ID: id, OwnerID: "user-1", ProductKey: key, Name: key, Price: decimal.RequireFromString(price)}
}

func TestAddedReplacesSameIDInPlace(t *testing.T) {
	a := emptyAggregate()
	a = added(saved("a", "P1", "10"))(begin(FamilyAdd)(a))
	a = added(saved("b", "P2", "5"))(begin(FamilyAdd)(a))
	a = added(saved("a", "P1", "12"))(begin(FamilyAdd)(a))

	if len(a.List) != 2 {
		t.Fatalf("expected 2 items, got %d", len(a.List))
	}
	if a.List[0].ID != "a" || !a.List[0].Price.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected first entry replaced in place, got %+v", a.List[0])
	}
	if a.Status != aggregate.StatusIdle {
		t.Fatalf("expected idle, got %s", a.Status)
	}
}

func TestFetchedOverwritesAndRemovedDrops(t *testing.T) {
	a := emptyAggregate()
	a = added(saved("stale", "P9", "1"))(begin(FamilyAdd)(a))
	a = fetched([]Item{saved("a", "P1", "10"), saved("b", "P2", "5")})(begin(FamilyFetch)(a))
	if len(a.List) != 2 || a.Contains("P9") {
		t.Fatalf("fetch must replace the list, got %+v", a.List)
	}

	a = removed("a")(begin(FamilyRemove)(a))
	a = removed("missing")(begin(FamilyRemove)(a))
	if len(a.List) != 1 || a.List[0].ID != "b" {
		t.Fatalf("unexpected list after removals %+v", a.List)
	}
}

func TestFailureOnlyTouchesStatus(t *testing.T) {
	a := fetched([]Item{saved("a", "P1", "10")})(begin(FamilyFetch)(emptyAggregate()))
	a = failed(FamilyAdd, DuplicateMessage)(begin(FamilyAdd)(a))

	if len(a.List) != 1 {
		t.Fatalf("failure must keep the list, got %d items", len(a.List))
	}
	if a.Status != aggregate.StatusError || a.LastError != DuplicateMessage {
		t.Fatalf("unexpected state %s %q", a.Status, a.LastError)
	}

	a = begin(FamilyFetch)(a)
	if a.LastError != "" {
		t.Fatalf("begin must clear the previous error, got %q", a.LastError)
	}
}

func TestReconcilersDoNotMutateInput(t *testing.T) {
	base := fetched([]Item{saved("a", "P1", "10"), saved("b", "P2", "5")})(begin(FamilyFetch)(emptyAggregate()))
	snapshot := cloneAggregate(base)

	_ = added(saved("a", "P1", "99"))(base)
	_ = removed("b")(base)

	if len(base.List) != len(snapshot.List) {
		t.Fatalf("input list length changed")
	}
	for i := range base.List {
		if base.List[i].ID != snapshot.List[i].ID || !base.List[i].Price.Equal(snapshot.List[i].Price) {
			t.Fatalf("input item %d mutated: %+v", i, base.List[i])
		}
	}
}
