package cart

import (
	"github.com/angelmondragon/cartsync/internal/aggregate"
	"github.com/shopspring/decimal"
)

// Reconcilers map the current aggregate and a settled outcome to the next
// aggregate. They never mutate their input and always re-derive totals.

func begin(f aggregate.Family) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		a.SyncState = a.SyncState.Begin(f)
		return a
	}
}

func failed(f aggregate.Family, reason string) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		a.SyncState = a.SyncState.Fail(f, reason)
		return a
	}
}

func fetched(items []LineItem) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		a.Items = append(make([]LineItem, 0, len(items)), items...)
		a.SyncState = a.SyncState.Succeed(FamilyFetch)
		return withTotals(a)
	}
}

// added overwrites the local line with the authoritative merged item, or
// appends it when the line is new locally.
func added(item LineItem) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		a.Items = upsert(a.Items, item)
		a.SyncState = a.SyncState.Succeed(FamilyAdd)
		return withTotals(a)
	}
}

func decremented(res DecrementResult) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		if res.Removed {
			a.Items = without(a.Items, res.Item.ID)
		} else {
			a.Items = upsert(a.Items, res.Item)
		}
		a.SyncState = a.SyncState.Succeed(FamilyDecrement)
		return withTotals(a)
	}
}

func removed(id string) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		a.Items = without(a.Items, id)
		a.SyncState = a.SyncState.Succeed(FamilyRemove)
		return withTotals(a)
	}
}

func cleared(a Aggregate) Aggregate {
	a.Items = []LineItem{}
	a.SyncState = a.SyncState.Succeed(FamilyClear)
	return withTotals(a)
}

func withTotals(a Aggregate) Aggregate {
	amount := 0
	total := decimal.Zero
	for _, item := range a.Items {
		amount += item.Amount
		total = total.Add(item.TotalPrice)
	}
	a.TotalAmount = amount
	a.TotalPrice = total
	return a
}

func upsert(items []LineItem, item LineItem) []LineItem {
	out := make([]LineItem, 0, len(items)+1)
	replaced := false
	for _, existing := range items {
		if !replaced && (existing.ID == item.ID || existing.ProductKey == item.ProductKey) {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, item)
	}
	return out
}

func without(items []LineItem, id string) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
