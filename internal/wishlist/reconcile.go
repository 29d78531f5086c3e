package wishlist

import "github.com/angelmondragon/cartsync/internal/aggregate"

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

func fetched(items []Item) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		a.List = append(make([]Item, 0, len(items)), items...)
		a.SyncState = a.SyncState.Succeed(FamilyFetch)
		return a
	}
}

// added appends item, replacing an entry that already carries its id.
func added(item Item) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		out := make([]Item, 0, len(a.List)+1)
		replaced := false
		for _, existing := range a.List {
			if existing.ID == item.ID {
				existing, replaced = item, true
			}
			out = append(out, existing)
		}
		if !replaced {
			out = append(out, item)
		}
		a.List = out
		a.SyncState = a.SyncState.Succeed(FamilyAdd)
		return a
	}
}

func removed(id string) func(Aggregate) Aggregate {
	return func(a Aggregate) Aggregate {
		out := make([]Item, 0, len(a.List))
		for _, existing := range a.List {
			if existing.ID != id {
				out = append(out, existing)
			}
		}
		a.List = out
		a.SyncState = a.SyncState.Succeed(FamilyRemove)
		return a
	}
}
