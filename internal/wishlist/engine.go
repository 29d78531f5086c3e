// Package wishlist keeps the signed-in user's wishlist in step with the
// remote wishlist collection.
package wishlist

import (
	"context"
	"time"

	"github.com/angelmondragon/cartsync/internal/aggregate"
	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/internal/keylock"
	"github.com/angelmondragon/cartsync/internal/product"
	"github.com/angelmondragon/cartsync/internal/session"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
)

var ErrClosed = pkgerrors.New(pkgerrors.CodeStateConflict, "wishlist engine closed")

type EngineParams struct {
	Store            docstore.Store
	Session          session.Provider
	Locker           keylock.Locker
	Logger           *logger.Logger
	Metrics          *metrics.SyncMetrics
	Collection       string
	OperationTimeout time.Duration
}

// Engine owns the wishlist aggregate. AddUnique is serialized on the full
// uniqueness tuple so two identical saves cannot both pass the check.
type Engine struct {
	remote  *Remote
	session session.Provider
	locker  keylock.Locker
	store   *aggregate.Store[Aggregate]
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
	timeout time.Duration
	unsub   func()
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist engine requires a session provider")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	remote, err := NewRemote(params.Store, params.Collection, logg)
	if err != nil {
		return nil, err
	}
	locker := params.Locker
	if locker == nil {
		locker = keylock.NewLocal()
	}

	e := &Engine{
		remote:  remote,
		session: params.Session,
		locker:  locker,
		store:   aggregate.NewStore(emptyAggregate(), cloneAggregate),
		logg:    logg,
		metrics: params.Metrics,
		timeout: params.OperationTimeout,
	}
	e.unsub = e.store.Subscribe(func(a Aggregate) {
		e.metrics.SetItems(engineName, len(a.List))
	})
	return e, nil
}

func (e *Engine) Snapshot() Aggregate {
	return e.store.Snapshot()
}

func (e *Engine) Subscribe(fn func(Aggregate)) func() {
	return e.store.Subscribe(fn)
}

// Fetch replaces the list with the remote collection.
func (e *Engine) Fetch(ctx context.Context) error {
	return e.run(ctx, FamilyFetch, "", func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		items, err := e.remote.FetchAll(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		return fetched(items), nil
	})
}

// Add saves p, failing with DUPLICATE_ITEM when an identical entry exists.
func (e *Engine) Add(ctx context.Context, p product.Product) (Item, error) {
	var item Item
	n := p.Normalize()
	key := keylock.Key(n.Name, n.Price.String(), n.Key)
	err := e.run(ctx, FamilyAdd, key, func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		var err error
		item, err = e.remote.AddUnique(ctx, ownerID, p)
		if err != nil {
			return nil, err
		}
		return added(item), nil
	})
	return item, err
}

// Remove deletes the entry with id. Removing an absent entry succeeds.
func (e *Engine) Remove(ctx context.Context, id string) error {
	return e.run(ctx, FamilyRemove, "", func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		if err := e.remote.RemoveByID(ctx, ownerID, id); err != nil {
			return nil, err
		}
		return removed(id), nil
	})
}

// Reset clears the local list, typically on sign-out.
func (e *Engine) Reset() {
	e.store.Reset(emptyAggregate())
}

func (e *Engine) Close() {
	if e.unsub != nil {
		e.unsub()
	}
	e.store.Close()
}

type operation func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error)

func (e *Engine) run(ctx context.Context, family aggregate.Family, key string, op operation) error {
	if e.store.Closed() {
		return ErrClosed
	}
	started := time.Now()
	ctx = e.logg.WithOperation(ctx, engineName, string(family))
	gen := e.store.Generation()
	e.store.Apply(gen, begin(family))

	ownerID, _ := e.session.CurrentUserID()
	if ownerID != "" {
		ctx = e.logg.WithUserID(ctx, ownerID)
	}

	settle := func(err error, next func(Aggregate) Aggregate) error {
		e.metrics.ObserveDuration(engineName, string(family), time.Since(started))
		if err != nil {
			err = unavailable(err)
			e.metrics.IncFailure(engineName, string(family), string(pkgerrors.CodeOf(err)))
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "wishlist operation failed")
			next = failed(family, pkgerrors.Reason(err))
		} else {
			e.metrics.IncSuccess(engineName, string(family))
			e.logg.Debug(ctx, "wishlist operation settled")
		}
		if !e.store.Apply(gen, next) {
			e.metrics.IncDiscarded(engineName, string(family))
			e.logg.Debug(ctx, "discarded stale wishlist outcome")
		}
		return err
	}

	if ownerID != "" && key != "" {
		unlock, err := e.locker.Lock(ctx, keylock.Key(engineName, ownerID, key))
		if err != nil {
			return settle(err, nil)
		}
		defer unlock()
	}

	opCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	next, err := op(opCtx, ownerID)
	return settle(err, next)
}
