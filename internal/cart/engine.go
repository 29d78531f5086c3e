// Package cart keeps the signed-in user's cart aggregate in step with the
// remote cart collection.
package cart

import (
	"context"
	"strings"
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

// ErrClosed is returned by every operation once the engine has been closed.
var ErrClosed = pkgerrors.New(pkgerrors.CodeStateConflict, "cart engine closed")

// EngineParams groups the engine's collaborators.
type EngineParams struct {
	Store            docstore.Store
	Session          session.Provider
	Locker           keylock.Locker
	Logger           *logger.Logger
	Metrics          *metrics.SyncMetrics
	Collection       string
	OperationTimeout time.Duration
}

// Engine serializes same-product operations through Locker and funnels every
// settled outcome through a single aggregate store.
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
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart engine requires a session provider")
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
		e.metrics.SetAggregate(engineName, len(a.Items), a.TotalAmount)
	})
	return e, nil
}

// Snapshot returns a copy of the current cart.
func (e *Engine) Snapshot() Aggregate {
	return e.store.Snapshot()
}

// Subscribe calls fn with a fresh snapshot after every settled change.
func (e *Engine) Subscribe(fn func(Aggregate)) func() {
	return e.store.Subscribe(fn)
}

// Fetch replaces the cart with the remote collection.
func (e *Engine) Fetch(ctx context.Context) error {
	return e.run(ctx, FamilyFetch, "", func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		items, err := e.remote.FetchAll(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		return fetched(items), nil
	})
}

// Add adds quantity units of p, merging into an existing line.
func (e *Engine) Add(ctx context.Context, p product.Product, quantity int) (LineItem, error) {
	var item LineItem
	err := e.run(ctx, FamilyAdd, p.Normalize().Key, func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		var err error
		item, err = e.remote.AddOrIncrement(ctx, ownerID, p, quantity)
		if err != nil {
			return nil, err
		}
		return added(item), nil
	})
	return item, err
}

// Decrement removes one unit of productKey, dropping the line at zero.
func (e *Engine) Decrement(ctx context.Context, productKey string) (DecrementResult, error) {
	// Lock on the same key Add uses for this product.
	productKey = strings.TrimSpace(productKey)
	var res DecrementResult
	err := e.run(ctx, FamilyDecrement, productKey, func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		var err error
		res, err = e.remote.DecrementOrRemove(ctx, ownerID, productKey)
		if err != nil {
			return nil, err
		}
		return decremented(res), nil
	})
	return res, err
}

// Remove deletes the line with id. Removing an absent line succeeds.
func (e *Engine) Remove(ctx context.Context, id string) error {
	return e.run(ctx, FamilyRemove, "", func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		if err := e.remote.RemoveByID(ctx, ownerID, id); err != nil {
			return nil, err
		}
		return removed(id), nil
	})
}

// Clear empties the cart. A rejected batch leaves the local cart untouched.
func (e *Engine) Clear(ctx context.Context) error {
	return e.run(ctx, FamilyClear, "", func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error) {
		if err := e.remote.ClearAll(ctx, ownerID); err != nil {
			return nil, err
		}
		return cleared, nil
	})
}

// Reset empties the local cart without touching the remote collection.
// Outcomes of operations already in flight are discarded.
func (e *Engine) Reset() {
	e.store.Reset(emptyAggregate())
}

// Close discards in-flight outcomes and rejects later operations.
func (e *Engine) Close() {
	if e.unsub != nil {
		e.unsub()
	}
	e.store.Close()
}

type operation func(ctx context.Context, ownerID string) (func(Aggregate) Aggregate, error)

// run drives one operation: mark the family in flight, serialize on key when
// given, call the remote, and apply the settled outcome before releasing the
// key so same-product outcomes land in completion order.
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
	if key != "" {
		ctx = e.logg.WithField(ctx, "product_key", key)
	}

	settle := func(err error, next func(Aggregate) Aggregate) error {
		e.metrics.ObserveDuration(engineName, string(family), time.Since(started))
		if err != nil {
			err = unavailable(err)
			e.metrics.IncFailure(engineName, string(family), string(pkgerrors.CodeOf(err)))
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "cart operation failed")
			next = failed(family, pkgerrors.Reason(err))
		} else {
			e.metrics.IncSuccess(engineName, string(family))
			e.logg.Debug(ctx, "cart operation settled")
		}
		if !e.store.Apply(gen, next) {
			e.metrics.IncDiscarded(engineName, string(family))
			e.logg.Debug(ctx, "discarded stale cart outcome")
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
