// Package client wires the session to the cart and wishlist engines: signing
// in loads both aggregates and signing out clears them.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/session"
	"github.com/angelmondragon/cartsync/internal/wishlist"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"go.uber.org/multierr"
)

const defaultFetchTimeout = 30 * time.Second

// Params configure a Client.
type Params struct {
	Session      *session.Manager
	Cart         *cart.Engine
	Wishlist     *wishlist.Engine
	Logger       *logger.Logger
	FetchTimeout time.Duration
}

// Client is the facade presentation layers talk to.
type Client struct {
	session  *session.Manager
	cart     *cart.Engine
	wishlist *wishlist.Engine
	logg     *logger.Logger
	timeout  time.Duration

	stopSession func()
	closeOnce   sync.Once
}

func New(params Params) (*Client, error) {
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager required")
	}
	if params.Cart == nil || params.Wishlist == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart and wishlist engines required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	c := &Client{
		session:  params.Session,
		cart:     params.Cart,
		wishlist: params.Wishlist,
		logg:     logg,
		timeout:  timeout,
	}
	c.stopSession = params.Session.OnChange(c.onSessionChange)
	return c, nil
}

func (c *Client) Session() *session.Manager { return c.session }

func (c *Client) Cart() *cart.Engine { return c.cart }

func (c *Client) Wishlist() *wishlist.Engine { return c.wishlist }

// CurrentUserID makes Client a session.Provider.
func (c *Client) CurrentUserID() (string, bool) {
	return c.session.CurrentUserID()
}

// SignIn signs userID in and loads both aggregates before returning.
func (c *Client) SignIn(userID string) error {
	return c.session.SignIn(userID)
}

// SignInWithToken verifies an ID token and signs its subject in.
func (c *Client) SignInWithToken(token string) (string, error) {
	return c.session.SignInWithToken(token)
}

// SignOut ends the session and clears both local aggregates.
func (c *Client) SignOut() {
	c.session.SignOut()
}

// Refresh re-fetches both aggregates. It does nothing while signed out.
func (c *Client) Refresh(ctx context.Context) error {
	if _, ok := c.session.CurrentUserID(); !ok {
		return nil
	}
	return c.fetchAll(ctx)
}

// OnCartBadge calls fn with the cart quantity whenever it changes.
func (c *Client) OnCartBadge(fn func(int)) func() {
	var mu sync.Mutex
	last := c.cart.Snapshot().TotalAmount
	fn(last)
	return c.cart.Subscribe(func(a cart.Aggregate) {
		mu.Lock()
		defer mu.Unlock()
		if a.TotalAmount == last {
			return
		}
		last = a.TotalAmount
		fn(last)
	})
}

// Close detaches from the session and tears both engines down. Outcomes
// still in flight are discarded.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.stopSession()
		c.cart.Close()
		c.wishlist.Close()
	})
	return nil
}

func (c *Client) onSessionChange(ev session.Event) {
	ctx := c.logg.WithUserID(context.Background(), ev.UserID)
	switch ev.Kind {
	case session.SignedOut:
		c.cart.Reset()
		c.wishlist.Reset()
		c.logg.Info(ctx, "session ended; local aggregates cleared")
	case session.SignedIn:
		c.logg.Info(ctx, "session started; loading aggregates")
		fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := c.fetchAll(fetchCtx); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "initial load failed")
		}
	}
}

func (c *Client) fetchAll(ctx context.Context) error {
	var (
		wg          sync.WaitGroup
		cartErr     error
		wishlistErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		cartErr = c.cart.Fetch(ctx)
	}()
	go func() {
		defer wg.Done()
		wishlistErr = c.wishlist.Fetch(ctx)
	}()
	wg.Wait()
	return multierr.Combine(cartErr, wishlistErr)
}
