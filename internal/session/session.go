// Package session tracks the signed-in user explicitly so engines never read
// identity from ambient state.
package session

import (
	"sort"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

// Provider exposes the current user's opaque id.
type Provider interface {
	CurrentUserID() (string, bool)
}

// TokenVerifier turns an ID token into the user id it asserts.
type TokenVerifier interface {
	VerifyIDToken(token string) (string, error)
}

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

// Event describes a session transition. UserID is the user that signed in,
// or the one that just signed out.
type Event struct {
	Kind   EventKind
	UserID string
}

// Manager holds the current session and notifies listeners of transitions.
type Manager struct {
	mu        sync.Mutex
	userID    string
	verifier  TokenVerifier
	listeners map[int]func(Event)
	nextID    int
	// notify serializes listener delivery so events arrive in transition order.
	notify sync.Mutex
}

func NewManager(verifier TokenVerifier) *Manager {
	return &Manager{verifier: verifier, listeners: make(map[int]func(Event))}
}

// CurrentUserID returns the signed-in user, if any.
func (m *Manager) CurrentUserID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID, m.userID != ""
}

// SignIn switches the session to userID. Signing in as a different user
// first emits a sign-out for the previous one.
func (m *Manager) SignIn(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "user id is required")
	}

	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	prev := m.userID
	m.userID = userID
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if prev == userID {
		return nil
	}
	if prev != "" {
		deliver(listeners, Event{Kind: SignedOut, UserID: prev})
	}
	deliver(listeners, Event{Kind: SignedIn, UserID: userID})
	return nil
}

// SignInWithToken verifies token and signs in as its subject.
func (m *Manager) SignInWithToken(token string) (string, error) {
	if m.verifier == nil {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "token sign-in is not configured")
	}
	userID, err := m.verifier.VerifyIDToken(strings.TrimSpace(token))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeNotAuthenticated, err, "invalid id token")
	}
	if err := m.SignIn(userID); err != nil {
		return "", err
	}
	return userID, nil
}

// SignOut clears the session. It is a no-op when nobody is signed in.
func (m *Manager) SignOut() {
	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	prev := m.userID
	m.userID = ""
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if prev != "" {
		deliver(listeners, Event{Kind: SignedOut, UserID: prev})
	}
}

// OnChange registers fn for session transitions and returns a cancel func.
// Listeners must not call SignIn or SignOut.
func (m *Manager) OnChange(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) snapshotListeners() []func(Event) {
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.listeners[id])
	}
	return out
}

func deliver(listeners []func(Event), ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}

// Static is a fixed Provider, handy for tests and single-user tools.
type Static string

func (s Static) CurrentUserID() (string, bool) {
	return string(s), s != ""
}
