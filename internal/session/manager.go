// Package session owns the in-memory auth state: who is signed in, with
// which token, and where the user should land after auth transitions. It is
// the single writer of session state; everything else reads snapshots.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/lapmarkt/lapcli/internal/event"
	"github.com/lapmarkt/lapcli/internal/model"
	"github.com/lapmarkt/lapcli/internal/sessionstore"
)

// State is the auth lifecycle position.
type State int

const (
	Uninitialized State = iota
	Loading
	Authenticating
	Authenticated
	Anonymous
	LoggingOut
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	case LoggingOut:
		return "logging-out"
	default:
		return "unknown"
	}
}

// Well-known client routes.
const (
	// RouteEntry is the unauthenticated landing route.
	RouteEntry = "/"
	// RouteHome is the default authenticated landing route.
	RouteHome = "/home"
)

// Navigator receives redirect requests on auth transitions.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(route string)

// Navigate invokes the function.
func (f NavigatorFunc) Navigate(route string) { f(route) }

// Backend is the slice of the API the manager needs.
type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error)
	Register(ctx context.Context, reg model.Registration) error
	Logout(ctx context.Context) error
}

// Manager drives the session state machine
// Uninitialized → Loading → {Authenticated, Anonymous}, with transient
// Authenticating and LoggingOut phases.
type Manager struct {
	store   *sessionstore.Store
	backend Backend
	nav     Navigator
	bus     *event.Bus
	logger  *zap.Logger

	mu      sync.RWMutex
	state   State
	session model.Session

	initOnce sync.Once
}

// NewManager wires the manager and subscribes it to AuthRejected events so
// a refused token tears the session down no matter which call failed.
func NewManager(store *sessionstore.Store, backend Backend, nav Navigator, bus *event.Bus, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:   store,
		backend: backend,
		nav:     nav,
		bus:     bus,
		logger:  logger,
		state:   Uninitialized,
	}
	if bus != nil {
		bus.Subscribe(event.AuthRejected, func(event.Event) { m.onAuthRejected() })
	}
	return m
}

// Initialize reads the persistent store exactly once and resolves the state
// to Authenticated or Anonymous. It never leaves the manager in Loading,
// even when the read fails.
func (m *Manager) Initialize() {
	m.initOnce.Do(func() {
		m.setState(Loading, model.Session{})

		sess, err := m.store.Load()
		if err != nil {
			m.logger.Warn("session load failed, starting anonymous", zap.Error(err))
			m.setState(Anonymous, model.Session{})
			return
		}
		if sess.IsAuthenticated() {
			m.setState(Authenticated, sess)
			return
		}
		m.setState(Anonymous, model.Session{})
	})
}

// Login authenticates, persists the resulting session, and navigates to the
// originally requested route when the caller arrived via a blocked
// navigation, else to the home route. On rejection the state returns to
// Anonymous and the error is surfaced.
func (m *Manager) Login(ctx context.Context, creds model.Credentials, from string) error {
	m.setState(Authenticating, model.Session{})

	resp, err := m.backend.Login(ctx, creds)
	if err != nil {
		m.setState(Anonymous, model.Session{})
		return err
	}

	user := resp.User()
	if err := m.store.Save(user, resp.Token); err != nil {
		// The backend accepted us; a persistence failure costs durability,
		// not the live session.
		m.logger.Warn("session persist failed", zap.Error(err))
	}
	m.setState(Authenticated, model.Session{User: user, Token: resp.Token})

	target := from
	if target == "" {
		target = RouteHome
	}
	if m.nav != nil {
		m.nav.Navigate(target)
	}
	return nil
}

// Register creates the account and, only on success, logs in with the same
// credentials so registration always yields an authenticated session.
func (m *Manager) Register(ctx context.Context, reg model.Registration, from string) error {
	if err := m.backend.Register(ctx, reg); err != nil {
		return err
	}
	return m.Login(ctx, model.Credentials{Username: reg.Username, Password: reg.Password}, from)
}

// Logout notifies the backend best-effort, clears local state
// unconditionally, and navigates to the entry route. Calling it twice is
// the same as calling it once.
func (m *Manager) Logout(ctx context.Context) {
	m.setState(LoggingOut, m.Snapshot())

	if err := m.backend.Logout(ctx); err != nil {
		m.logger.Warn("backend logout notification failed", zap.Error(err))
	}

	m.clearLocal()
	if m.nav != nil {
		m.nav.Navigate(RouteEntry)
	}
}

// onAuthRejected handles the HTTP adapter's 401/403 signal: the stale token
// must not remain usable after one rejected request.
func (m *Manager) onAuthRejected() {
	m.logger.Info("auth rejected by backend, clearing session")
	m.clearLocal()
	if m.nav != nil {
		m.nav.Navigate(RouteEntry)
	}
}

func (m *Manager) clearLocal() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("session store clear failed", zap.Error(err))
	}
	m.setState(Anonymous, model.Session{})
	if m.bus != nil {
		m.bus.Publish(event.Event{Type: event.SessionCleared})
	}
}

func (m *Manager) setState(s State, sess model.Session) {
	m.mu.Lock()
	m.state = s
	m.session = sess
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// IsAuthenticated reports whether a user and token are both present.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

// Token implements httpclient.TokenSource.
func (m *Manager) Token() string {
	return m.Snapshot().Token
}

// Username implements api.UserSource; empty when anonymous.
func (m *Manager) Username() string {
	sess := m.Snapshot()
	if sess.User == nil {
		return ""
	}
	return sess.User.Username
}
