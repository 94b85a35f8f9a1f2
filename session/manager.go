// Package session owns the client-side session state machine.
//
// A Manager moves between Unauthenticated, Bootstrapping, Authenticated and
// LoggingOut and tells subscribers about every move. It is the only writer of
// the session; everyone else reads snapshots.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/octabyte/sentimind-session/credentials"
	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/models"
	"github.com/octabyte/sentimind-session/otel/logger"
	"github.com/octabyte/sentimind-session/otel/metrics"
)

// Authenticator is the subset of auth.Service the manager drives.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	Register(ctx context.Context, data models.RegisterData) (*models.RegisterResponse, error)
	Logout(ctx context.Context)
	Profile(ctx context.Context) (*models.User, error)
}

// Event describes one state transition. Err is set when the transition was
// caused by a failure, e.g. a rejected renewal.
type Event struct {
	From    enums.SessionState
	To      enums.SessionState
	Reason  enums.TransitionReason
	Session models.Session
	Err     error
}

type Manager struct {
	auth  Authenticator
	store credentials.Store

	mu    sync.RWMutex
	state enums.SessionState
	user  *models.User

	// emitMu is taken before mu is released so events leave in transition order.
	emitMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[uint64]func(Event)
	nextID      uint64
}

// New returns a manager in Bootstrapping. Call Bootstrap to resolve it.
func New(auth Authenticator, store credentials.Store) *Manager {
	return &Manager{
		auth:      auth,
		store:     store,
		state:     enums.SessionStateBootstrapping,
		listeners: make(map[uint64]func(Event)),
	}
}

// Subscribe registers fn for every later transition and returns a function
// that removes it. fn runs on the goroutine that made the transition and must
// not start another transition itself.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

func (m *Manager) Snapshot() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) State() enums.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *models.User {
	return m.Snapshot().User
}

func (m *Manager) Authenticated() bool {
	return m.Snapshot().Authenticated()
}

// Bootstrap resolves the session from stored credentials. Without a stored
// access token the session becomes Unauthenticated right away; otherwise the
// profile is fetched and any failure clears the credentials. The session is
// never left in Bootstrapping.
func (m *Manager) Bootstrap(ctx context.Context) error {
	access, err := credentials.AccessToken(ctx, m.store)
	if err != nil {
		m.finishBootstrap(ctx, nil, err)
		return fmt.Errorf("session: reading credentials: %w", err)
	}
	if access == "" {
		m.finishBootstrap(ctx, nil, nil)
		return nil
	}

	m.mu.Lock()
	if m.state != enums.SessionStateBootstrapping {
		m.transitionLocked(ctx, enums.SessionStateBootstrapping, nil, enums.TransitionBootstrap, nil)
	} else {
		m.mu.Unlock()
	}

	user, err := m.auth.Profile(ctx)
	m.finishBootstrap(ctx, user, err)
	if err != nil {
		return fmt.Errorf("session: bootstrap: %w", err)
	}
	return nil
}

// finishBootstrap applies the outcome only while still Bootstrapping; an
// expiry or a login that happened meanwhile wins.
func (m *Manager) finishBootstrap(ctx context.Context, user *models.User, cause error) {
	m.mu.Lock()
	if m.state != enums.SessionStateBootstrapping {
		m.mu.Unlock()
		return
	}
	if user == nil {
		if err := m.store.Clear(ctx); err != nil {
			logger.ErrorCtx(ctx, "clearing credentials after failed bootstrap", err)
		}
		m.transitionLocked(ctx, enums.SessionStateUnauthenticated, nil, enums.TransitionBootstrap, cause)
		return
	}
	m.transitionLocked(ctx, enums.SessionStateAuthenticated, user, enums.TransitionBootstrap, nil)
}

func (m *Manager) Login(ctx context.Context, username, password string) (*models.User, error) {
	resp, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	user := resp.User
	if err := m.signIn(ctx, resp.Pair(), &user, enums.TransitionLogin); err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Manager) Register(ctx context.Context, data models.RegisterData) (*models.User, error) {
	resp, err := m.auth.Register(ctx, data)
	if err != nil {
		return nil, err
	}
	user := resp.User
	if err := m.signIn(ctx, resp.Tokens, &user, enums.TransitionRegister); err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Manager) signIn(ctx context.Context, pair models.CredentialPair, user *models.User, reason enums.TransitionReason) error {
	m.mu.Lock()
	if err := m.store.Set(ctx, pair); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("session: storing credentials: %w", err)
	}
	m.transitionLocked(ctx, enums.SessionStateAuthenticated, user, reason, nil)
	return nil
}

// Logout notifies the backend on a best-effort basis, then clears the
// credentials and the user whatever the backend answered.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case enums.SessionStateUnauthenticated:
		m.mu.Unlock()
		return m.clearCredentials(ctx)
	case enums.SessionStateLoggingOut:
		m.mu.Unlock()
		return nil
	}
	m.transitionLocked(ctx, enums.SessionStateLoggingOut, m.user, enums.TransitionLogout, nil)

	m.auth.Logout(ctx)

	m.mu.Lock()
	err := m.clearCredentials(ctx)
	m.transitionLocked(ctx, enums.SessionStateUnauthenticated, nil, enums.TransitionLogout, nil)
	return err
}

// Expire ends the session after a failed credential renewal. It is
// registered as the pipeline's renewal failure hook, which runs after the
// failed credentials were cleared; if the store holds a pair again, a login
// completed in between and the session is kept. Expire is a no-op unless the
// session is Authenticated or Bootstrapping.
func (m *Manager) Expire(ctx context.Context, cause error) {
	m.mu.Lock()
	if m.state != enums.SessionStateAuthenticated && m.state != enums.SessionStateBootstrapping {
		m.mu.Unlock()
		return
	}
	if _, err := m.store.Get(ctx); err == nil {
		m.mu.Unlock()
		logger.DebugCtx(ctx, "renewal failure ignored, newer credentials stored", zap.Error(cause))
		return
	}
	m.transitionLocked(ctx, enums.SessionStateUnauthenticated, nil, enums.TransitionSessionExpired, cause)
}

func (m *Manager) clearCredentials(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("session: clearing credentials: %w", err)
	}
	return nil
}

// transitionLocked must be called with mu held and releases it.
func (m *Manager) transitionLocked(ctx context.Context, to enums.SessionState, user *models.User, reason enums.TransitionReason, cause error) {
	from := m.state
	m.state = to
	if user != nil {
		u := *user
		m.user = &u
	} else {
		m.user = nil
	}
	event := Event{From: from, To: to, Reason: reason, Session: m.snapshotLocked(), Err: cause}

	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()

	metrics.RecordSessionTransition(ctx, string(from), string(to), string(reason))
	fields := []zap.Field{
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", string(reason)),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	logger.InfoCtx(ctx, "session transition", fields...)

	m.listenersMu.RLock()
	listeners := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (m *Manager) snapshotLocked() models.Session {
	s := models.Session{
		State:   m.state,
		Loading: m.state == enums.SessionStateBootstrapping,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}
