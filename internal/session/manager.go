// Package session owns the client's identity: the persisted credential, the
// persisted backend handle, and the single handle that is current in memory.
//
// Only a server-confirmed Unauthorized ever removes the credential. Transport
// failures leave it in place so the next attempt can reuse it.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/logger"

	"givegram/internal/apiclient"
	"givegram/internal/failure"
	"givegram/internal/persist"
)

// Reason explains why a login screen is needed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoCredential    Reason = "no credential"
	ReasonStaleCredential Reason = "stale credential"
	ReasonTransient       Reason = "transient"
)

// Message returns the text shown on the login screen for r.
func (r Reason) Message() string {
	switch r {
	case ReasonStaleCredential:
		return "Your session cookie has expired. Paste a fresh sessionid cookie to continue."
	case ReasonTransient:
		return "Could not reach the server to restore your session. Please try again."
	default:
		return ""
	}
}

// RestoreResult is the outcome of RestoreOnStartup. Handle is set when the
// session was restored; otherwise Reason says why a login is needed.
type RestoreResult struct {
	Handle string
	Reason Reason
}

// Restored reports whether a usable handle was adopted.
func (r RestoreResult) Restored() bool { return r.Handle != "" }

// Recovery is the outcome of HandleUnauthorized.
type Recovery struct {
	Reauthenticated bool
	Reason          Reason
}

// Manager implements login, logout, startup restore and mid-flow recovery.
type Manager struct {
	api   apiclient.API
	store persist.KeyValue

	mu       sync.RWMutex
	handle   string
	username string

	onLoginRequired func(Reason)
}

// NewManager creates a manager with no current handle.
func NewManager(api apiclient.API, store persist.KeyValue) *Manager {
	return &Manager{api: api, store: store}
}

// OnLoginRequired registers fn to be called whenever recovery concludes that
// the user has to log in again.
func (m *Manager) OnLoginRequired(fn func(Reason)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLoginRequired = fn
}

// Handle returns the current session handle, or "" when logged out.
func (m *Manager) Handle() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}

// Username returns the platform account bound to the current handle, if known.
func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}

// LoggedIn reports whether a current handle exists.
func (m *Manager) LoggedIn() bool {
	return m.Handle() != ""
}

// Login authenticates credential and, on success, makes the returned handle
// current and persists both values. A failed login mutates nothing. The
// credential is sent and stored exactly as given.
func (m *Manager) Login(ctx context.Context, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", failure.NewValidation("Please paste your sessionid cookie.")
	}

	handle, username, err := m.api.Authenticate(ctx, credential)
	if err != nil {
		logger.Warningf("Login failed (%s): %s", failure.KindOf(err), failure.Detail(err))
		return "", err
	}

	m.setCurrent(handle, username)

	storeCtx := context.WithoutCancel(ctx)
	if err := m.store.Set(storeCtx, persist.KeyCredential, credential); err != nil {
		logger.Errorf("Failed to persist credential: %v", err)
	}
	if err := m.store.Set(storeCtx, persist.KeySessionHandle, handle); err != nil {
		// A previously persisted handle must not outlive the new one.
		logger.Errorf("Failed to persist session handle: %v", err)
		m.forget(storeCtx, persist.KeySessionHandle)
	}

	logger.Infof("Logged in as %q", username)
	return handle, nil
}

// Logout clears all identity state, then invalidates the old handle upstream.
// Invalidation is best effort and its failure is ignored. Calling Logout
// twice is harmless.
func (m *Manager) Logout(ctx context.Context) {
	handle := m.Handle()
	m.clearIdentity(ctx)

	if handle != "" {
		if err := m.api.Invalidate(ctx, handle); err != nil {
			logger.Warningf("Ignoring logout failure: %s", failure.Detail(err))
		}
	}
}

// RestoreOnStartup tries the cheap handle validation first and falls back to
// a full login with the persisted credential only when that fails.
func (m *Manager) RestoreOnStartup(ctx context.Context) RestoreResult {
	if handle, ok := m.persisted(ctx, persist.KeySessionHandle); ok {
		username, err := m.api.Validate(ctx, handle)
		if err == nil {
			m.setCurrent(handle, username)
			logger.Infof("Restored session for %q without re-login", username)
			return RestoreResult{Handle: handle}
		}
		logger.Infof("Stored session handle rejected (%s), dropping it", failure.KindOf(err))
		m.forget(ctx, persist.KeySessionHandle)
	}

	credential, ok := m.persisted(ctx, persist.KeyCredential)
	if !ok {
		return RestoreResult{Reason: ReasonNoCredential}
	}

	handle, err := m.Login(ctx, credential)
	switch {
	case err == nil:
		return RestoreResult{Handle: handle}
	case failure.IsUnauthorized(err):
		m.clearIdentity(ctx)
		return RestoreResult{Reason: ReasonStaleCredential}
	default:
		return RestoreResult{Reason: ReasonTransient}
	}
}

// HandleUnauthorized is called when a domain operation was rejected with
// Unauthorized. The current handle is dropped and exactly one login with the
// persisted credential is attempted.
func (m *Manager) HandleUnauthorized(ctx context.Context) Recovery {
	m.setCurrent("", "")
	m.forget(ctx, persist.KeySessionHandle)

	credential, ok := m.persisted(ctx, persist.KeyCredential)
	if !ok {
		return m.loginRequired(ReasonNoCredential)
	}

	_, err := m.Login(ctx, credential)
	switch {
	case err == nil:
		logger.Infof("Re-authenticated after expired session")
		return Recovery{Reauthenticated: true}
	case failure.IsUnauthorized(err):
		m.forget(ctx, persist.KeyCredential)
		return m.loginRequired(ReasonStaleCredential)
	default:
		return m.loginRequired(ReasonTransient)
	}
}

func (m *Manager) loginRequired(reason Reason) Recovery {
	m.mu.RLock()
	fn := m.onLoginRequired
	m.mu.RUnlock()

	logger.Infof("Login required: %s", reason)
	if fn != nil {
		fn(reason)
	}
	return Recovery{Reason: reason}
}

func (m *Manager) setCurrent(handle, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle = handle
	m.username = username
}

func (m *Manager) clearIdentity(ctx context.Context) {
	m.setCurrent("", "")
	m.forget(ctx, persist.KeySessionHandle)
	m.forget(ctx, persist.KeyCredential)
}

func (m *Manager) persisted(ctx context.Context, key string) (string, bool) {
	v, ok, err := m.store.Get(ctx, key)
	if err != nil {
		logger.Errorf("Failed to read %s: %v", key, err)
		return "", false
	}
	return v, ok && v != ""
}

// forget deletes key even when ctx is already done, so identity is never
// left behind by a slow upstream call.
func (m *Manager) forget(ctx context.Context, key string) {
	if err := m.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Errorf("Failed to delete %s: %v", key, err)
	}
}
