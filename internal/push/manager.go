// Package push owns the device side of push notifications: obtaining a
// provider token, keeping the remote token directory in sync, and tracking
// the subscription state machine
//
//	idle -> subscribing -> subscribed
//	subscribing -> error
//	subscribed -> idle (unsubscribe)
package push

import (
	"context"
	"sync"

	"vaichover/internal/types"
)

// Sentinel errors returned by Subscribe. They are AppErrors, so callers can
// match them with errors.Is through any wrapping.
var (
	ErrNotSupported     = types.NewAppError(types.ErrCodePushNotSupported, "Push não suportado ou chave pública não configurada.", nil)
	ErrPermissionDenied = types.NewAppError(types.ErrCodePushPermissionDenied, "Permissão de notificação negada.", nil)
	ErrTokenUnavailable = types.NewAppError(types.ErrCodePushTokenUnavailable, "Não foi possível gerar o token de push.", nil)
)

// PermissionRequester is the platform's notification permission prompt.
type PermissionRequester interface {
	// Permission returns the current permission without prompting.
	Permission() types.NotificationPermission
	// RequestPermission prompts the user and blocks until they answer.
	RequestPermission(ctx context.Context) (types.NotificationPermission, error)
}

// WorkerRegistration identifies the background delivery worker that will
// receive pushes while the app is not in the foreground.
type WorkerRegistration struct {
	Scope string
}

// WorkerRegistry waits for the background delivery worker to be active.
type WorkerRegistry interface {
	Ready(ctx context.Context) (WorkerRegistration, error)
}

// TokenRequest scopes a token request to a worker registration.
type TokenRequest struct {
	PublicKey    string
	Registration WorkerRegistration
}

// TokenProvider is the push provider's device-token API.
type TokenProvider interface {
	// GetToken returns the device token, issuing one if needed. It never
	// prompts; an empty token with a nil error means none is available.
	GetToken(ctx context.Context, req TokenRequest) (string, error)
	// ExistingToken returns a token already issued to this device and not
	// since deleted, or "" if there is none. It never issues one.
	ExistingToken(ctx context.Context, req TokenRequest) (string, error)
	// DeleteToken invalidates the current device token at the provider.
	DeleteToken(ctx context.Context) error
}

// Directory is the remote token directory.
type Directory interface {
	Register(ctx context.Context, token string) error
	Unregister(ctx context.Context, token string) error
}

// Capabilities are evaluated once at startup.
type Capabilities struct {
	// Supported reports whether the platform can host a background worker.
	Supported bool
	// Configured reports whether the provider keys are present.
	Configured bool
	// PublicKey is the application server key passed to the provider.
	PublicKey string
}

// Manager runs the subscription lifecycle. It is safe for concurrent use;
// state is guarded by a mutex that is never held across a suspension point.
type Manager struct {
	caps        Capabilities
	permissions PermissionRequester
	workers     WorkerRegistry
	tokens      TokenProvider
	directory   Directory
	logger      types.Logger

	mu    sync.Mutex
	state types.PushSubscriptionState
}

// NewManager creates a Manager in the idle state.
func NewManager(
	caps Capabilities,
	permissions PermissionRequester,
	workers WorkerRegistry,
	tokens TokenProvider,
	directory Directory,
	logger types.Logger,
) *Manager {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Manager{
		caps:        caps,
		permissions: permissions,
		workers:     workers,
		tokens:      tokens,
		directory:   directory,
		logger:      logger.With("component", "push"),
		state:       types.PushSubscriptionState{Status: types.PushIdle},
	}
}

// Available reports whether Subscribe can succeed at all.
func (m *Manager) Available() bool {
	return m.caps.Supported && m.caps.Configured
}

// State returns a snapshot of the subscription.
func (m *Manager) State() types.PushSubscriptionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(token string, status types.PushStatus) {
	m.mu.Lock()
	m.state = types.PushSubscriptionState{Token: token, Status: status}
	m.mu.Unlock()
}

func (m *Manager) setStatus(status types.PushStatus) {
	m.mu.Lock()
	m.state.Status = status
	m.mu.Unlock()
}

// Subscribe asks for permission, waits for the background worker, obtains a
// device token and registers it with the directory. Directory failures are
// logged; the local subscription stands regardless.
func (m *Manager) Subscribe(ctx context.Context) (string, error) {
	if !m.Available() {
		m.setStatus(types.PushError)
		return "", ErrNotSupported
	}

	m.setStatus(types.PushSubscribing)

	permission, err := m.permissions.RequestPermission(ctx)
	if err != nil {
		permission = m.permissions.Permission()
	}
	if permission != types.PermissionGranted {
		m.setStatus(types.PushError)
		return "", ErrPermissionDenied
	}

	registration, err := m.workers.Ready(ctx)
	if err != nil {
		m.setStatus(types.PushError)
		return "", types.NewAppError(types.ErrCodePushTokenUnavailable, "background worker did not become ready", err)
	}

	token, err := m.tokens.GetToken(ctx, TokenRequest{PublicKey: m.caps.PublicKey, Registration: registration})
	if err != nil {
		m.setStatus(types.PushError)
		return "", types.NewAppError(ErrTokenUnavailable.Code, ErrTokenUnavailable.Message, err)
	}
	if token == "" {
		m.setStatus(types.PushError)
		return "", ErrTokenUnavailable
	}

	m.setState(token, types.PushSubscribed)
	m.syncDirectory(ctx, token, true)
	m.logger.Info("push subscription active", "token_len", len(token))
	return token, nil
}

// Unsubscribe invalidates the token at the provider and removes it from the
// directory, then clears local state to idle whatever the outcome. A
// provider invalidation error is returned after the state is cleared.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	if !m.caps.Supported {
		return nil
	}

	current := m.State().Token

	var providerErr error
	if m.tokens != nil {
		providerErr = m.tokens.DeleteToken(ctx)
		types.Result{Op: "push_delete_token", Err: providerErr}.Log(m.logger)
	}
	if current != "" {
		m.syncDirectory(ctx, current, false)
	}

	m.setState("", types.PushIdle)

	if providerErr != nil {
		return types.NewAppError(types.ErrCodeUpstreamPush, "failed to invalidate push token", providerErr)
	}
	return nil
}

// RestoreExistingToken silently re-establishes a subscription from a token
// the provider already issued. It runs only while permission is granted,
// never prompts and never returns an error.
func (m *Manager) RestoreExistingToken(ctx context.Context) {
	if !m.Available() || m.permissions.Permission() != types.PermissionGranted {
		return
	}

	registration, err := m.workers.Ready(ctx)
	if !(types.Result{Op: "push_restore_worker", Err: err}).Log(m.logger).OK() {
		return
	}
	token, err := m.tokens.ExistingToken(ctx, TokenRequest{PublicKey: m.caps.PublicKey, Registration: registration})
	if !(types.Result{Op: "push_restore_token", Err: err}).Log(m.logger).OK() || token == "" {
		return
	}

	m.setState(token, types.PushSubscribed)
	m.syncDirectory(ctx, token, true)
}

func (m *Manager) syncDirectory(ctx context.Context, token string, register bool) {
	if m.directory == nil || token == "" {
		return
	}
	if register {
		types.Attempt("directory_register", func() error { return m.directory.Register(ctx, token) }).Log(m.logger)
		return
	}
	types.Attempt("directory_unregister", func() error { return m.directory.Unregister(ctx, token) }).Log(m.logger)
}
