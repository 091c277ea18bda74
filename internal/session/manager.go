package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/services"
	"github.com/desertthunder/tidalbridge/internal/shared"
	"golang.org/x/oauth2"
)

// Manager drives the credential lifecycle on top of a [Store].
//
// Liveness is always decided by the provider; Manager never inspects the expiry time itself.
type Manager struct {
	store  *Store
	auth   services.Authenticator
	logger *log.Logger
	after  func(time.Duration) <-chan time.Time
}

// NewManager creates a Manager. A nil logger falls back to [shared.NewLogger].
func NewManager(store *Store, auth services.Authenticator, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{store: store, auth: auth, logger: logger, after: time.After}
}

// Store returns the underlying credential store.
func (m *Manager) Store() *Store {
	return m.store
}

// Session returns credentials the provider currently accepts, or an error.
//
// Errors wrap one of [shared.ErrNotAuthenticated], [shared.ErrSessionExpired] or [shared.ErrAuthFailed].
// The file is deleted only when the provider has rejected both the access token and the refresh attempt.
func (m *Manager) Session(ctx context.Context) (*models.Credentials, error) {
	creds, err := m.store.Load()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	info, err := m.auth.CheckLogin(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if info.Valid {
		m.adopt(creds, info)
		return creds, nil
	}

	m.logger.Debug("stored session rejected, refreshing")

	refreshed, err := m.auth.Refresh(ctx, creds)
	switch {
	case errors.Is(err, shared.ErrRefreshFailed), errors.Is(err, shared.ErrNoRefreshToken):
		return nil, m.expire(err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	if err := m.store.Save(refreshed); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	info, err = m.auth.CheckLogin(ctx, refreshed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if !info.Valid {
		return nil, m.expire(errors.New("refreshed token was rejected"))
	}

	m.adopt(refreshed, info)
	return refreshed, nil
}

func (m *Manager) expire(cause error) error {
	if err := m.store.Invalidate(); err != nil {
		m.logger.Warn("failed to remove session file", "path", m.store.Path(), "error", err)
	}
	return fmt.Errorf("%w: %w", shared.ErrSessionExpired, cause)
}

// adopt fills account fields the record is missing from info and saves it, best-effort.
func (m *Manager) adopt(creds *models.Credentials, info models.SessionInfo) {
	changed := false
	if creds.CountryCode == "" && info.CountryCode != "" {
		creds.CountryCode = info.CountryCode
		changed = true
	}
	if creds.UserID == "" && info.UserID != "" {
		creds.UserID = info.UserID
		changed = true
	}
	if !changed {
		return
	}
	if err := m.store.Save(creds); err != nil {
		m.logger.Warn("failed to update session file", "error", err)
	}
}

// Check reports whether a usable session exists.
//
// It never fails and never deletes the file. A successfully refreshed token is persisted.
func (m *Manager) Check(ctx context.Context) bool {
	creds, err := m.store.Load()
	if err != nil {
		m.logger.Debug("no usable session file", "error", err)
		return false
	}

	info, err := m.auth.CheckLogin(ctx, creds)
	if err != nil {
		m.logger.Debug("session check failed", "error", err)
		return false
	}
	if info.Valid {
		m.adopt(creds, info)
		return true
	}

	refreshed, err := m.auth.Refresh(ctx, creds)
	if err != nil {
		m.logger.Debug("session refresh failed", "error", err)
		return false
	}

	info, err = m.auth.CheckLogin(ctx, refreshed)
	if err != nil || !info.Valid {
		return false
	}

	if err := m.store.Save(refreshed); err != nil {
		m.logger.Warn("failed to save refreshed session", "error", err)
	}
	m.adopt(refreshed, info)
	return true
}

// Start begins a device login.
func (m *Manager) Start(ctx context.Context) (*models.DeviceLogin, error) {
	return m.auth.StartDeviceLogin(ctx)
}

// Poll performs one device-code exchange and saves the credentials when it succeeds.
//
// Transport failures are reported as an error status; the returned error is only set when saving fails.
func (m *Manager) Poll(ctx context.Context, deviceCode string) (models.PollResult, error) {
	result, creds, err := m.auth.PollDeviceLogin(ctx, deviceCode)
	if err != nil {
		m.logger.Debug("device poll failed", "error", err)
		return models.PollResult{Status: models.PollError, Message: err.Error()}, nil
	}

	if result.Status != models.PollAuthenticated {
		return result, nil
	}
	if creds == nil {
		return models.PollResult{Status: models.PollError, Message: "no credentials in token response"}, nil
	}

	if err := m.store.Save(creds); err != nil {
		return models.PollResult{Status: models.PollError, Message: err.Error()}, err
	}
	m.logger.Info("session saved", "path", m.store.Path())
	return result, nil
}

// Interactive returns a live session, running the device flow if there is none.
//
// display receives the device code to show the user. Polling stops when the login
// succeeds, is refused, the code expires or ctx is done.
func (m *Manager) Interactive(ctx context.Context, display func(*models.DeviceLogin)) (*models.Credentials, error) {
	if m.Check(ctx) {
		return m.store.Load()
	}

	login, err := m.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if display != nil {
		display(login)
	}

	if login.ExpiresIn > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(login.ExpiresIn)*time.Second)
		defer cancel()
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", shared.ErrTimeout, shared.ErrDeviceCodeExpired)
			}
			return nil, ctx.Err()
		case <-m.after(login.PollInterval()):
		}

		result, err := m.Poll(ctx, login.DeviceCode)
		if err != nil {
			return nil, err
		}
		if !result.Done() {
			continue
		}

		switch result.Status {
		case models.PollAuthenticated:
			return m.store.Load()
		case models.PollExpired:
			return nil, shared.ErrDeviceCodeExpired
		case models.PollError:
			if ctx.Err() != nil {
				continue
			}
			return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, result.Message)
		}
	}
}

// OnRefresh returns a callback that persists tokens refreshed during catalog calls.
func (m *Manager) OnRefresh(prev *models.Credentials) func(*oauth2.Token) {
	return func(tok *oauth2.Token) {
		creds := models.CredentialsFromToken(tok, prev)
		if err := m.store.Save(creds); err != nil {
			m.logger.Warn("failed to save refreshed session", "error", err)
			return
		}
		m.logger.Debug("refreshed session saved")
	}
}

// Logout removes the stored session.
func (m *Manager) Logout() error {
	return m.store.Invalidate()
}
