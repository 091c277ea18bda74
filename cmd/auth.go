package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/session"
	"github.com/desertthunder/tidalbridge/internal/shared"
	"github.com/desertthunder/tidalbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

type authStatus struct {
	Authenticated bool `json:"authenticated"`
}

// CheckAuth prints whether a usable session exists. It never fails on auth problems.
func (r *Runner) CheckAuth(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		r.logger.Warn("cannot check session", "error", err)
		return r.writeJSON(authStatus{Authenticated: false}, r.pretty)
	}
	return r.writeJSON(authStatus{Authenticated: r.manager.Check(ctx)}, r.pretty)
}

// LoginStart requests a device code and prints it for the caller to display.
func (r *Runner) LoginStart(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	login, err := r.manager.Start(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	r.logger.Info("device login started", "user_code", login.UserCode, "expires_in", login.ExpiresIn)
	return r.writeJSON(login, r.pretty)
}

// LoginPoll exchanges a device code once and prints the outcome.
func (r *Runner) LoginPoll(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return r.usage(cmd, "<device_code>")
	}
	if err := r.ready(); err != nil {
		return r.writeJSON(models.PollResult{Status: models.PollError, Message: err.Error()}, r.pretty)
	}

	result, err := r.manager.Poll(ctx, cmd.Args().First())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return r.writeJSON(result, r.pretty)
}

// Login runs the interactive device login, then prints the session state.
//
// The login screen renders on stderr; logs move to the configured file while it is open.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	if cmd.Bool("no-tui") {
		_, err := r.manager.Interactive(ctx, r.displayLogin)
		if err != nil {
			return r.loginError(err)
		}
		return r.writeJSON(authStatus{Authenticated: true}, r.pretty)
	}

	if r.manager.Check(ctx) {
		r.logger.Info("already logged in", "session", r.store.Path())
		return r.writeJSON(authStatus{Authenticated: true}, r.pretty)
	}

	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		r.logger.Warn("failed to create file logger, keeping stderr", "error", err)
	} else {
		r.SetLogger(shared.WithLogger(fileLogger, "cmd", "login"))
	}

	if err := r.login(ctx, r.manager, r.open); err != nil {
		return r.loginError(err)
	}
	return r.writeJSON(authStatus{Authenticated: true}, r.pretty)
}

func (r *Runner) loginError(err error) error {
	if tasks.IsCancellation(err) {
		return fmt.Errorf("login cancelled: %w", err)
	}
	if errors.Is(err, shared.ErrAuthFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
}

// displayLogin prints the device code for plain polling.
func (r *Runner) displayLogin(login *models.DeviceLogin) {
	url := login.VerificationURIComplete
	if url == "" {
		url = login.VerificationURI
	}
	fmt.Fprintf(r.errOutput, "Visit %s and enter the code %s\n", shared.BrowserURL(url), login.UserCode)
	fmt.Fprintf(r.errOutput, "Waiting for approval (expires in %ds)...\n", login.ExpiresIn)
}

// Logout deletes the stored session.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	manager := r.manager
	if manager == nil {
		manager = session.NewManager(r.store, nil, r.logger)
	}
	if err := manager.Logout(); err != nil {
		return err
	}
	r.logger.Info("session removed", "path", r.store.Path())
	return r.writeJSON(authStatus{Authenticated: false}, r.pretty)
}
