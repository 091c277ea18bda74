package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/tidalbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitAuthError = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, NewRunner(RunnerOpts{}))
	stop()
	os.Exit(code)
}

// run executes the application and maps its error to an exit code.
func run(ctx context.Context, args []string, r *Runner) int {
	err := rootCommand(r).Run(ctx, args)
	return r.exitCode(err)
}

// Dispatch handles invocations that name no known command.
func (r *Runner) Dispatch(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		fmt.Fprintf(r.errOutput, "Usage: %s <command> [args...]\n", cmd.Name)
		return fmt.Errorf("%w: command", shared.ErrMissingArgument)
	}

	name := cmd.Args().First()
	fmt.Fprintf(r.errOutput, "Unknown command: %s\n", name)
	return fmt.Errorf("%w: %s", shared.ErrUnknownCommand, name)
}

// authErrorKind maps a session failure to the error code reported on stdout.
func authErrorKind(err error) (string, bool) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return "not_authenticated", true
	case errors.Is(err, shared.ErrSessionExpired):
		return "session_expired", true
	case errors.Is(err, shared.ErrAuthFailed):
		return "auth_error", true
	default:
		return "", false
	}
}

// exitCode reports err and returns the process exit code.
//
// Authentication failures are written to stdout as JSON for the calling process;
// everything else goes to stderr.
func (r *Runner) exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	if kind, ok := authErrorKind(err); ok {
		payload := map[string]string{"error": kind, "message": err.Error()}
		if werr := r.writeJSON(payload, false); werr != nil {
			r.logger.Error("failed to write error", "error", werr)
		}
		return exitAuthError
	}

	if errors.Is(err, shared.ErrMissingArgument) || errors.Is(err, shared.ErrUnknownCommand) {
		return exitFailure
	}

	r.logger.Error("command failed", "error", err)
	return exitFailure
}
