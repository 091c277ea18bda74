package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalbridge/internal/formatter"
	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/services"
	"github.com/desertthunder/tidalbridge/internal/session"
	"github.com/desertthunder/tidalbridge/internal/shared"
	"github.com/desertthunder/tidalbridge/internal/tasks"
	"github.com/desertthunder/tidalbridge/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// CatalogFactory builds a catalog client for a live session; onRefresh receives tokens minted mid-command.
type CatalogFactory func(ctx context.Context, creds *models.Credentials, onRefresh func(*oauth2.Token)) services.Catalog

// LoginFunc runs an interactive device login.
type LoginFunc func(ctx context.Context, flow ui.LoginFlow, open func(string) error) error

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies that are not injected are built from the config in [Runner.Before].
type Runner struct {
	config     *shared.Config
	configured bool
	auth       services.Authenticator
	catalog    CatalogFactory
	store      *session.Store
	manager    *session.Manager
	logger     *log.Logger
	output     io.Writer
	errOutput  io.Writer
	open       func(string) error
	login      LoginFunc
	pretty     bool
	format     string
	initErr    error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Auth      services.Authenticator
	Catalog   CatalogFactory
	Store     *session.Store
	Logger    *log.Logger
	Output    io.Writer
	ErrOutput io.Writer
	Open      func(string) error
	Login     LoginFunc
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(opts.ErrOutput)
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.Login == nil {
		opts.Login = ui.RunLogin
	}

	return &Runner{
		config:     opts.Config,
		configured: configured,
		auth:       opts.Auth,
		catalog:    opts.Catalog,
		store:      opts.Store,
		logger:     opts.Logger,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
		open:       opts.Open,
		login:      opts.Login,
		format:     "json",
	}
}

// SetLogger replaces the logger used by the runner, the session manager and the TIDAL service.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if svc, ok := r.auth.(*services.TidalService); ok {
		svc.SetLogger(logger)
	}
	if r.auth != nil && r.store != nil {
		r.manager = session.NewManager(r.store, r.auth, logger)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		checkAuthCommand, loginStartCommand, loginPollCommand,
		fetchPlaylistCommand, similarArtistsCommand, trackRadioCommand,
		loginCommand, logoutCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies global flags and builds the services the commands share.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.pretty = cmd.Bool("pretty")
	r.format = formatter.Normalize(cmd.String("format"))

	if !r.configured {
		r.config = r.loadConfig(cmd.String("config"), cmd.IsSet("config"))
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	r.logger = shared.WithLogger(r.logger, "run", shared.GenerateID()[:8])

	if err := r.config.Validate(); err != nil {
		r.initErr = err
	} else if r.auth == nil {
		svc, err := services.NewTidalService(r.config.Tidal, services.TidalOpts{Logger: r.logger})
		if err != nil {
			r.initErr = err
		} else {
			r.auth = svc
			if r.catalog == nil {
				r.catalog = func(ctx context.Context, creds *models.Credentials, onRefresh func(*oauth2.Token)) services.Catalog {
					return svc.Catalog(ctx, creds, onRefresh)
				}
			}
		}
	}

	if r.store == nil {
		r.store = session.NewStore(r.config.SessionPath(cmd.String("session-file")))
	}
	if r.auth != nil && r.initErr == nil {
		r.manager = session.NewManager(r.store, r.auth, r.logger)
	}

	r.logger.Debug("runner ready", "session", r.store.Path(), "format", r.format)
	return ctx, nil
}

// loadConfig reads the config file, falling back to the embedded defaults.
//
// A missing file is only reported when the path was given explicitly.
func (r *Runner) loadConfig(path string, explicit bool) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		if explicit {
			r.logger.Warn("config file not found, using defaults", "path", path)
		}
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// ready reports why the TIDAL services could not be built.
func (r *Runner) ready() error {
	if r.initErr != nil {
		return r.initErr
	}
	if r.manager == nil {
		return fmt.Errorf("%w: session manager not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// engine returns a discovery engine for the stored session without ever prompting for a login.
func (r *Runner) engine(ctx context.Context) (tasks.DiscoveryEngine, error) {
	if err := r.ready(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	creds, err := r.manager.Session(ctx)
	if err != nil {
		return nil, err
	}

	catalog := r.catalog(ctx, creds, r.manager.OnRefresh(creds))
	return tasks.NewCatalogEngine(catalog, r.logger), nil
}

// logProgress logs engine progress at debug level until progress is closed.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()
	return done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// usage prints the argument hint for cmd to stderr.
func (r *Runner) usage(cmd *cli.Command, hint string) error {
	fmt.Fprintf(r.errOutput, "Usage: %s %s %s\n", cmd.Root().Name, cmd.Name, hint)
	return fmt.Errorf("%w: %s %s", shared.ErrMissingArgument, cmd.Name, hint)
}
