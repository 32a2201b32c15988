package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/player"
	"github.com/desertthunder/synoplay/internal/repositories"
	"github.com/desertthunder/synoplay/internal/services"
	"github.com/desertthunder/synoplay/internal/shared"
	"github.com/desertthunder/synoplay/internal/tasks"
)

// caller is implemented by libraries that expose raw web API calls.
type caller interface {
	Call(ctx context.Context, cgiPath, api, method string, version int, params map[string]string) (json.RawMessage, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil in [RunnerOpts] are built from the config file on the first command that needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	library    services.Library
	store      repositories.Store
	player     player.Player
	engine     tasks.Engine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Library    services.Library
	Store      repositories.Store
	Player     player.Player
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		library:    opts.Library,
		store:      opts.Store,
		player:     opts.Player,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if r.library != nil {
		r.engine = tasks.NewLibraryEngine(r.library, r.logger)
	}
	return r
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// loadConfig reads the config file named by --config. A missing default file falls back to the
// embedded defaults; a missing file named explicitly is an error.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if r.config != nil {
		return nil
	}

	path := cmd.String("config")
	r.configPath = path

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return err
		}
	} else if cmd.IsSet("config") {
		return fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := shared.LoadEnv(config); err != nil {
		return err
	}

	r.config = config
	r.logger.SetLevel(shared.ParseLogLevel(config.Log.Level))
	if cmd.Bool("verbose") {
		r.logger.SetLevel(log.DebugLevel)
	}
	return nil
}

// prepare builds whatever [RunnerOpts] left out: config, session cache, API client, player and engine.
func (r *Runner) prepare(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	if r.library == nil {
		if r.store == nil {
			if cmd.Bool("no-cache") {
				r.store = repositories.NewMemoryCache()
			} else {
				store, err := repositories.OpenStore(r.config)
				if err != nil {
					return fmt.Errorf("failed to open session cache: %w", err)
				}
				r.store = store
			}
		}

		client := services.NewClient(services.ClientOpts{
			Endpoint:          r.config.NAS.URL,
			HTTPClient:        r.httpClient,
			Store:             r.store,
			Logger:            shared.WithLogger(r.logger, "component", "client"),
			Timeout:           r.config.NAS.Timeout(),
			RequestsPerSecond: r.config.NAS.RequestsPerSecond,
		})

		if ok, err := client.Resume(ctx); err != nil {
			r.logger.Warn("failed to read cached session", "error", err)
		} else if ok {
			r.logger.Debug("using cached session", "endpoint", client.Session().BaseURL)
		}

		r.library = client
		r.engine = tasks.NewLibraryEngine(client, r.logger)
	}

	if r.player == nil {
		r.player = player.NewExternalPlayer(r.config.Player, shared.WithLogger(r.logger, "component", "player"))
	}
	return nil
}

// action wraps fn so that dependencies are built first.
func (r *Runner) action(fn cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := r.prepare(ctx, cmd); err != nil {
			return err
		}
		return fn(ctx, cmd)
	}
}

// Close releases the session cache.
func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

func (r *Runner) pageSize(cmd *cli.Command) int {
	if limit := cmd.Int("limit"); limit > 0 {
		return limit
	}
	if r.config != nil && r.config.NAS.PageSize > 0 {
		return r.config.NAS.PageSize
	}
	return services.DefaultPageSize
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, logoutCommand, statusCommand,
		songsCommand, albumsCommand, albumCommand, streamCommand, coverCommand, playCommand,
		tuiCommand, serveCommand, dumpCommand, exportCommand,
		apiCommand, cacheCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// describeError maps an error to the message shown to the user and the process exit code.
func describeError(err error) (string, int) {
	switch {
	case errors.Is(err, shared.ErrNotImplemented):
		return "not implemented", 0
	case errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrSessionExpired),
		errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrMalformedRequest):
		return services.Describe(err), 2
	case errors.Is(err, shared.ErrNetwork):
		return services.Describe(err), 3
	case errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingCredentials):
		return err.Error(), 64
	default:
		return services.Describe(err), 1
	}
}
