package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/djq/internal/lifecycle"
	"github.com/desertthunder/djq/internal/metrics"
	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/repositories"
	"github.com/desertthunder/djq/internal/services"
	"github.com/desertthunder/djq/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      models.RequestStore
	manager    *lifecycle.Manager
	registry   *prometheus.Registry
	collector  *metrics.Collector
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
	isTTY      bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      models.RequestStore // Overrides the store built from Config
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	collector, err := metrics.NewCollector(registry)
	if err != nil {
		opts.Logger.Warn("metrics disabled", "error", err)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		registry:   registry,
		collector:  collector,
		logger:     opts.Logger,
		output:     opts.Output,
		isTTY:      isTerminal(opts.Output),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, requestsCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and anything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database connection, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// openStore builds the configured store on first use.
func (r *Runner) openStore() (models.RequestStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	switch r.config.Store.Backend {
	case shared.BackendHosted:
		hosted := r.config.Store.Hosted
		store, err := services.NewHostedStore(services.HostedStoreOpts{
			URL:        hosted.URL,
			APIKey:     hosted.APIKey,
			Table:      hosted.Table,
			Timeout:    hosted.Timeout(),
			MaxRetries: hosted.MaxRetries,
			Logger:     shared.WithLogger(r.logger, "component", "hosted"),
		})
		if err != nil {
			return nil, err
		}
		r.store = store

	case shared.BackendSQLite, "":
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, r.config.Database.Path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db = db
		r.store = repositories.NewSongRequestRepository(db)

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, r.config.Store.Backend)
	}

	r.logger.Debug("store opened", "backend", r.config.Store.Backend)
	return r.store, nil
}

// open returns the lifecycle manager, loading its snapshot from the store the first time.
func (r *Runner) open(ctx context.Context) (*lifecycle.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	opts := lifecycle.ManagerOpts{Logger: r.logger}
	if r.collector != nil {
		opts.Recorder = r.collector
	}

	manager := lifecycle.NewManager(store, opts)
	if err := manager.Refresh(ctx); err != nil {
		return nil, err
	}

	r.manager = manager
	return manager, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
