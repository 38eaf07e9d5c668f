package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/config"
	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/repository"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // overrides database.path
	ConfigPath string

	// Config is resolved before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the GraphWalker CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "graphwalker",
		Short: "GraphWalker - model graphs of nodes, connectors and cliques",
		Long: `GraphWalker stores graphs in a local SQLite database.

Nodes carry tags and named connectors; edges join connectors and may be
weighted, labelled and bidirectional; cliques group nodes with a shared
edge weight. Graphs can be exported, imported, pushed to Neo4j, served
over HTTP and watched live.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a TOML config file")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "usage: "+c.UseLine(), err)
	})

	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewNodeCommand(opts))
	cmd.AddCommand(NewConnectorCommand(opts))
	cmd.AddCommand(NewEdgeCommand(opts))
	cmd.AddCommand(NewCliqueCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewNeo4jCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported through the output formatter.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Cleanup()

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr.Code
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stderr}
	if format == "json" {
		f.Writer = stdout
	}
	_ = f.Fail(err)
	return GetExitCode(err)
}

// resolve validates global flags, loads configuration and initializes
// the global logger.
func (o *RootOptions) resolve() error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	err = logger.Initialize(logger.Options{
		Level:      level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}

	o.Config = cfg
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openRepo opens the configured database. The returned func closes it.
func (o *RootOptions) openRepo() (*repository.Repository, func(), error) {
	path := o.Config.Database.Path
	st, err := store.Open(path,
		store.WithBusyTimeout(o.Config.Database.BusyTimeoutMS),
		store.WithLogger(logger.Named("store")),
	)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Logger.Errorw("Error closing database", logger.FieldPath, path, logger.FieldError, err)
		}
	}
	return repository.New(st, repository.WithLogger(logger.Named("repository"))), closeFn, nil
}

// session is what a repository-backed command runs with.
type session struct {
	ctx  context.Context
	repo *repository.Repository
	out  *OutputFormatter
	opts *RootOptions
}

// withRepo adapts fn into a cobra RunE that opens the database first.
func withRepo(opts *RootOptions, fn func(s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := opts.openRepo()
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(&session{ctx: ctx, repo: repo, out: opts.formatter(cmd), opts: opts}, cmd, args)
	}
}

// getOne reads a single-row view and turns a missing row into ErrNotFound.
func getOne[T any](s *session, q live.Query[*T], what string, id int64) (*T, error) {
	v, err := q.Get(s.ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.NotFoundf("%s %d", what, id)
	}
	return v, nil
}

// parseID parses a positional id argument.
func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.WithHint(errors.Invalidf("invalid %s id %q", what, raw), "ids are positive integers; list them with the list commands")
	}
	return id, nil
}
