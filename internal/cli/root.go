// Package cli implements the inkwell command-line interface: writing and
// reading document versions, maintenance runs over the history store, and
// the document registry.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/inkwell/internal/archive"
	"github.com/mesh-intelligence/inkwell/internal/metrics"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// app holds global flag values and the state shared by subcommands of one
// invocation.
type app struct {
	configDir   string
	dataDir     string
	jsonMode    bool
	logLevel    string
	metricsFile string

	configPath string
	cfg        types.Config
	logger     zerolog.Logger
}

// NewRootCmd creates the top-level "inkwell" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "inkwell",
		Short: "Delta-compressed version history for posts and pages",
		Long: "Inkwell keeps the full edit history of every post and page as a chain of\n" +
			"full-content bases and unified-diff deltas, and rebuilds any version on demand.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsFile == "" {
				return nil
			}
			if err := metrics.WriteTextfile(a.metricsFile); err != nil {
				return sysError("write metrics: %w", err)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory (default: .inkwell-db)")
	pf.BoolVar(&a.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newAppendCmd(a),
		newShowCmd(a),
		newLogCmd(a),
		newDiffCmd(a),
		newCompactCmd(a),
		newVerifyCmd(a),
		newRegisterCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// setup configures logging and loads the configuration.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(a.logLevel))
	if err != nil {
		return userError("invalid --log-level %q", a.logLevel)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
	log.Logger = a.logger

	cfg, path, err := loadConfig(a.configDir, a.dataDir)
	if err != nil {
		return sysError("load config: %w", err)
	}
	a.cfg = cfg
	a.configPath = path
	a.logger.Debug().Str("config", path).Str("backend", cfg.Backend).Str("data_dir", cfg.DataDir).Msg("configuration loaded")
	return nil
}

// open attaches an archive for the loaded configuration. The caller must
// Detach it.
func (a *app) open() (*archive.Archive, error) {
	arch := archive.New(archive.WithLogger(a.logger))
	if err := arch.Attach(a.cfg); err != nil {
		return nil, sysError("open archive: %w", err)
	}
	return arch, nil
}

// historyError maps archive read errors to exit codes.
func historyError(key string, err error) error {
	switch {
	case errors.Is(err, types.ErrHistoryNotFound):
		return userError("no history for %q", key)
	case errors.Is(err, types.ErrVersionNotFound):
		return userError("%s: %w", key, err)
	case errors.Is(err, types.ErrInvalidKey), errors.Is(err, types.ErrInvalidDocumentType), errors.Is(err, types.ErrInvalidEntry):
		return userError("%w", err)
	default:
		return sysError("%s: %w", key, err)
	}
}
