// Package cli implements the minicrm command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/minicrm/internal/config"
	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/internal/logger"
	"github.com/mesh-intelligence/minicrm/internal/paths"
	"github.com/mesh-intelligence/minicrm/internal/sqlite"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by one command tree: flags, the loaded
// configuration, and the logger.
type app struct {
	flags     rootFlags
	configDir string
	cfg       config.Config
	log       *zap.Logger

	// started is set once flag and argument parsing succeeded. Errors
	// before that point are usage errors.
	started bool
}

// NewRootCmd creates the top-level "minicrm" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "minicrm",
		Short: "A small CRM for tracking leads and partners",
		Long: "minicrm keeps a list of companies with notes, source tags, and a status\n" +
			"that places each company on the leads or partners board.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/minicrm)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.minicrm-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newBoardCmd(a))
	root.AddCommand(newUpdateCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newNoteCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newPrefsCmd(a))

	return root, a
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root, a := newRootCmd()
	os.Exit(run(root, a, os.Args[1:], os.Stderr))
}

// run executes root with args and maps the result to an exit code.
func run(root *cobra.Command, a *app, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "minicrm:", err)
	if !a.started {
		return exitUserError
	}
	return exitCode(err)
}

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// usageError marks err as caused by the invocation.
func usageError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// systemError marks err as an environment or storage failure.
func systemError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if crm.IsUserError(err) || errors.Is(err, types.ErrUnknownBoard) {
		return exitUserError
	}
	return exitSysError
}

// load resolves directories, reads configuration, and builds the logger.
func (a *app) load(cmd *cobra.Command, args []string) error {
	a.started = true

	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError(fmt.Errorf("resolving config dir: %w", err))
	}
	a.configDir = dir

	cfg, err := config.Load(dir)
	if err != nil {
		return systemError(err)
	}
	if err := cfg.Validate(); err != nil {
		return usageError("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logCfg := cfg.Log
	logCfg.ServiceName = paths.AppName
	log, err := logger.New(logCfg)
	if err != nil {
		return systemError(err)
	}
	a.log = log
	return nil
}

// dataDir applies the data directory precedence to the loaded config.
func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.cfg.DataDir)
}

// attach opens the SQLite backend. The caller must Detach it.
func (a *app) attach() (*sqlite.Backend, types.Config, error) {
	dir, err := a.dataDir()
	if err != nil {
		return nil, types.Config{}, systemError(fmt.Errorf("resolving data dir: %w", err))
	}
	storeCfg := a.cfg.Store(dir)

	b := sqlite.NewBackend()
	if err := b.Attach(storeCfg); err != nil {
		return nil, types.Config{}, systemError(fmt.Errorf("attaching backend: %w", err))
	}
	return b, storeCfg, nil
}

// withService attaches the backend, runs fn with a Service over it, and
// detaches.
func (a *app) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *crm.Service, b *sqlite.Backend) error) error {
	b, storeCfg, err := a.attach()
	if err != nil {
		return err
	}
	defer b.Detach()

	ctx := logger.WithContext(cmd.Context(), a.log.With(zap.String("command", cmd.CommandPath())))
	return fn(ctx, crm.NewService(b, storeCfg, a.log, nil), b)
}

// output writes v as indented JSON in --json mode, otherwise calls human.
func (a *app) output(cmd *cobra.Command, v any, human func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	if a.flags.jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return systemError(fmt.Errorf("encoding JSON: %w", err))
		}
		return nil
	}
	return human(w)
}
