// Package cli wires configuration, storage, sync and the UI into the
// studytrack command.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sadopc/studytrack/internal/config"
	"github.com/sadopc/studytrack/internal/logging"
	"github.com/sadopc/studytrack/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
)

// isTerminal reports whether fd is attached to a terminal.
var isTerminal = func(fd uintptr) bool { return term.IsTerminal(int(fd)) }

// options holds the global flags and what PersistentPreRunE derives from
// them.
type options struct {
	configFile string
	dataDir    string
	logLevel   string
	backend    string
	verbose    bool

	cfg *config.Config
}

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c string) {
	version = v
	commit = c
}

// Execute runs the command line. Errors are printed here since cobra's own
// error output is silenced.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

// NewRootCmd builds the command tree. Every call returns a fresh tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "studytrack",
		Short: "Study tracker with to-dos, a study timer and optional cloud sync",
		Long: `studytrack keeps your to-dos, daily routine and study sessions in a local
database. Sign in to mirror everything to a remote document so that your
other devices see the same data.

Run without a subcommand to open the terminal UI.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, o)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "c", "", "config file (default <data-dir>/config.yaml)")
	pf.StringVar(&o.dataDir, "data-dir", "", "directory for the database, session and log (default ~/.config/studytrack)")
	pf.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&o.backend, "backend", config.BackendNone, "remote backend: none, redis or http")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "log to stderr (commands other than the UI)")

	root.AddCommand(
		newLoginCmd(o),
		newLogoutCmd(o),
		newStatusCmd(o),
		newSyncCmd(o),
		newExportCmd(o),
		newImportCmd(o),
		newConfigCmd(o),
	)
	return root
}

// load resolves the data directory and reads the configuration. Flags win
// over STUDYTRACK_* variables, which win over the config file.
func (o *options) load(cmd *cobra.Command) error {
	dir := o.dataDir
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return fmt.Errorf("resolve data directory: %w", err)
		}
		dir = d
	}

	v := config.NewViper(dir)
	pf := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("log.level", pf.Lookup("log-level")); err != nil {
		return err
	}
	if err := v.BindPFlag("remote.backend", pf.Lookup("backend")); err != nil {
		return err
	}

	cfg, err := config.Load(v, dir, o.configFile)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// logger returns the logger for a headless command.
func (o *options) logger() (*slog.Logger, io.Closer, error) {
	if o.verbose {
		level, err := o.cfg.Log.SlogLevel()
		if err != nil {
			return nil, nil, err
		}
		return logging.Stderr(level), nopCloser{}, nil
	}
	return logging.New(o.cfg.Log)
}

func runUI(cmd *cobra.Command, o *options) error {
	if !isTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("the UI needs a terminal; run %q to list the other commands", cmd.Root().Name()+" --help")
	}

	log, closer, err := logging.New(o.cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	rt, err := openRuntime(o.cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.start(cmd.Context()); err != nil {
		return err
	}

	coord := rt.coord
	app := tui.NewApp(coord.Storage(), coord.Readiness(), rt.account, func() string {
		return coord.State().String()
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return rt.flush(cmd.Context())
}
