// Package main implements ciq, the local command line for a contextiq
// database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/contextiq/internal/config"
	"github.com/fyrsmithlabs/contextiq/internal/logging"
	"github.com/fyrsmithlabs/contextiq/internal/services"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, closeFn := newRootCmd(nil)
	err := root.ExecuteContext(ctx)
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

// cli carries the persistent flags and the registry opened for a command.
type cli struct {
	configPath string
	owner      string
	dbPath     string
	output     string

	cfg      *config.Config
	logger   *logging.Logger
	registry services.Registry

	// build replaces services.Build in tests.
	build func(services.Options) (services.Registry, error)
}

// newRootCmd assembles the command tree. A nil build uses services.Build.
// The returned func closes whatever the executed command opened.
func newRootCmd(build func(services.Options) (services.Registry, error)) (*cobra.Command, func() error) {
	if build == nil {
		build = services.Build
	}
	c := &cli{build: build}

	root := &cobra.Command{
		Use:   "ciq",
		Short: "Inspect and edit contextiq user context",
		Long: `ciq works directly against a contextiq SQLite database.

It manages decisions, goals, preferences, known issues and todos, extracts
candidates from free text, validates proposed actions, and reports conflicts
and rankings.

Examples:
  # Record a decision
  ciq --owner alice decision create "use postgres for storage" --category architecture

  # Extract candidates from notes and confirm them interactively
  ciq --owner alice extract notes.md --review

  # Check an action before running it
  ciq --owner alice validate --type install --target mysql`,
		SilenceUsage:      true,
		Version:           version,
		PersistentPreRunE: c.open,
	}
	root.SetVersionTemplate(fmt.Sprintf("ciq %s (commit %s, built %s)\n", version, gitCommit, buildDate))

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default ~/.config/contextiq/config.yaml)")
	pf.StringVar(&c.owner, "owner", "", "owner id (default: config owner or $CONTEXTIQ_OWNER)")
	pf.StringVar(&c.dbPath, "db", "", "SQLite database path (default: config store.path)")
	pf.StringVarP(&c.output, "output", "o", outputTable, "output format: table or json")

	root.AddCommand(
		decisionCmd(c),
		goalCmd(c),
		preferenceCmd(c),
		issueCmd(c),
		todoCmd(c),
		extractCmd(c),
		validateCmd(c),
		conflictsCmd(c),
		rankCmd(c),
		nextCmd(c),
		exportCmd(c),
		auditCmd(c),
		versionCmd(),
	)
	return root, c.close
}

// open loads config and builds the registry. Commands annotated with
// skipOpen run without one.
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipOpen] == "true" {
		return nil
	}
	if c.output != outputTable && c.output != outputJSON {
		return fmt.Errorf("--output %q must be %s or %s", c.output, outputTable, outputJSON)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.dbPath != "" {
		cfg.Store.Path = config.ExpandHome(c.dbPath)
	}
	if c.owner == "" {
		c.owner = cfg.Owner
	}
	// the CLI keeps its own output clean; only warnings reach stderr
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "console"
	logCfg, err := logging.FromSettings(cfg.Logging, true)
	if err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	reg, err := c.build(services.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	c.cfg, c.logger, c.registry = cfg, logger, reg
	return nil
}

func (c *cli) close() error {
	if c.registry == nil {
		return nil
	}
	err := c.registry.Close()
	c.registry = nil
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return err
}

// requireOwner returns the owner for commands that need one.
func (c *cli) requireOwner() (string, error) {
	if c.owner == "" {
		return "", fmt.Errorf("no owner: pass --owner, set owner in config or CONTEXTIQ_OWNER: %w", usercontext.ErrInvalidInput)
	}
	return c.owner, nil
}

const skipOpen = "ciq.skip-open"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipOpen: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ciq %s\n", version)
	fmt.Fprintf(w, "  commit: %s\n", gitCommit)
	fmt.Fprintf(w, "  built:  %s\n", buildDate)
}
