// Contextiq is the context engine daemon.
//
// It serves the JSON API over HTTP, optionally runs the periodic conflict
// sweep, and with --mcp also serves the MCP tools on stdio.
//
// Configuration comes from ~/.config/contextiq/config.yaml and CONTEXTIQ_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	contextiq
//
//	# Serve MCP on stdio next to the HTTP API
//	contextiq --mcp
//
//	# Configure via environment
//	CONTEXTIQ_SERVER_PORT=9292 CONTEXTIQ_SWEEP_ENABLED=true contextiq
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/contextiq/internal/config"
	httpserver "github.com/fyrsmithlabs/contextiq/internal/http"
	"github.com/fyrsmithlabs/contextiq/internal/logging"
	"github.com/fyrsmithlabs/contextiq/internal/mcp"
	"github.com/fyrsmithlabs/contextiq/internal/services"
	"github.com/fyrsmithlabs/contextiq/internal/sweep"
	"github.com/fyrsmithlabs/contextiq/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const instrumentationName = "github.com/fyrsmithlabs/contextiq"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// options are the daemon's command line flags.
type options struct {
	configPath string
	mcp        bool
}

func newRootCmd() *cobra.Command {
	var o options
	root := &cobra.Command{
		Use:   "contextiq",
		Short: "Context engine daemon",
		Long: `contextiq stores a user's decisions, goals, preferences, known issues and
todos, and serves extraction, validation, conflict detection and ranking over
an HTTP API and, with --mcp, over MCP on stdio.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Version:      version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
	}
	root.Flags().StringVar(&o.configPath, "config", "", "config file (default ~/.config/contextiq/config.yaml)")
	root.Flags().BoolVar(&o.mcp, "mcp", false, "also serve MCP tools on stdin/stdout")
	root.AddCommand(versionCmd(), toolsCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "contextiq by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until ctx is cancelled, a server fails,
// or the MCP client disconnects.
//
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Builds the store, audit sinks and context service
//  4. Starts the HTTP server, the sweep and the MCP stdio server
//  5. Shuts everything down within server.shutdown_timeout
func run(ctx context.Context, o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// stdout belongs to the MCP protocol when --mcp is set
	logCfg, err := logging.FromSettings(cfg.Logging, o.mcp)
	if err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting contextiq",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("store", cfg.Store.Path),
		zap.Bool("mcp", o.mcp),
		zap.Bool("telemetry", tel.IsEnabled()))

	meter := tel.Meter(instrumentationName)
	reg, err := services.Build(services.Options{Config: cfg, Logger: logger, Meter: meter})
	if err != nil {
		shutdownTelemetry(logger, tel, cfg)
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	srv, err := httpserver.NewServer(reg.Service(), logger, &httpserver.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
		RateLimit: httpserver.RateLimitConfig{
			Enabled:   cfg.RateLimit.Enabled,
			Rate:      cfg.RateLimit.Rate,
			Burst:     cfg.RateLimit.Burst,
			ExpiresIn: time.Duration(cfg.RateLimit.ExpiresIn),
		},
		Meter:     meter,
		Telemetry: tel,
	})
	if err != nil {
		_ = reg.Close()
		shutdownTelemetry(logger, tel, cfg)
		return fmt.Errorf("failed to create http server: %w", err)
	}

	var mcpServer *mcp.Server
	if o.mcp {
		mcpServer, err = mcp.NewServer(&mcp.Config{
			Version:      version,
			DefaultOwner: cfg.Owner,
			Logger:       logger,
			Meter:        meter,
		}, reg.Service())
		if err != nil {
			_ = reg.Close()
			shutdownTelemetry(logger, tel, cfg)
			return fmt.Errorf("failed to create mcp server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)

	var sweeper *sweep.Sweeper
	if cfg.Sweep.Enabled {
		sweeper, err = sweep.New(sweep.Config{
			Schedule: cfg.Sweep.Schedule,
			Service:  reg.Service(),
			Logger:   logger,
			Meter:    meter,
		})
		if err != nil {
			logger.Warn(ctx, "conflict sweep disabled", zap.Error(err))
		} else {
			sweeper.Start(gctx)
		}
	}

	if mcpServer != nil {
		g.Go(func() error {
			if err := mcpServer.Run(gctx); err != nil {
				return err
			}
			// the client closed stdin; stop the daemon with it
			return errStdioClosed
		})
	}

	// Shutdown runs once the signal arrives or any server returns.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, errStdioClosed) {
		err = nil
	}

	if sweeper != nil {
		sweeper.Stop()
	}
	if cerr := reg.Close(); cerr != nil {
		logger.Warn(context.Background(), "failed to close services", zap.Error(cerr))
	}
	shutdownTelemetry(logger, tel, cfg)

	if err != nil {
		logger.Error(context.Background(), "contextiq stopped with error", zap.Error(err))
		return err
	}
	logger.Info(context.Background(), "shutdown complete")
	return nil
}

var errStdioClosed = errors.New("mcp stdio session closed")

func shutdownTelemetry(logger *logging.Logger, tel *telemetry.Telemetry, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
}
