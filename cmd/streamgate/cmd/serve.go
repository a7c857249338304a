package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	streamhttp "github.com/streamgate/streamgate/internal/adapter/inbound/http"
	childadapter "github.com/streamgate/streamgate/internal/adapter/outbound/child"
	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/domain/session"
	"github.com/streamgate/streamgate/internal/observability"
	"github.com/streamgate/streamgate/internal/service"
)

var devMode bool

var serveCmd = &cobra.Command{
	Use:   "serve [-- command [args...]]",
	Short: "Start the gateway",
	Long: `Start streamgate: launch the configured child process and begin
serving it to HTTP clients on the configured multiplexing endpoint.

A command passed after "--" overrides child.command/child.args from the
config file, the same way sentinel-gate's own start command lets a
trailing command override upstream.command.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "enable development mode (verbose logging, text log format)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	if len(args) > 0 {
		cfg.Child.Command = args[0]
		cfg.Child.Args = args[1:]
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logger := observability.NewLogger(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	traceWriter := io.Writer(io.Discard)
	if cfg.DevMode {
		traceWriter = os.Stderr
	}
	providers, err := observability.NewProviders(ctx, "streamgate", traceWriter)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("observability shutdown failed", "error", err)
		}
	}()

	registry := session.NewRegistry()
	proc := childadapter.New(cfg.Child.Command, cfg.Child.Args...)
	timeouts := service.NewTimeoutScheduler(logger)

	batchTimeout, err := time.ParseDuration(cfg.Server.BatchTimeout)
	if err != nil {
		return fmt.Errorf("invalid server.batch_timeout %q: %w", cfg.Server.BatchTimeout, err)
	}

	gw := service.NewGatewayService(proc, registry, nil, logger)

	healthOpts := []streamhttp.Option{
		streamhttp.WithAddr(cfg.Server.HTTPAddr),
		streamhttp.WithEndpointPath(cfg.Server.EndpointPath),
		streamhttp.WithSessionHeader(cfg.Server.SessionHeader),
		streamhttp.WithAllowedOrigin(cfg.CORS.AllowedOrigin),
		streamhttp.WithBatchTimeout(batchTimeout),
		streamhttp.WithBodyLimit(cfg.Server.BodyLimitBytes),
		streamhttp.WithLogger(logger),
		streamhttp.WithChildUptime(gw.Supervisor().StartedAt),
	}
	for path, headers := range cfg.Health.Paths {
		healthOpts = append(healthOpts, streamhttp.WithHealthPath(path, headers))
	}
	transport := streamhttp.NewTransport(registry, gw.Supervisor(), timeouts, healthOpts...)
	gw.SetTransport(transport)

	logger.Info("starting gateway",
		"addr", cfg.Server.HTTPAddr,
		"endpoint", cfg.Server.EndpointPath,
		"child_command", cfg.Child.Command,
	)

	if err := gw.Run(ctx); err != nil {
		return fmt.Errorf("gateway exited: %w", err)
	}
	return nil
}
