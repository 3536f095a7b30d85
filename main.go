// Command mast-mcp-server exposes the MAST astronomical archive and the
// ExoMAST exoplanet API as MCP tools.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mast-mcp-server/internal/base"
	"github.com/olgasafonova/mast-mcp-server/internal/config"
	"github.com/olgasafonova/mast-mcp-server/internal/exomast"
	"github.com/olgasafonova/mast-mcp-server/internal/infra"
	"github.com/olgasafonova/mast-mcp-server/internal/mast"
	"github.com/olgasafonova/mast-mcp-server/internal/observations"
	"github.com/olgasafonova/mast-mcp-server/tools"
	"github.com/olgasafonova/mast-mcp-server/tracing"
	"github.com/spf13/cobra"
)

const (
	ServerName    = "mast-mcp-server"
	ServerVersion = "1.0.0"
)

// recoverPanic logs a recovered panic with its stack
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()),
		)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		httpAddr string
		servers  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   ServerName,
		Short: "MCP server for the MAST archive and ExoMAST",
		Long: `An MCP server that searches astronomical observations in the MAST archive
and looks up exoplanets in ExoMAST. Serves stdio by default, or streamable HTTP with --http.`,
		Version:      ServerVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Flags override the environment
			if cmd.Flags().Changed("http") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("servers") {
				if cfg.Servers, err = config.ParseServers(servers); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("log-level") {
				if cfg.LogLevel, err = config.ParseLogLevel(logLevel); err != nil {
					return err
				}
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address (e.g. :8080) instead of stdio")
	cmd.Flags().StringVar(&servers, "servers", strings.Join(config.KnownServers, ","), "Comma-separated sub-servers to mount")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	// Logs go to stderr; stdout carries the MCP protocol in stdio mode
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	defer recoverPanic(logger, "server")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	server, cleanup := newMCPServer(cfg, logger)
	defer cleanup()

	logger.Info("Starting MAST MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"servers", cfg.Servers,
		"mast_url", cfg.MASTURL,
		"exomast_url", cfg.ExoMASTURL,
		"cache_ttl", cfg.CacheTTL,
	)

	if cfg.HTTPAddr != "" {
		return serveHTTP(ctx, server, cfg, logger)
	}
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newMCPServer builds the archive clients and the MCP server with the tools
// and resources of the selected sub-servers.
func newMCPServer(cfg *config.Config, logger *slog.Logger) (*mcp.Server, func()) {
	cache := infra.NewCache(cfg.CacheSize, cfg.CacheTTL)
	opts := []base.ClientOption{
		base.WithLogger(logger),
		base.WithCache(cache),
		base.WithMaxRetries(cfg.MaxRetries),
		base.WithTimeout(cfg.Timeout),
		base.WithUserAgent(ServerName + "/" + ServerVersion),
	}

	mastClient := mast.NewClient(cfg.MASTURL, opts...)
	exoClient := exomast.NewClient(cfg.ExoMASTURL, opts...)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions(cfg.Servers),
	})

	registry := tools.NewHandlerRegistry(observations.NewService(mastClient, logger), exoClient, logger)
	registry.RegisterAll(server, cfg.Servers)
	tools.RegisterResources(server, ServerVersion, cfg.Servers)

	return server, func() {
		mastClient.Close()
		exoClient.Close()
	}
}

// instructions lists the mounted tools for the client
func instructions(servers []string) string {
	var b strings.Builder
	b.WriteString("MAST MCP Server searches the Mikulski Archive for Space Telescopes and ExoMAST.\n\nAvailable tools:\n")
	for _, name := range servers {
		for _, spec := range tools.ToolsByServer(name) {
			fmt.Fprintf(&b, "- %s: %s\n", spec.Name, spec.Title)
		}
	}
	b.WriteString("\nConfigure via environment variables: MAST_API_URL, EXOMAST_API_URL, MAST_TIMEOUT, MAST_MAX_RETRIES, MAST_CACHE_TTL.")
	return b.String()
}
