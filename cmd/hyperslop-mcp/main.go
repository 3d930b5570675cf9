package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperslop/hyperslop-mcp/config"
	"github.com/hyperslop/hyperslop-mcp/gateway"
	"github.com/hyperslop/hyperslop-mcp/internal/stats"
	"github.com/hyperslop/hyperslop-mcp/internal/util"
	"github.com/hyperslop/hyperslop-mcp/router"
	"github.com/hyperslop/hyperslop-mcp/tools"
)

const (
	serverName    = "Hyperslop Gateway"
	serverVersion = "0.1.0"
)

// instructions is surfaced to MCP clients on initialize.
const instructions = `This server provides access to the Hyperslop distributed file system network.
Each node in the network has its own filesystem, and nodes can access each other's files.
Your node name is configured at startup and determines which filesystem you can modify.
Use the get_node_name operation of the gateway_read tool to discover your node's name.`

func main() {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		addr       string
	)
	flag.StringVar(&configPath, "config", config.DefaultConfigFile, "Path to config file (.json or .yaml)")
	flag.StringVar(&configPath, "c", config.DefaultConfigFile, "--config (shorthand)")
	flag.IntVar(&verbose, "verbose", config.InfoVerbose, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", config.InfoVerbose, "--verbose (shorthand)")
	flag.StringVar(&addr, "addr", "", "Listen address for the SSE transport, e.g. :8815. Empty serves stdio.")
	flag.StringVar(&addr, "a", "", "--addr (shorthand)")
	flag.Parse()

	// Initialize logger. The verbosity flag always wins over config files so
	// the level is known before any config is read.
	cfg := config.NewConfig(&config.ConfigOverride{LogLvl: &verbose})
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	logger.Info().Int("verbose", verbose).Str("config", configPath).Msg("Hyperslop gateway adapter initializing")

	// Config precedence: defaults < file < environment. A missing file is
	// tolerated when the environment supplies the credentials instead.
	if override, err := config.LoadConfigOverrideFile(configPath); err != nil {
		logger.Warn().Err(err).Str("config", configPath).Msg("Failed to load config file, relying on environment")
	} else {
		cfg.Merge(override)
		logger.Debug().Str("config", configPath).Msg("Config file loaded")
	}
	cfg.Merge(config.LoadEnvOverride())
	cfg.Merge(&config.ConfigOverride{LogLvl: &verbose})

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	client := gateway.NewClient(cfg)
	rt := router.New(client)
	rec := stats.NewRecorder()
	facade := tools.NewFacade(client, rt, rec)

	srv := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)
	facade.Register(srv)

	logger.Info().Str("node", cfg.Node).Str("url", cfg.URL).Msg("Gateway client initialized")

	if addr != "" {
		serveSSE(srv, addr, logger)
	} else {
		logger.Info().Msg("Serving MCP over stdio")
		errLogger := util.NewLogLogger("mcp", util.ErrorLevel)
		if err := server.ServeStdio(srv, server.WithErrorLogger(errLogger)); err != nil {
			logger.Error().Err(err).Msg("Stdio server terminated")
		}
	}

	for op, counts := range rec.Snapshot() {
		logger.Info().
			Str("operation", op).
			Int64("calls", counts.Calls).
			Int64("failures", counts.Failures).
			Msg("Operation totals")
	}
}

// serveSSE runs the MCP server over SSE until a termination signal arrives.
func serveSSE(srv *server.MCPServer, addr string, logger util.Logger) {
	sse := server.NewSSEServer(srv)
	go func() {
		if err := sse.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Str("addr", addr).Msg("SSE server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Serving MCP over SSE")

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sse.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("SSE shutdown failed")
	}
}
