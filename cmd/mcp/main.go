package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/guardkit/guardkit/internal/mcpadapter"
	"github.com/guardkit/guardkit/internal/setup"
	setuplogger "github.com/guardkit/guardkit/internal/setup/logger"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	logger := setuplogger.New("guardkit-mcp", os.Getenv("LOG_LEVEL"))
	log.Logger = logger

	// Load env
	_ = godotenv.Load()

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load Config
	cfg := setup.LoadConfig()

	// Wire dependencies
	deps, err := setup.Wire(ctx, cfg, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to load dependencies")
		os.Exit(1)
	}

	// Create MCP Server
	server := createMCPServer(deps)

	// Run over stdio
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		// EOF / "server is closing" is expected when stdin closes
		if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "server is closing") {
			logger.Debug().Err(err).Msg("MCP server stopped")
			return
		}
		logger.Error().Err(err).Msg("Failed to run mcp server")
		os.Exit(1)
	}
}

func createMCPServer(deps *setup.Dependencies) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "guardkit",
			Version: "1.0.0",
		}, nil,
	)

	// Add Tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_text",
		Description: "Run the configured validator chain against a text and return the guard result with per-validator outcomes",
	}, mcpadapter.NewValidateTextHandler(deps.Guard))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_single",
		Description: "Run one named validator (toxic-language, detect-pii, regex-match, or a configured llm validator). Faster than the full chain.",
	}, mcpadapter.NewValidateSingleHandler(deps.Executor))
	return server
}
