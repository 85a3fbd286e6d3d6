package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kazz187/microwin/internal/client"
	"github.com/kazz187/microwin/pkg/clog"
)

func newServer(c *client.Client) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mcp-microwin",
			Title:   "microwin MCP Server",
			Version: "v1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Helps the user work through one task in small steps. " +
				"Call microwin_get_current_task first. Refer to steps by their number. " +
				"Suggest microwin_break_down_step when a step feels too big.",
		},
	)
	register(server, &tools{client: c})
	return server
}

func main() {
	logger := slog.New(clog.NewTextHandler(os.Stderr))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := NewConfig()
	if err != nil {
		logger.ErrorContext(ctx, "failed to create config", "error", err)
		os.Exit(1)
	}

	server := newServer(client.New(nil, cfg.ServerURL, cfg.APIKey))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.ErrorContext(ctx, "failed to run server", "error", err)
		os.Exit(1)
	}
}
