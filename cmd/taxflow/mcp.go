package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpAdapter "github.com/lucasmbraga/taxflow/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the workflow engine as an MCP server, letting AI agents drive
IPTU payment conversations as a tool.

Supported transports:
- stdio (default): standard input/output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		engine, logger, cleanup, err := buildEngine(cfg)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		defer engine.Flush()

		srv := mcpAdapter.NewServer(engine, mcpAdapter.WithLogger(logger))

		switch transport {
		case "stdio":
			// Keep stdout clean for JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("starting taxflow MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("starting taxflow MCP server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					logger.Error("MCP server execution failed", "err", err)
					os.Exit(1)
				}
			}
			logger.Info("MCP server stopped")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
