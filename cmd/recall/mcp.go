package recall

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/soundprediction/recall/pkg/server/handlers"
	"github.com/soundprediction/recall/pkg/tools"
	"github.com/soundprediction/recall/pkg/utils"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Recall MCP server",
	Long: `Start a Model Context Protocol server exposing Recall as tools:
search, create_entity, get_entity, list_entities, create_relationship,
get_relationships and search_analytics.

The stdio transport serves a single client on stdin/stdout. The http
transport serves streamable HTTP on --host and --port.`,
	RunE: runMCP,
}

var (
	mcpTransport string
	mcpHost      string
	mcpPort      int
)

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport mode: stdio or http")
	mcpCmd.Flags().StringVar(&mcpHost, "host", "localhost", "HTTP host (only used with --transport http)")
	mcpCmd.Flags().IntVar(&mcpPort, "port", 8081, "HTTP port (only used with --transport http)")

	addStorageFlags(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := tools.NewServer(a.client, handlers.Version, a.logger)

	switch mcpTransport {
	case "stdio":
		a.logger.Info("MCP server starting", "transport", "stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server error: %w", err)
		}
		return nil

	case "http":
		addr := fmt.Sprintf("%s:%d", mcpHost, mcpPort)
		httpServer := &http.Server{
			Addr: addr,
			Handler: mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
				return srv
			}, nil),
		}

		errChan := make(chan error, 1)
		utils.SafeGo(func() {
			a.logger.Info("MCP server listening", "transport", "http", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}, func(err error) { errChan <- err })

		select {
		case err := <-errChan:
			return fmt.Errorf("mcp http server error: %w", err)
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)
		}

	default:
		return fmt.Errorf("unknown transport: %s (use stdio or http)", mcpTransport)
	}
}
