// Package mcpserver exposes a building assistant as Model Context Protocol
// tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zero-day-ai/bimq"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/query"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

const shutdownTimeout = 5 * time.Second

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ErrUnknownTransport is returned by Serve for a transport it does not know.
var ErrUnknownTransport = errors.New("mcpserver: unknown transport")

// Backend answers tool calls. *bimq.Assistant implements it.
type Backend interface {
	Ask(ctx context.Context, text string) (*bimq.Answer, error)
	Execute(q query.Structured) query.Subgraph
	Graph() *graph.Graph
	Schema() graph.Schema
}

// New creates an MCP server with all tools registered.
func New(b Backend) *mcp.Server {
	t := &Tools{Backend: b}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "bimq",
		Version: Version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "ask_building",
		Description: "Answer a natural-language question about the building model (rooms, walls, doors, slabs and how they are connected)",
	}, t.AskBuilding)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "run_structured_query",
		Description: "Select elements by category, name and attribute filters, plus the edges of one relation between them",
	}, t.RunStructuredQuery)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "describe_schema",
		Description: "List the categories, relations, properties and element names present in the building model",
	}, t.DescribeSchema)

	return srv
}

// Serve runs srv on the named transport until ctx ends. addr is used by
// the http transport only.
func Serve(ctx context.Context, srv *mcp.Server, transport, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	switch transport {
	case "", TransportStdio:
		logger.Info("mcp server starting", "transport", TransportStdio)
		return srv.Run(ctx, &mcp.StdioTransport{})

	case TransportHTTP:
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		hs := &http.Server{Addr: addr, Handler: handler}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("mcp server listening", "transport", TransportHTTP, "addr", addr)
			errCh <- hs.ListenAndServe()
		}()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return nil
		}

	default:
		return fmt.Errorf("%w: %s (use stdio or http)", ErrUnknownTransport, transport)
	}
}
