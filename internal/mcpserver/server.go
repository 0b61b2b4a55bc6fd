// Package mcpserver exposes the benchmark tool registry as an MCP server, so the
// same simulated tools can be driven from any MCP client.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/gptbench/internal/tools"
)

const serverName = "gptbench-tools"

// Catalog lists the tools to expose.
type Catalog interface {
	Specs() []tools.Spec
}

// Executor dispatches a call. The normalizer is passed here so MCP clients get
// the same argument repairs as benchmarked models.
type Executor interface {
	Execute(ctx context.Context, name string, args any) tools.Result
}

// New builds an MCP server with one tool per registry entry.
func New(version string, catalog Catalog, exec Executor) (*server.MCPServer, error) {
	s := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, spec := range catalog.Specs() {
		schema, err := json.Marshal(spec.JSONSchema())
		if err != nil {
			return nil, fmt.Errorf("encode %s schema: %w", spec.Name, err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(spec.Name, describe(spec), schema), handler(exec))
	}
	return s, nil
}

func describe(spec tools.Spec) string {
	if spec.Description == "" {
		return spec.Signature()
	}
	return fmt.Sprintf("%s\n\n%s", spec.Description, spec.Signature())
}

func handler(exec Executor) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.Params.Name
		res := exec.Execute(ctx, name, req.GetRawArguments())
		if !res.OK() {
			log.Debug().Str("tool", name).Err(res.Err).Msg("mcp tool call failed")
			return mcp.NewToolResultError(res.JSON()), nil
		}
		return mcp.NewToolResultStructured(res.Value(), res.JSON()), nil
	}
}

// Serve runs s over in and out until ctx ends.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	log.Info().Str("server", serverName).Msg("serving tools over stdio")
	if err := server.NewStdioServer(s).Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}
