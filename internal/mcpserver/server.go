// Package mcpserver exposes the aggregator and the PRD validator as MCP
// tools over stdio JSON-RPC.
package mcpserver

import (
	"context"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/joestump/apidocs/internal/build"
	"github.com/joestump/apidocs/internal/config"
	"github.com/joestump/apidocs/internal/logger"
	"github.com/joestump/apidocs/internal/prd"
)

// Builder is the part of the build service the tools use.
type Builder interface {
	Aggregate(write bool) (*build.Build, error)
	Latest() *build.Build
	Validate() (*prd.Report, error)
}

// Server holds the MCP tool handlers.
type Server struct {
	builds Builder
	log    *logger.Logger
}

// NewServer creates tool handlers backed by builds.
func NewServer(builds Builder, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{builds: builds, log: log.Named("mcp")}
}

// MCPServer returns the mcp-go server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"apidocs",
		config.Version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(
		server.ServerTool{Tool: aggregateTool(), Handler: s.handleAggregate},
		server.ServerTool{Tool: validateTool(), Handler: s.handleValidate},
		server.ServerTool{Tool: listTagsTool(), Handler: s.handleListTags},
	)
	return mcpServer
}

// Serve runs the stdio transport on in/out until ctx is cancelled or in is
// closed. Protocol errors go to errLog.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer, errLog *log.Logger) error {
	stdio := server.NewStdioServer(s.MCPServer())
	if errLog != nil {
		stdio.SetErrorLogger(errLog)
	}
	s.log.Info("serving tools over stdio")
	return stdio.Listen(ctx, in, out)
}
