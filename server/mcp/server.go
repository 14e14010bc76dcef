// Package mcp serves registered sources over the Model Context
// Protocol. One streamable HTTP endpoint exposes three tools: query,
// sources, and describe.
package mcp

import (
	"context"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/astro-panda/queryable/pkg/logging"
)

// Config carries the transport settings for the MCP server.
type Config struct {
	// Listen is the address the HTTP transport binds to.
	Listen string
	// AuthToken, when set, is required as a bearer token on every
	// request. Empty disables authentication.
	AuthToken string
}

// Server hosts the MCP tools over streamable HTTP.
type Server struct {
	deps *ToolDeps
	cfg  Config
	log  logging.Logger
}

// NewServer creates an MCP server around the given tool dependencies.
func NewServer(deps *ToolDeps, cfg Config) *Server {
	return &Server{
		deps: deps,
		cfg:  cfg,
		log:  deps.logger(),
	}
}

// Start runs the MCP server over streamable HTTP (blocking).
func (s *Server) Start() error {
	mcpSrv := mcpserver.NewMCPServer(
		"queryable",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	queryTool := mcp.NewTool("query",
		mcp.WithDescription("Run a filtered, sorted, paged query against a source. Returns a JSON connection with edges, cursors, pageInfo, and totalCount."),
		mcp.WithString("source",
			mcp.Description("Name of the registered source to query"),
			mcp.Required(),
		),
		mcp.WithString("filter",
			mcp.Description("JSON object of filter criteria, e.g. {\"age\":{\"gte\":18},\"or\":[{\"name\":\"alice\"},{\"name\":\"bob\"}]}"),
		),
		mcp.WithString("sort",
			mcp.Description("JSON array of sort keys, e.g. [{\"field\":\"score\",\"direction\":\"desc\"}]"),
		),
		mcp.WithNumber("first",
			mcp.Description("Page size counted from the start of the result"),
		),
		mcp.WithString("after",
			mcp.Description("Cursor to resume after, from a previous page's edges"),
		),
		mcp.WithNumber("last",
			mcp.Description("Page size counted from the end of the result"),
		),
		mcp.WithString("before",
			mcp.Description("Accepted for Relay compatibility but never honored"),
		),
	)
	mcpSrv.AddTool(queryTool, s.deps.HandleQuery)

	sourcesTool := mcp.NewTool("sources",
		mcp.WithDescription("List the registered sources and their row counts"),
	)
	mcpSrv.AddTool(sourcesTool, s.deps.HandleSources)

	describeTool := mcp.NewTool("describe",
		mcp.WithDescription("List a source's fields with kind and nullability"),
		mcp.WithString("source",
			mcp.Description("Name of the registered source to describe"),
			mcp.Required(),
		),
	)
	mcpSrv.AddTool(describeTool, s.deps.HandleDescribe)

	httpServer := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithHTTPContextFunc(s.authContextFunc()),
	)

	s.log.Info("mcp: listening on %s", s.cfg.Listen)
	return httpServer.Start(s.cfg.Listen)
}

// authContextFunc validates the bearer token before the MCP layer
// sees the request. Failures are flagged in the context rather than
// rejected at the transport, so tool calls return a structured error
// the client can read.
func (s *Server) authContextFunc() mcpserver.HTTPContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		if s.cfg.AuthToken == "" {
			return ctx
		}
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] == s.cfg.AuthToken {
			return ctx
		}
		return context.WithValue(ctx, ctxKeyDenied, true)
	}
}
