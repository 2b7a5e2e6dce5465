package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the repository tools registered.
func NewMCPServer(tools *RepoTools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "repograph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clone_repo",
		Description: "Clone a remote git repository into the clone directory, replacing any previous checkout. Returns the repository name and its file list.",
	}, tools.CloneRepo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_extraction",
		Description: "Extract imports, definitions and calls from a cloned Python repository and resolve them into cross-file edges. Returns the run ID and summary counts.",
	}, tools.RunExtraction)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_result",
		Description: "Return the nested JSON document of a run: per-file functions, classes and imports plus resolved edges. Defaults to the most recent run.",
	}, tools.GetResult)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_symbols",
		Description: "Search functions and classes of the most recent run by case-insensitive name substring. Optionally filter by kind and limit results.",
	}, tools.QuerySymbols)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse file dependencies of the most recent run upstream or downstream from a unit. Returns dependency chains up to the specified depth.",
	}, tools.GetDependencies)

	return server
}

// Handler serves server over the streamable HTTP transport.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
}

// RunStdio serves the tools over stdin/stdout until ctx is cancelled or the
// client disconnects.
func RunStdio(ctx context.Context, tools *RepoTools) error {
	return NewMCPServer(tools).Run(ctx, &mcp.StdioTransport{})
}
