// Package tools registers the MCP-facing entry points and adapts tool calls
// to the operation router. It is the only layer that speaks the assistant
// protocol: everything below it deals in typed requests and typed errors.
package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperslop/hyperslop-mcp/gateway"
	"github.com/hyperslop/hyperslop-mcp/internal/stats"
	"github.com/hyperslop/hyperslop-mcp/internal/util"
	"github.com/hyperslop/hyperslop-mcp/router"
)

// Tool names as advertised to MCP clients.
const (
	ReadToolName   = "gateway_read"
	WriteToolName  = "gateway_write"
	PingToolName   = "ping"
	WhoamiToolName = "whoami"
)

// AuthorizationError indicates a write operation targeted a node other than
// the locally configured identity. It is raised here, before the request
// reaches the router; the remote API never sees the call.
type AuthorizationError struct {
	Node  string // requested target
	Local string // configured identity
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("write operations are limited to your own node %q, got %q", e.Local, e.Node)
}

// Facade owns the tool handlers and their shared dependencies.
type Facade struct {
	client *gateway.Client
	router *router.Router
	rec    *stats.Recorder
	logger util.Logger
}

// NewFacade wires the tool handlers to a gateway client and router.
func NewFacade(client *gateway.Client, rt *router.Router, rec *stats.Recorder) *Facade {
	return &Facade{
		client: client,
		router: rt,
		rec:    rec,
		logger: util.GetLogger("tools"),
	}
}

// Register adds all tools to the MCP server.
func (f *Facade) Register(s *server.MCPServer) {
	s.AddTool(newReadTool(), f.handleRead)
	s.AddTool(newWriteTool(), f.handleWrite)
	s.AddTool(newPingTool(), f.handlePing)
	s.AddTool(newWhoamiTool(), f.handleWhoami)
}

func newReadTool() mcp.Tool {
	return mcp.NewTool(ReadToolName,
		mcp.WithDescription("Run a read operation against the Hyperslop network. "+
			"You can read from any node in the network. "+
			"Use the get_node_name operation to discover your own node's name."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("The read operation to perform."),
			mcp.Enum(opNames(router.ReadOps())...),
		),
		mcp.WithString("node",
			mcp.Description("The name of the node to read from. Required for every operation except get_node_name."),
		),
		mcp.WithString("path",
			mcp.Description("The file or directory path on the target node. Required for every operation except get_node_name."),
		),
	)
}

func newWriteTool() mcp.Tool {
	return mcp.NewTool(WriteToolName,
		mcp.WithDescription("Run a write operation on your own node's filesystem. "+
			"The node argument must match your configured node name; writes to other nodes are rejected. "+
			"Use the get_node_name operation of "+ReadToolName+" to discover that name."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("The write operation to perform."),
			mcp.Enum(opNames(router.WriteOps())...),
		),
		mcp.WithString("node",
			mcp.Required(),
			mcp.Description("The target node. Must equal your own node name."),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("The file or directory path to create, write or delete."),
		),
		mcp.WithString("content",
			mcp.Description("File content. Required for create_file and write_file."),
		),
	)
}

func newPingTool() mcp.Tool {
	return mcp.NewTool(PingToolName,
		mcp.WithDescription("Health check. Returns pong without touching the gateway."),
	)
}

func newWhoamiTool() mcp.Tool {
	return mcp.NewTool(WhoamiToolName,
		mcp.WithDescription("Report the configured node identity and whether the gateway accepts this adapter's credentials."),
	)
}

func opNames(ops []router.Op) []string {
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, string(op))
	}
	return names
}
