// Package router validates batched gateway operation requests and dispatches
// them to the matching gateway client method. It is the single place where
// an operation name turns into a remote call.
package router

import (
	"context"
	"fmt"

	"github.com/hyperslop/hyperslop-mcp/gateway"
	"github.com/hyperslop/hyperslop-mcp/internal/util"
)

// Op is a gateway operation name. The set is closed: Dispatch matches it
// exhaustively and anything outside the enum fails validation.
type Op string

const (
	OpGetNodeName     Op = "get_node_name"
	OpReadDirectory   Op = "read_directory"
	OpReadFile        Op = "read_file"
	OpReadFileTree    Op = "read_file_tree"
	OpCreateDirectory Op = "create_directory"
	OpDeleteDirectory Op = "delete_directory"
	OpCreateFile      Op = "create_file"
	OpWriteFile       Op = "write_file"
	OpDeleteFile      Op = "delete_file"
)

// ReadOps lists the operations open to any node in the network, in the
// order they are advertised in tool schemas.
func ReadOps() []Op {
	return []Op{OpGetNodeName, OpReadDirectory, OpReadFile, OpReadFileTree}
}

// WriteOps lists the operations restricted to the local node identity.
func WriteOps() []Op {
	return []Op{OpCreateDirectory, OpDeleteDirectory, OpCreateFile, OpWriteFile, OpDeleteFile}
}

// Known reports whether op is part of the closed operation set.
func (op Op) Known() bool {
	switch op {
	case OpGetNodeName, OpReadDirectory, OpReadFile, OpReadFileTree,
		OpCreateDirectory, OpDeleteDirectory, OpCreateFile, OpWriteFile, OpDeleteFile:
		return true
	}
	return false
}

// Writes reports whether op mutates the remote filesystem.
func (op Op) Writes() bool {
	switch op {
	case OpCreateDirectory, OpDeleteDirectory, OpCreateFile, OpWriteFile, OpDeleteFile:
		return true
	}
	return false
}

// needsContent reports whether op requires a non-empty content argument.
func (op Op) needsContent() bool {
	return op == OpCreateFile || op == OpWriteFile
}

// Request is one routed operation call. Node, Path and Content are required
// or ignored depending on Operation; see validate.
type Request struct {
	Operation Op     `json:"operation"`
	Node      string `json:"node,omitempty"`
	Path      string `json:"path,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ValidationError names the request field that was missing or invalid.
// Nothing is ever silently defaulted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Router dispatches validated requests to the gateway client.
type Router struct {
	client *gateway.Client
	logger util.Logger
}

// New creates a Router backed by the given gateway client.
func New(client *gateway.Client) *Router {
	return &Router{
		client: client,
		logger: util.GetLogger("router"),
	}
}

// Dispatch validates req and performs the matching gateway call. The result
// is the client method's payload: a string for file content, node identity
// and mutation confirmations, []gateway.DirEntry for listings, and
// *gateway.TreeNode for trees. Validation failures never reach the network.
func (r *Router) Dispatch(ctx context.Context, req Request) (any, error) {
	if err := validate(req); err != nil {
		r.logger.Debug().Str("operation", string(req.Operation)).Err(err).Msg("Rejected request")
		return nil, err
	}

	switch req.Operation {
	case OpGetNodeName:
		return r.client.Node(), nil
	case OpReadDirectory:
		return r.client.ReadDirectory(ctx, req.Node, req.Path)
	case OpReadFile:
		return r.client.ReadFile(ctx, req.Node, req.Path)
	case OpReadFileTree:
		return r.client.ReadFileTree(ctx, req.Node, req.Path)
	case OpCreateDirectory:
		return r.client.CreateDirectory(ctx, req.Node, req.Path)
	case OpDeleteDirectory:
		return r.client.DeleteDirectory(ctx, req.Node, req.Path)
	case OpCreateFile:
		return r.client.CreateFile(ctx, req.Node, req.Path, req.Content)
	case OpWriteFile:
		return r.client.WriteFile(ctx, req.Node, req.Path, req.Content)
	case OpDeleteFile:
		return r.client.DeleteFile(ctx, req.Node, req.Path)
	default:
		// validate rejected unknown operations already
		return nil, &ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", req.Operation)}
	}
}

func validate(req Request) error {
	if !req.Operation.Known() {
		return &ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", req.Operation)}
	}
	// get_node_name is answered from config and takes no further arguments.
	if req.Operation == OpGetNodeName {
		return nil
	}
	if req.Node == "" {
		return &ValidationError{Field: "node", Reason: fmt.Sprintf("required for %s", req.Operation)}
	}
	if req.Path == "" {
		return &ValidationError{Field: "path", Reason: fmt.Sprintf("required for %s", req.Operation)}
	}
	if req.Operation.needsContent() && req.Content == "" {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("required for %s", req.Operation)}
	}
	return nil
}
