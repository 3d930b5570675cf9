package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperslop/hyperslop-mcp/gateway"
	"github.com/hyperslop/hyperslop-mcp/router"
)

func (f *Facade) handleRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return f.dispatch(ctx, req, false)
}

func (f *Facade) handleWrite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return f.dispatch(ctx, req, true)
}

// dispatch is the shared body of the read and write tools. Every error from
// the layers below is converted to an MCP error result here: handlers return
// a nil Go error so transport-level failures never masquerade as protocol
// failures.
func (f *Facade) dispatch(ctx context.Context, req mcp.CallToolRequest, write bool) (*mcp.CallToolResult, error) {
	opReq := parseRequest(req)
	op := opReq.Operation

	f.logger.Info().
		Str("operation", string(op)).
		Str("node", opReq.Node).
		Str("path", opReq.Path).
		Bool("write", write).
		Msg("Tool call")

	var err error
	defer func() { f.rec.Record(string(op), err) }()

	// Each tool accepts only its own half of the operation set. Unknown
	// operations fall through to router validation.
	if op.Known() {
		if op.Writes() != write {
			err = &router.ValidationError{
				Field:  "operation",
				Reason: fmt.Sprintf("%s is not available on this tool", op),
			}
			return errorResult(op, err), nil
		}
		// Write authorization is decided here, before the router ever sees
		// the request. An empty node falls through to router validation.
		if write && opReq.Node != "" && opReq.Node != f.client.Node() {
			err = &AuthorizationError{Node: opReq.Node, Local: f.client.Node()}
			return errorResult(op, err), nil
		}
	}

	f.notifyProgress(ctx, req, 0, 1)
	var result any
	result, err = f.router.Dispatch(ctx, opReq)
	f.notifyProgress(ctx, req, 1, 1)

	if err != nil {
		f.logger.Warn().Str("operation", string(op)).Err(err).Msg("Operation failed")
		return errorResult(op, err), nil
	}
	return mcp.NewToolResultText(formatResult(result)), nil
}

func (f *Facade) handlePing(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong"), nil
}

// handleWhoami reports the local identity and checks the credential against
// the gateway. The key itself is never echoed back to the caller.
func (f *Facade) handleWhoami(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := f.client.Node()
	if _, err := f.client.ReadAPIKey(ctx); err != nil {
		f.logger.Warn().Err(err).Msg("Gateway credential check failed")
		return mcp.NewToolResultText(fmt.Sprintf("node: %s\ngateway: unreachable or key rejected (%v)", node, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("node: %s\ngateway: ok", node)), nil
}

func parseRequest(req mcp.CallToolRequest) router.Request {
	return router.Request{
		Operation: router.Op(req.GetString("operation", "")),
		Node:      req.GetString("node", ""),
		Path:      req.GetString("path", ""),
		Content:   req.GetString("content", ""),
	}
}

// formatResult renders a router result for the protocol envelope: plain
// strings pass through, structured results are serialized as indented JSON.
func formatResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// errorResult converts a typed error into the protocol's error-result shape.
// The message always names the operation and a short cause category.
func errorResult(op router.Op, err error) *mcp.CallToolResult {
	var (
		vErr *router.ValidationError
		aErr *AuthorizationError
		rErr *gateway.RemoteError
		nErr *gateway.NetworkError
	)
	var kind string
	switch {
	case errors.As(err, &vErr):
		kind = "invalid arguments"
	case errors.As(err, &aErr):
		kind = "not authorized"
	case errors.As(err, &rErr):
		kind = "gateway rejected the operation"
	case errors.As(err, &nErr):
		kind = "gateway unreachable"
	default:
		kind = "unexpected failure"
	}
	name := string(op)
	if name == "" {
		name = "(missing operation)"
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s: %v", name, kind, err))
}

// notifyProgress emits a progress notification when the caller supplied a
// progress token. A call is a single remote round trip, so one begin/done
// pair covers it.
func (f *Facade) notifyProgress(ctx context.Context, req mcp.CallToolRequest, progress, total float64) {
	if req.Params.Meta == nil || req.Params.Meta.ProgressToken == nil {
		return
	}
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return
	}
	err := srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
		"progressToken": req.Params.Meta.ProgressToken,
		"progress":      progress,
		"total":         total,
	})
	if err != nil {
		f.logger.Debug().Err(err).Msg("Progress notification dropped")
	}
}
