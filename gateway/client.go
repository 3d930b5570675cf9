// Package gateway wraps outbound calls to the Hyperslop Gateway API. Each
// client method performs exactly one HTTP round trip; there is no batching,
// retrying, or caching of results.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperslop/hyperslop-mcp/config"
	"github.com/hyperslop/hyperslop-mcp/internal/util"
)

// Client performs gateway calls on behalf of the configured node. It is
// safe for concurrent use; the only shared state is the immutable config
// and the underlying http.Client.
type Client struct {
	cfg    *config.Config
	http   *http.Client
	url    string
	logger util.Logger
}

// NewClient creates a gateway client from the process configuration. The
// per-call timeout comes from cfg; expiry surfaces as a [NetworkError].
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		url:    fixLocalhostURL(cfg.URL),
		logger: util.GetLogger("gateway"),
	}
}

// Node returns the configured local node identity. No network call is made.
func (c *Client) Node() string {
	return c.cfg.Node
}

// ReadDirectory lists the contents of a directory on any node in the
// network, in the order the gateway returned them.
func (c *Client) ReadDirectory(ctx context.Context, node, path string) ([]DirEntry, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		ReadPublicDir: &pathArgs{Node: node, Path: path},
	}})
	if err != nil {
		return nil, err
	}
	if env.ReadPublicDir == nil {
		return nil, &NetworkError{Reason: "missing ReadPublicDir payload"}
	}
	return env.ReadPublicDir.Entries, nil
}

// ReadFile returns the text content of a file on any node in the network.
func (c *Client) ReadFile(ctx context.Context, node, path string) (string, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		ReadFile: &pathArgs{Node: node, Path: path},
	}})
	if err != nil {
		return "", err
	}
	if env.ReadFile == nil {
		return "", &NetworkError{Reason: "missing ReadFile payload"}
	}
	return env.ReadFile.Content, nil
}

// ReadFileTree returns the recursive structure of a subtree: names and
// types only, never file contents.
func (c *Client) ReadFileTree(ctx context.Context, node, path string) (*TreeNode, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		ReadFileTree: &pathArgs{Node: node, Path: path},
	}})
	if err != nil {
		return nil, err
	}
	if env.ReadFileTree == nil || env.ReadFileTree.Root == nil {
		return nil, &NetworkError{Reason: "missing ReadFileTree payload"}
	}
	return env.ReadFileTree.Root, nil
}

// CreateDirectory creates a directory on the target node and returns the
// gateway's confirmation.
func (c *Client) CreateDirectory(ctx context.Context, node, path string) (string, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		CreateDir: &pathArgs{Node: node, Path: path},
	}})
	if err != nil {
		return "", err
	}
	return confirmation(env.CreateDir, "CreateDir")
}

// DeleteDirectory deletes a directory and its contents on the target node.
func (c *Client) DeleteDirectory(ctx context.Context, node, path string) (string, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		DeleteDir: &pathArgs{Node: node, Path: path},
	}})
	if err != nil {
		return "", err
	}
	return confirmation(env.DeleteDir, "DeleteDir")
}

// CreateFile creates a new file with the given content on the target node.
func (c *Client) CreateFile(ctx context.Context, node, path, content string) (string, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		CreateFile: &contentArgs{Node: node, Path: path, Content: content},
	}})
	if err != nil {
		return "", err
	}
	return confirmation(env.CreateFile, "CreateFile")
}

// WriteFile writes content to an existing file on the target node.
func (c *Client) WriteFile(ctx context.Context, node, path, content string) (string, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		WriteFile: &contentArgs{Node: node, Path: path, Content: content},
	}})
	if err != nil {
		return "", err
	}
	return confirmation(env.WriteFile, "WriteFile")
}

// DeleteFile deletes a file on the target node.
func (c *Client) DeleteFile(ctx context.Context, node, path string) (string, error) {
	env, err := c.do(ctx, &actionEnvelope{FileSystem: &fileSystemAction{
		DeleteFile: &pathArgs{Node: node, Path: path},
	}})
	if err != nil {
		return "", err
	}
	return confirmation(env.DeleteFile, "DeleteFile")
}

// ReadAPIKey asks the gateway to echo the key it has on file for this node.
// Used as a reachability and credential check, not exposed as an operation.
func (c *Client) ReadAPIKey(ctx context.Context) (string, error) {
	env, err := c.do(ctx, &actionEnvelope{System: &systemAction{}})
	if err != nil {
		return "", err
	}
	if env.ReadApiKey == nil {
		return "", &NetworkError{Reason: "missing ReadApiKey payload"}
	}
	return env.ReadApiKey.Key, nil
}

// do performs one request/response round trip against the gateway endpoint.
// A decoded Error payload becomes a [RemoteError]; everything that prevents
// decoding a payload becomes a [NetworkError].
func (c *Client) do(ctx context.Context, action *actionEnvelope) (*responseEnvelope, error) {
	body, err := json.Marshal(action)
	if err != nil {
		return nil, &NetworkError{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Reason: "build request", Err: err}
	}
	reqID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.Key)
	req.Header.Set("X-Request-Id", reqID)

	c.logger.Debug().Str("request_id", reqID).Int("bytes", len(body)).Msg("Sending gateway request")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Str("request_id", reqID).Err(err).Msg("Gateway request failed")
		return nil, &NetworkError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Reason: "read response", Err: err}
	}

	var env responseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &NetworkError{Reason: fmt.Sprintf("gateway returned status %d", resp.StatusCode)}
		}
		return nil, &NetworkError{Reason: "malformed response", Err: err}
	}
	if env.Error != nil {
		c.logger.Debug().Str("request_id", reqID).Str("message", env.Error.Message).Msg("Gateway reported failure")
		return nil, &RemoteError{Message: env.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{Reason: fmt.Sprintf("gateway returned status %d", resp.StatusCode)}
	}

	return &env, nil
}

// confirmation normalizes a mutation payload into a short status string.
func confirmation(status *opStatus, action string) (string, error) {
	if status == nil {
		return "", &NetworkError{Reason: "missing " + action + " payload"}
	}
	if status.Status == "" {
		return "ok", nil
	}
	return status.Status, nil
}

// fixLocalhostURL rewrites localhost and *.localhost hosts to 127.0.0.1,
// preserving the port. Gateway deployments hand out per-node subdomains of
// localhost during development and those do not resolve everywhere.
func fixLocalhostURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := u.Hostname()
	if host != "localhost" && !strings.HasSuffix(host, ".localhost") {
		return raw
	}
	if port := u.Port(); port != "" {
		u.Host = "127.0.0.1:" + port
	} else {
		u.Host = "127.0.0.1"
	}
	return u.String()
}
