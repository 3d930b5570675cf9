package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperslop/hyperslop-mcp/config"
	"github.com/hyperslop/hyperslop-mcp/gateway"
	"github.com/hyperslop/hyperslop-mcp/internal/stats"
	"github.com/hyperslop/hyperslop-mcp/internal/util"
	"github.com/hyperslop/hyperslop-mcp/router"
)

// fakeGateway is an in-memory gateway implementation backing the handler
// tests: a single shared filesystem addressed by any node name, speaking the
// tagged action envelope protocol.
type fakeGateway struct {
	mu       sync.Mutex
	files    map[string]string
	dirs     map[string]bool
	key      string
	requests atomic.Int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		files: map[string]string{},
		dirs:  map[string]bool{"/": true},
		key:   "test-key",
	}
}

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (g *fakeGateway) handler(w http.ResponseWriter, r *http.Request) {
	g.requests.Add(1)

	var envelope struct {
		FileSystem map[string]struct {
			Node    string `json:"node"`
			Path    string `json:"path"`
			Content string `json:"content"`
		} `json:"FileSystem"`
		System map[string]any `json:"System"`
	}
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	respond := func(payload map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
	fail := func(msg string) {
		respond(map[string]any{"Error": map[string]string{"message": msg}})
	}

	if envelope.System != nil {
		if _, ok := envelope.System["ReadApiKey"]; ok {
			if r.Header.Get("X-API-Key") != g.key {
				fail("invalid api key")
				return
			}
			respond(map[string]any{"ReadApiKey": map[string]string{"key": g.key}})
			return
		}
		fail("unknown system action")
		return
	}

	for action, args := range envelope.FileSystem {
		p := normalize(args.Path)
		switch action {
		case "ReadPublicDir":
			if !g.dirs[p] {
				fail("directory not found: " + p)
				return
			}
			respond(map[string]any{"ReadPublicDir": map[string]any{"entries": g.list(p)}})
		case "ReadFile":
			content, ok := g.files[p]
			if !ok {
				fail("file not found: " + p)
				return
			}
			respond(map[string]any{"ReadFile": map[string]string{"content": content}})
		case "ReadFileTree":
			if !g.dirs[p] {
				fail("directory not found: " + p)
				return
			}
			respond(map[string]any{"ReadFileTree": map[string]any{"root": g.tree(p)}})
		case "CreateDir":
			if g.dirs[p] || g.hasFile(p) {
				fail("already exists: " + p)
				return
			}
			g.dirs[p] = true
			respond(map[string]any{"CreateDir": map[string]string{"status": "created"}})
		case "DeleteDir":
			if !g.dirs[p] {
				fail("directory not found: " + p)
				return
			}
			delete(g.dirs, p)
			for f := range g.files {
				if strings.HasPrefix(f, p+"/") {
					delete(g.files, f)
				}
			}
			respond(map[string]any{"DeleteDir": map[string]string{"status": "deleted"}})
		case "CreateFile":
			if g.hasFile(p) {
				fail("already exists: " + p)
				return
			}
			g.files[p] = args.Content
			respond(map[string]any{"CreateFile": map[string]string{"status": "created"}})
		case "WriteFile":
			if !g.hasFile(p) {
				fail("file not found: " + p)
				return
			}
			g.files[p] = args.Content
			respond(map[string]any{"WriteFile": map[string]string{"status": "written"}})
		case "DeleteFile":
			if !g.hasFile(p) {
				fail("file not found: " + p)
				return
			}
			delete(g.files, p)
			respond(map[string]any{"DeleteFile": map[string]string{"status": "deleted"}})
		default:
			fail("unknown action: " + action)
		}
		return
	}
	fail("empty action envelope")
}

func (g *fakeGateway) hasFile(p string) bool {
	_, ok := g.files[p]
	return ok
}

func (g *fakeGateway) list(dir string) []map[string]string {
	entries := []map[string]string{}
	var names []string
	for f := range g.files {
		if path.Dir(f) == dir {
			names = append(names, path.Base(f)+"\x00file")
		}
	}
	for d := range g.dirs {
		if d != dir && path.Dir(d) == dir {
			names = append(names, path.Base(d)+"\x00directory")
		}
	}
	sort.Strings(names)
	for _, n := range names {
		parts := strings.SplitN(n, "\x00", 2)
		entries = append(entries, map[string]string{"name": parts[0], "type": parts[1]})
	}
	return entries
}

func (g *fakeGateway) tree(dir string) map[string]any {
	node := map[string]any{"name": path.Base(dir), "type": "directory"}
	children := []map[string]any{}
	for _, entry := range g.list(dir) {
		if entry["type"] == "directory" {
			children = append(children, g.tree(path.Join(dir, entry["name"])))
		} else {
			children = append(children, map[string]any{"name": entry["name"], "type": "file"})
		}
	}
	node["children"] = children
	return node
}

func newTestFacade(t *testing.T) (*Facade, *fakeGateway) {
	t.Helper()

	fake := newFakeGateway()
	ts := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		Node:       "local.os",
		URL:        ts.URL,
		Key:        "test-key",
		TimeoutSec: 5,
		LogLvl:     util.ErrorLevel,
	}
	client := gateway.NewClient(cfg)
	return NewFacade(client, router.New(client), stats.NewRecorder()), fake
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, handler toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err, "handlers must translate failures, never return raw errors")
	require.NotNil(t, res)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestWriteTool_ForeignNodeRejectedBeforeDispatch(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)

	res := call(t, f.handleWrite, map[string]any{
		"operation": "create_file",
		"node":      "peer.os",
		"path":      "/evil.txt",
		"content":   "nope",
	})

	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not authorized")
	assert.Contains(t, textOf(t, res), "create_file")
	assert.Zero(t, fake.requests.Load(), "authorization failures must not reach the gateway")
}

func TestReadTool_UnknownOperationRejected(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)

	res := call(t, f.handleRead, map[string]any{
		"operation": "format_disk",
		"node":      "peer.os",
		"path":      "/",
	})

	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "invalid arguments")
	assert.Zero(t, fake.requests.Load())
}

func TestReadTool_WriteOperationNotAccepted(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)

	res := call(t, f.handleRead, map[string]any{
		"operation": "delete_file",
		"node":      "local.os",
		"path":      "/a.txt",
	})

	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not available on this tool")
	assert.Zero(t, fake.requests.Load())
}

func TestWriteTool_ReadOperationNotAccepted(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)

	res := call(t, f.handleWrite, map[string]any{
		"operation": "read_file",
		"node":      "local.os",
		"path":      "/a.txt",
	})

	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not available on this tool")
	assert.Zero(t, fake.requests.Load())
}

func TestReadTool_GetNodeName(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)

	res := call(t, f.handleRead, map[string]any{"operation": "get_node_name"})

	assert.False(t, res.IsError)
	assert.Equal(t, "local.os", textOf(t, res))
	assert.Zero(t, fake.requests.Load(), "get_node_name never issues a network call")
}

func TestRoundTrip_CreateWriteRead(t *testing.T) {
	t.Parallel()

	f, _ := newTestFacade(t)

	res := call(t, f.handleWrite, map[string]any{
		"operation": "create_file",
		"node":      "local.os",
		"path":      "/example.txt",
		"content":   "Hello, world!",
	})
	require.False(t, res.IsError, textOf(t, res))

	res = call(t, f.handleRead, map[string]any{
		"operation": "read_file",
		"node":      "local.os",
		"path":      "/example.txt",
	})
	require.False(t, res.IsError, textOf(t, res))
	assert.Equal(t, "Hello, world!", textOf(t, res))

	res = call(t, f.handleWrite, map[string]any{
		"operation": "write_file",
		"node":      "local.os",
		"path":      "/example.txt",
		"content":   "Goodbye.",
	})
	require.False(t, res.IsError, textOf(t, res))

	res = call(t, f.handleRead, map[string]any{
		"operation": "read_file",
		"node":      "local.os",
		"path":      "/example.txt",
	})
	require.False(t, res.IsError)
	assert.Equal(t, "Goodbye.", textOf(t, res))
}

func TestCreateDirectory_SecondCallAlreadyExists(t *testing.T) {
	t.Parallel()

	f, _ := newTestFacade(t)
	args := map[string]any{
		"operation": "create_directory",
		"node":      "local.os",
		"path":      "a/b",
	}

	res := call(t, f.handleWrite, args)
	require.False(t, res.IsError, textOf(t, res))

	res = call(t, f.handleWrite, args)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "already exists")
	assert.Contains(t, textOf(t, res), "gateway rejected the operation")
}

func TestDeleteFile_MissingPathIsRemoteErrorNotCrash(t *testing.T) {
	t.Parallel()

	f, _ := newTestFacade(t)
	args := map[string]any{
		"operation": "delete_file",
		"node":      "local.os",
		"path":      "/ghost.txt",
	}

	res := call(t, f.handleWrite, args)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not found")

	// Repeating the delete yields the same remote error, not a crash.
	res = call(t, f.handleWrite, args)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not found")
}

func TestReadTool_DirectoryListing(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)
	fake.dirs["/docs"] = true
	fake.files["/docs/a.txt"] = "a"
	fake.files["/docs/b.txt"] = "b"

	res := call(t, f.handleRead, map[string]any{
		"operation": "read_directory",
		"node":      "peer.os",
		"path":      "/docs",
	})
	require.False(t, res.IsError, textOf(t, res))

	var entries []gateway.DirEntry
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &entries))
	assert.Equal(t, []gateway.DirEntry{
		{Name: "a.txt", Type: gateway.EntryTypeFile},
		{Name: "b.txt", Type: gateway.EntryTypeFile},
	}, entries)
}

func TestReadTool_FileTreeShape(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)
	fake.dirs["/src"] = true
	fake.files["/src/main.go"] = "package main"
	fake.files["/readme.txt"] = "hello"

	res := call(t, f.handleRead, map[string]any{
		"operation": "read_file_tree",
		"node":      "peer.os",
		"path":      "/",
	})
	require.False(t, res.IsError, textOf(t, res))

	var root gateway.TreeNode
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &root))

	require.Equal(t, gateway.EntryTypeDirectory, root.Type)
	require.Len(t, root.Children, 2)

	byName := map[string]*gateway.TreeNode{}
	for _, child := range root.Children {
		byName[child.Name] = child
	}
	require.Contains(t, byName, "readme.txt")
	require.Contains(t, byName, "src")
	assert.Nil(t, byName["readme.txt"].Children, "file leaves have no children")
	require.Len(t, byName["src"].Children, 1)
	assert.Equal(t, "main.go", byName["src"].Children[0].Name)
}

func TestPingTool(t *testing.T) {
	t.Parallel()

	f, fake := newTestFacade(t)

	res := call(t, f.handlePing, nil)
	assert.False(t, res.IsError)
	assert.Equal(t, "pong", textOf(t, res))
	assert.Zero(t, fake.requests.Load())
}

func TestWhoamiTool(t *testing.T) {
	t.Parallel()

	f, _ := newTestFacade(t)

	res := call(t, f.handleWhoami, nil)
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "node: local.os")
	assert.Contains(t, textOf(t, res), "gateway: ok")
}

func TestErrorResult_NamesOperationAndCause(t *testing.T) {
	t.Parallel()

	res := errorResult(router.OpReadFile, &gateway.NetworkError{Reason: "request failed"})
	require.True(t, res.IsError)
	text := textOf(t, res)
	assert.Contains(t, text, "read_file")
	assert.Contains(t, text, "gateway unreachable")

	res = errorResult("", &router.ValidationError{Field: "operation", Reason: "missing"})
	assert.Contains(t, textOf(t, res), "(missing operation)")
}

func TestFormatResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", formatResult("plain"))

	out := formatResult([]gateway.DirEntry{{Name: "a", Type: gateway.EntryTypeFile}})
	var entries []gateway.DirEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Name)
}
