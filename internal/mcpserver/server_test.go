package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gebo/internal/graphstore"
	"github.com/starford/gebo/internal/storage"
	"github.com/starford/gebo/internal/testutil"
)

const fixtureJSON = `{
  "nodes": [
    {"id": "login", "type": "Workflow", "label": "User login"},
    {"id": "session", "type": "Concept", "label": "Session"},
    {"id": "token", "type": "Function", "label": "IssueToken", "file": "auth/token.go", "line": 42}
  ],
  "edges": [
    {"source": "login", "target": "session", "type": "includes"},
    {"source": "session", "target": "token", "type": "uses"}
  ],
  "layers": {
    "workflow": ["login"],
    "conceptual": ["session"]
  }
}
`

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	_, store := testutil.TestWorkspace(t)
	if err := store.Write("project.json", []byte(fixtureJSON)); err != nil {
		t.Fatal(err)
	}

	mgr := graphstore.NewManager(store, nil, nil)
	return New(mgr, nil), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we invoke the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_graphs":
		result, err = srv.listGraphs(ctx, req)
	case "search_nodes":
		result, err = srv.searchNodes(ctx, req)
	case "get_node":
		result, err = srv.getNode(ctx, req)
	case "get_neighbors":
		result, err = srv.getNeighbors(ctx, req)
	case "find_path":
		result, err = srv.findPath(ctx, req)
	case "list_layer":
		result, err = srv.listLayer(ctx, req)
	case "node_types":
		result, err = srv.nodeTypes(ctx, req)
	case "add_node":
		result, err = srv.addNode(ctx, req)
	case "add_edge":
		result, err = srv.addEdge(ctx, req)
	case "add_to_layer":
		result, err = srv.addToLayer(ctx, req)
	case "remove_node":
		result, err = srv.removeNode(ctx, req)
	case "remove_edge":
		result, err = srv.removeEdge(ctx, req)
	case "verify_graph":
		result, err = srv.verifyGraph(ctx, req)
	case "save_graph":
		result, err = srv.saveGraph(ctx, req)
	case "discard_graph":
		result, err = srv.discardGraph(ctx, req)
	case "recent_changes":
		result, err = srv.recentChanges(ctx, req)
	case "get_graph_contract":
		result, err = srv.getGraphContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListGraphsTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_graphs", map[string]interface{}{})
	if text := resultText(r); text != "project.json" {
		t.Errorf("list result = %q", text)
	}
}

func TestSearchNodesTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "search_nodes", map[string]interface{}{
		"graph": "project.json",
		"query": "token",
	})
	text := resultText(r)
	if !strings.Contains(text, `"id": "token"`) {
		t.Errorf("search result = %q", text)
	}

	r = callTool(t, srv, "search_nodes", map[string]interface{}{
		"graph": "project.json",
		"query": "zzz",
	})
	if text := resultText(r); text != "no matches" {
		t.Errorf("empty search result = %q", text)
	}
}

func TestSearchNodesMissingArg(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "search_nodes", map[string]interface{}{"graph": "project.json"})
	if !r.IsError {
		t.Error("expected error result for missing query")
	}
}

func TestGetNodeTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_node", map[string]interface{}{
		"graph": "project.json",
		"id":    "session",
	})
	text := resultText(r)
	if !strings.Contains(text, `"layer": "conceptual"`) {
		t.Errorf("get_node result = %q", text)
	}

	r = callTool(t, srv, "get_node", map[string]interface{}{
		"graph": "project.json",
		"id":    "ghost",
	})
	if !r.IsError {
		t.Error("expected error result for unknown node")
	}
}

func TestFindPathTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "find_path", map[string]interface{}{
		"graph": "project.json",
		"from":  "login",
		"to":    "token",
	})
	if text := resultText(r); text != "login -> session -> token" {
		t.Errorf("find_path result = %q", text)
	}

	r = callTool(t, srv, "find_path", map[string]interface{}{
		"graph": "project.json",
		"from":  "token",
		"to":    "login",
	})
	if text := resultText(r); text != "no path from token to login" {
		t.Errorf("reverse find_path result = %q", text)
	}
}

func TestMutationToolsRoundTrip(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "add_node", map[string]interface{}{
		"graph": "project.json",
		"id":    "metrics",
		"type":  "Function",
		"label": "RecordMetrics",
		"file":  "obs/metrics.go",
		"line":  float64(10),
	})
	if r.IsError {
		t.Fatalf("add_node failed: %s", resultText(r))
	}

	r = callTool(t, srv, "add_edge", map[string]interface{}{
		"graph":  "project.json",
		"source": "token",
		"target": "metrics",
		"type":   "calls",
	})
	if r.IsError {
		t.Fatalf("add_edge failed: %s", resultText(r))
	}

	r = callTool(t, srv, "add_to_layer", map[string]interface{}{
		"graph": "project.json",
		"id":    "metrics",
		"layer": "technical",
	})
	if r.IsError {
		t.Fatalf("add_to_layer failed: %s", resultText(r))
	}

	r = callTool(t, srv, "verify_graph", map[string]interface{}{"graph": "project.json"})
	if !strings.Contains(resultText(r), `"valid": true`) {
		t.Errorf("verify after mutations = %q", resultText(r))
	}

	r = callTool(t, srv, "save_graph", map[string]interface{}{"graph": "project.json"})
	if !strings.Contains(resultText(r), "saved") {
		t.Fatalf("save result = %q", resultText(r))
	}

	data, err := store.Read("project.json")
	if err != nil {
		t.Fatalf("read saved graph: %v", err)
	}
	if !strings.Contains(string(data), `"metrics"`) {
		t.Error("saved graph does not contain the new node")
	}
	if !store.Exists("project.json.backup") {
		t.Error("expected a backup file after save")
	}
}

func TestRemoveNodeTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "remove_node", map[string]interface{}{
		"graph": "project.json",
		"id":    "session",
	})
	if text := resultText(r); text != "removed node session and 2 edge(s) (unsaved)" {
		t.Errorf("remove_node result = %q", text)
	}
}

func TestDiscardGraphTool(t *testing.T) {
	srv, _ := testServer(t)

	callTool(t, srv, "add_node", map[string]interface{}{
		"graph": "project.json",
		"id":    "tmp",
		"type":  "Concept",
		"label": "Tmp",
	})
	r := callTool(t, srv, "discard_graph", map[string]interface{}{"graph": "project.json"})
	if r.IsError {
		t.Fatalf("discard failed: %s", resultText(r))
	}

	r = callTool(t, srv, "get_node", map[string]interface{}{
		"graph": "project.json",
		"id":    "tmp",
	})
	if !r.IsError {
		t.Error("node survived discard")
	}
}

func TestRecentChangesTool(t *testing.T) {
	_, store := testutil.TestWorkspace(t)
	if err := store.Write("project.json", []byte(fixtureJSON)); err != nil {
		t.Fatal(err)
	}
	aud := testutil.TestAudit(t)
	srv := New(graphstore.NewManager(store, aud, nil), aud)

	callTool(t, srv, "add_node", map[string]interface{}{
		"graph": "project.json",
		"id":    "metrics",
		"type":  "Function",
		"label": "RecordMetrics",
	})

	r := callTool(t, srv, "recent_changes", map[string]interface{}{"graph": "project.json"})
	text := resultText(r)
	if !strings.Contains(text, `"op": "add_node"`) || !strings.Contains(text, `"subject": "metrics"`) {
		t.Errorf("recent_changes result = %q", text)
	}
}

func TestRecentChangesToolDisabled(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "recent_changes", map[string]interface{}{})
	if text := resultText(r); text != "auditing is disabled" {
		t.Errorf("recent_changes result = %q", text)
	}
}

func TestGraphContractTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_graph_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Graph Document Contract") {
		t.Error("contract text missing")
	}
}
