// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Gebo graph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gebo/internal/audit"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/graphstore"
)

// Server wraps the MCP server with Gebo tools.
type Server struct {
	mcp *server.MCPServer
	mgr *graphstore.Manager
	aud *audit.Log
}

// New creates a new MCP server with all Gebo tools registered.
// aud may be nil when auditing is disabled.
func New(mgr *graphstore.Manager, aud *audit.Log) *Server {
	s := &Server{mgr: mgr, aud: aud}

	s.mcp = server.NewMCPServer(
		"Gebo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the graph documents available in the workspace."),
	), s.listGraphs)

	s.mcp.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Case-insensitive substring search over node ids, labels and descriptions."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document (e.g. project.json)")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to search for")),
		mcp.WithString("type", mcp.Description("Restrict results to one node type")),
		mcp.WithString("layer", mcp.Description("Restrict results to members of one layer")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchNodes)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Get a node with its incoming edges, outgoing edges and layer."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("get_neighbors",
		mcp.WithDescription("List the nodes adjacent to a node, optionally filtered by direction and edge type."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
		mcp.WithString("direction", mcp.Description("incoming, outgoing or both (default both)")),
		mcp.WithString("type", mcp.Description("Restrict to one edge type")),
	), s.getNeighbors)

	s.mcp.AddTool(mcp.NewTool("find_path",
		mcp.WithDescription("Find up to three shortest directed paths between two nodes."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Start node id")),
		mcp.WithString("to", mcp.Required(), mcp.Description("End node id")),
		mcp.WithNumber("max_depth", mcp.Description("Maximum path length in nodes (default 5)")),
	), s.findPath)

	s.mcp.AddTool(mcp.NewTool("list_layer",
		mcp.WithDescription("List the member nodes of a layer."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("layer", mcp.Required(), mcp.Description("Layer name (e.g. workflow, conceptual, technical)")),
	), s.listLayer)

	s.mcp.AddTool(mcp.NewTool("node_types",
		mcp.WithDescription("Count the nodes of each type in a graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
	), s.nodeTypes)

	s.mcp.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a node to a graph. The change stays in memory until save_graph is called. "+
			"Nodes MUST follow the canonical graph format; read the gebo://graph-format resource first."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Unique node id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Node type (e.g. Workflow, Concept, Function)")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Human-readable name")),
		mcp.WithString("description", mcp.Description("Longer free-form text")),
		mcp.WithString("file", mcp.Description("Source file path for technical nodes")),
		mcp.WithNumber("line", mcp.Description("Source line for technical nodes")),
	), s.addNode)

	s.mcp.AddTool(mcp.NewTool("add_edge",
		mcp.WithDescription("Add a directed edge between two existing nodes. In memory until save_graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Edge type (e.g. includes, uses, calls)")),
		mcp.WithString("description", mcp.Description("Optional edge annotation")),
	), s.addEdge)

	s.mcp.AddTool(mcp.NewTool("add_to_layer",
		mcp.WithDescription("Add an existing node to a layer, creating the layer if needed. In memory until save_graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
		mcp.WithString("layer", mcp.Required(), mcp.Description("Layer name")),
	), s.addToLayer)

	s.mcp.AddTool(mcp.NewTool("remove_node",
		mcp.WithDescription("Remove a node, all edges touching it and its layer memberships. In memory until save_graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
	), s.removeNode)

	s.mcp.AddTool(mcp.NewTool("remove_edge",
		mcp.WithDescription("Remove the edge identified by (source, target, type). In memory until save_graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Edge type")),
	), s.removeEdge)

	s.mcp.AddTool(mcp.NewTool("verify_graph",
		mcp.WithDescription("Scan a graph for dangling edges, unknown layer members, duplicate edges and orphaned nodes."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
	), s.verifyGraph)

	s.mcp.AddTool(mcp.NewTool("save_graph",
		mcp.WithDescription("Write the in-memory state of a graph back to disk. Creates a .backup copy of the previous file."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
		mcp.WithBoolean("backup", mcp.Description("Write a .backup of the previous on-disk file (default true)")),
		mcp.WithBoolean("sort", mcp.Description("Sort edges by source then target before writing (default true)")),
	), s.saveGraph)

	s.mcp.AddTool(mcp.NewTool("discard_graph",
		mcp.WithDescription("Drop all unsaved in-memory changes to a graph; the next read reloads it from disk."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Relative path of the graph document")),
	), s.discardGraph)

	s.mcp.AddTool(mcp.NewTool("recent_changes",
		mcp.WithDescription("List recently recorded mutations, newest first."),
		mcp.WithString("graph", mcp.Description("Restrict to one graph document")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 50)")),
	), s.recentChanges)

	s.mcp.AddTool(mcp.NewTool("get_graph_contract",
		mcp.WithDescription("Returns the canonical Gebo graph document contract. "+
			"Call this before creating nodes or edges to ensure correct structure."),
	), s.getGraphContract)

	// Resource: graph format contract.
	s.mcp.AddResource(
		mcp.NewResource("gebo://graph-format", "Graph Format Contract",
			mcp.WithResourceDescription("Canonical JSON graph document format that all graphs must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGraphFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listGraphs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphs, err := s.mgr.ListGraphs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(graphs) == 0 {
		return mcp.NewToolResultText("no graph documents found"), nil
	}
	var paths []string
	for _, g := range graphs {
		paths = append(paths, g.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) searchNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.mgr.Search(ctx, path, query, graph.SearchOptions{
		Type:  req.GetString("type", ""),
		Layer: req.GetString("layer", ""),
		Limit: req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.mgr.GetNode(ctx, path, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNeighbors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	neighbors, err := s.mgr.Neighbors(ctx, path, id, req.GetString("direction", ""), req.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(neighbors) == 0 {
		return mcp.NewToolResultText("no neighbors"), nil
	}
	out, _ := json.MarshalIndent(neighbors, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.mgr.FindPath(ctx, path, from, to, req.GetInt("max_depth", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no path from %s to %s", from, to)), nil
	}
	var lines []string
	for _, p := range paths {
		lines = append(lines, strings.Join(p, " -> "))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listLayer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	layer, err := req.RequireString("layer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.mgr.Layer(ctx, path, layer)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("layer %s is empty", layer)), nil
	}
	out, _ := json.MarshalIndent(nodes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) nodeTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	types, err := s.mgr.NodeTypes(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(types, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := &graph.Node{
		ID:          id,
		Type:        nodeType,
		Label:       label,
		Description: req.GetString("description", ""),
		File:        req.GetString("file", ""),
		Line:        req.GetInt("line", 0),
	}
	if _, err := s.mgr.AddNode(ctx, path, n); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added node %s (unsaved; call save_graph to persist)", id)), nil
}

func (s *Server) addEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edgeType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e := &graph.Edge{
		Source:      source,
		Target:      target,
		Type:        edgeType,
		Description: req.GetString("description", ""),
	}
	if _, err := s.mgr.AddEdge(ctx, path, e); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added edge %s -[%s]-> %s (unsaved)", source, edgeType, target)), nil
}

func (s *Server) addToLayer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	layer, err := req.RequireString("layer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.mgr.AddToLayer(ctx, path, id, layer); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %s to layer %s (unsaved)", id, layer)), nil
}

func (s *Server) removeNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removed, err := s.mgr.RemoveNode(ctx, path, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed node %s and %d edge(s) (unsaved)", id, removed)), nil
}

func (s *Server) removeEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edgeType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.mgr.RemoveEdge(ctx, path, source, target, edgeType); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed edge %s -[%s]-> %s (unsaved)", source, edgeType, target)), nil
}

func (s *Server) verifyGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.mgr.Verify(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.mgr.Save(ctx, path, req.GetBool("backup", true), req.GetBool("sort", true))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result.BackupPath != "" {
		return mcp.NewToolResultText(fmt.Sprintf("saved %s (backup at %s)", result.Path, result.BackupPath)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved %s", result.Path)), nil
}

func (s *Server) discardGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.mgr.Discard(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("discarded unsaved changes to %s", path)), nil
}

func (s *Server) recentChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.aud == nil {
		return mcp.NewToolResultText("auditing is disabled"), nil
	}
	entries, err := s.aud.Recent(req.GetString("graph", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no recorded changes"), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getGraphContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GraphFormatContract), nil
}

func (s *Server) readGraphFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gebo://graph-format",
			MIMEType: "text/markdown",
			Text:     GraphFormatContract,
		},
	}, nil
}
