// Package graphstore owns the session cache of loaded graph handles and
// the persistence path back to storage. A Manager is an explicit object
// held by the host application, so tests and embedders can run several
// isolated instances and tear them down cleanly.
package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/storage"
)

// Recorder receives one entry per successful mutation. *audit.Log
// satisfies it; a nil Recorder disables auditing.
type Recorder interface {
	Record(graph, op, subject, detail string) error
}

// Manager caches at most one in-memory handle per storage location and
// serializes every engine operation through one mutex. The cache is
// unbounded and evicts only on successful save or explicit discard.
type Manager struct {
	mu      sync.Mutex
	store   storage.Provider
	handles map[string]*graph.Handle // keyed by absolute path
	rec     Recorder
	log     *slog.Logger
}

// NewManager creates a Manager over the given storage provider. rec may
// be nil to disable mutation auditing.
func NewManager(store storage.Provider, rec Recorder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   store,
		handles: make(map[string]*graph.Handle),
		rec:     rec,
		log:     logger,
	}
}

// acquire returns the cached handle for path or loads, parses, and
// indexes it. Must be called with the mutex held.
func (m *Manager) acquire(path string) (*graph.Handle, error) {
	key, err := m.store.Abs(path)
	if err != nil {
		return nil, err
	}
	if h, ok := m.handles[key]; ok {
		return h, nil
	}
	if !m.store.Exists(path) {
		return nil, fmt.Errorf("%w: graph %q", apperr.ErrNotFound, path)
	}
	data, err := m.store.Read(path)
	if err != nil {
		return nil, err
	}
	doc, err := graph.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", path, err)
	}
	h := graph.NewHandle(doc, key)
	m.handles[key] = h
	m.log.Debug("graph loaded",
		slog.String("path", path),
		slog.Int("nodes", len(doc.Nodes)),
		slog.Int("edges", len(doc.Edges)))
	return h, nil
}

// record writes an audit entry, logging instead of failing the mutation
// when the audit store is unavailable.
func (m *Manager) record(path, op, subject, detail string) {
	if m.rec == nil {
		return
	}
	if err := m.rec.Record(path, op, subject, detail); err != nil {
		m.log.Warn("audit record failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
}

// ListGraphs enumerates the graph documents in the workspace.
func (m *Manager) ListGraphs(_ context.Context) ([]models.GraphFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.List("")
}

// Search finds nodes matching query in the given graph.
func (m *Manager) Search(_ context.Context, path, query string, opts graph.SearchOptions) ([]*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	return h.Search(query, opts), nil
}

// GetNode returns one node with resolved neighbors and its layer.
func (m *Manager) GetNode(_ context.Context, path, id string) (*graph.NodeDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	return h.GetNode(id)
}

// Neighbors lists nodes adjacent to id.
func (m *Manager) Neighbors(_ context.Context, path, id, direction, edgeType string) ([]graph.Neighbor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	return h.Neighbors(id, direction, edgeType)
}

// FindPath returns up to three directed paths between two nodes.
func (m *Manager) FindPath(_ context.Context, path, from, to string, maxDepth int) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	return h.FindPath(from, to, maxDepth), nil
}

// NodeTypes returns node counts per type.
func (m *Manager) NodeTypes(_ context.Context, path string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	return h.NodeTypes(), nil
}

// Layer returns the member nodes of a named layer.
func (m *Manager) Layer(_ context.Context, path, name string) ([]*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	return h.Layer(name)
}

// AddNode appends a new node to the graph.
func (m *Manager) AddNode(_ context.Context, path string, n *graph.Node) (*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	created, err := h.AddNode(n)
	if err != nil {
		return nil, err
	}
	m.record(path, "add_node", created.ID, created.Type)
	return created, nil
}

// AddEdge appends a new edge to the graph.
func (m *Manager) AddEdge(_ context.Context, path string, e *graph.Edge) (*graph.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	created, err := h.AddEdge(e)
	if err != nil {
		return nil, err
	}
	m.record(path, "add_edge", edgeSubject(created), created.Layer)
	return created, nil
}

// AddToLayer adds a node to a layer, creating the layer if needed.
func (m *Manager) AddToLayer(_ context.Context, path, nodeID, layer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return err
	}
	if err := h.AddToLayer(nodeID, layer); err != nil {
		return err
	}
	m.record(path, "add_to_layer", nodeID, layer)
	return nil
}

// RemoveNode deletes a node and cascades to its edges and layer
// memberships. It returns the number of cascade-removed edges.
func (m *Manager) RemoveNode(_ context.Context, path, nodeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return 0, err
	}
	removed, err := h.RemoveNode(nodeID)
	if err != nil {
		return 0, err
	}
	m.record(path, "remove_node", nodeID, fmt.Sprintf("cascade removed %d edge(s)", removed))
	return removed, nil
}

// RemoveEdge deletes the edge identified by (source, target, type).
func (m *Manager) RemoveEdge(_ context.Context, path, source, target, edgeType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return err
	}
	if err := h.RemoveEdge(source, target, edgeType); err != nil {
		return err
	}
	m.record(path, "remove_edge", edgeSubject(&graph.Edge{Source: source, Target: target, Type: edgeType}), "")
	return nil
}

// Verify runs the integrity scanner over the graph.
func (m *Manager) Verify(_ context.Context, path string) (*graph.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	return h.Verify(), nil
}

// SaveResult reports where a graph was written and whether a backup of
// the prior bytes was taken.
type SaveResult struct {
	Path       string `json:"path"`
	BackupPath string `json:"backup_path,omitempty"`
}

// Save persists the in-memory document back to storage. When backup is
// true and the file already exists, the current on-disk bytes (the
// pre-mutation state) are copied verbatim to <path>.backup first. When
// sortEdges is true, edges are reordered by (source, target) for output
// readability only. On success the handle is evicted from the cache so
// the next access reloads exactly the bytes now on disk.
func (m *Manager) Save(_ context.Context, path string, backup, sortEdges bool) (*SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.acquire(path)
	if err != nil {
		return nil, err
	}

	res := &SaveResult{Path: path}
	if backup && m.store.Exists(path) {
		backupPath := path + ".backup"
		if err := m.store.Copy(path, backupPath); err != nil {
			return nil, fmt.Errorf("backup %q: %w", path, err)
		}
		res.BackupPath = backupPath
	}

	if sortEdges {
		sort.SliceStable(h.Document.Edges, func(i, j int) bool {
			a, b := h.Document.Edges[i], h.Document.Edges[j]
			if a.Source != b.Source {
				return a.Source < b.Source
			}
			return a.Target < b.Target
		})
	}

	data, err := h.Document.Encode()
	if err != nil {
		return nil, err
	}
	if err := m.store.Write(path, data); err != nil {
		return nil, err
	}

	delete(m.handles, h.Path)
	m.record(path, "save", "", res.BackupPath)
	m.log.Info("graph saved",
		slog.String("path", path),
		slog.Int("nodes", len(h.Document.Nodes)),
		slog.Int("edges", len(h.Document.Edges)))
	return res, nil
}

// Discard drops the cached handle for path without saving, abandoning any
// unsaved mutations. Discarding a graph that is not cached is a no-op.
func (m *Manager) Discard(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, err := m.store.Abs(path)
	if err != nil {
		return err
	}
	if _, ok := m.handles[key]; ok {
		delete(m.handles, key)
		m.record(path, "discard", "", "")
		m.log.Info("graph discarded", slog.String("path", path))
	}
	return nil
}

func edgeSubject(e *graph.Edge) string {
	return fmt.Sprintf("%s -[%s]-> %s", e.Source, e.Type, e.Target)
}
