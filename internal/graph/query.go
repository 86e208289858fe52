package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/gebo/internal/apperr"
)

// DefaultSearchLimit caps search results when no limit is given.
const DefaultSearchLimit = 20

// DefaultMaxDepth bounds path searches when no depth is given.
const DefaultMaxDepth = 5

// maxPaths is how many completed paths FindPath records before stopping.
const maxPaths = 3

// Traversal directions for Neighbors.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionBoth     = "both"
)

// SearchOptions narrows a Search. Zero values mean no filter and the
// default limit.
type SearchOptions struct {
	Type  string
	Layer string
	Limit int
}

// Search returns nodes whose id, label, or description contains query
// (case-insensitive). Results keep document order and are truncated at the
// limit; there is no relevance ranking.
func (h *Handle) Search(query string, opts SearchOptions) []*Node {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var inLayer map[string]bool
	if opts.Layer != "" {
		members := h.Document.Layers[opts.Layer]
		inLayer = make(map[string]bool, len(members))
		for _, id := range members {
			inLayer[id] = true
		}
	}

	q := strings.ToLower(query)
	var out []*Node
	for _, n := range h.Document.Nodes {
		if opts.Type != "" && n.Type != opts.Type {
			continue
		}
		if inLayer != nil && !inLayer[n.ID] {
			continue
		}
		haystack := strings.ToLower(n.ID + " " + n.Label + " " + n.Description)
		if !strings.Contains(haystack, q) {
			continue
		}
		out = append(out, n)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// NeighborRef is a neighboring node together with the type of the edge
// that connects it.
type NeighborRef struct {
	Node     *Node  `json:"node"`
	EdgeType string `json:"edge_type"`
}

// NodeDetail is a node enriched with its resolved incoming and outgoing
// neighbors and the first layer that contains it.
//
// Layer reports only the first matching layer even when the node belongs
// to several; this mirrors the historical single-layer behavior that
// existing consumers depend on.
type NodeDetail struct {
	Node     *Node         `json:"node"`
	Incoming []NeighborRef `json:"incoming"`
	Outgoing []NeighborRef `json:"outgoing"`
	Layer    string        `json:"layer,omitempty"`
}

// GetNode returns the node with the given id plus its resolved neighbors,
// or ErrNodeNotFound if absent.
func (h *Handle) GetNode(id string) (*NodeDetail, error) {
	n, ok := h.Index.NodeByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrNodeNotFound, id)
	}

	detail := &NodeDetail{Node: n, Incoming: []NeighborRef{}, Outgoing: []NeighborRef{}}
	for _, e := range h.Index.EdgesByTarget[id] {
		if src, ok := h.Index.NodeByID[e.Source]; ok {
			detail.Incoming = append(detail.Incoming, NeighborRef{Node: src, EdgeType: e.Type})
		}
	}
	for _, e := range h.Index.EdgesBySource[id] {
		if tgt, ok := h.Index.NodeByID[e.Target]; ok {
			detail.Outgoing = append(detail.Outgoing, NeighborRef{Node: tgt, EdgeType: e.Type})
		}
	}

	// Layer names are scanned in sorted order so the reported layer is
	// deterministic even though the membership map is unordered.
	names := make([]string, 0, len(h.Document.Layers))
	for name := range h.Document.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, member := range h.Document.Layers[name] {
			if member == id {
				detail.Layer = name
				return detail, nil
			}
		}
	}
	return detail, nil
}

// Neighbor is one traversal result from Neighbors.
type Neighbor struct {
	Node      *Node  `json:"node"`
	EdgeType  string `json:"edge_type"`
	Direction string `json:"direction"`
}

// Neighbors lists nodes adjacent to id. Direction is incoming, outgoing,
// or both (the default); edgeType optionally restricts the edges followed.
// Edges whose far endpoint is missing from the index are skipped — a
// tolerance for documents corrupted by hand edits, not error suppression.
// With direction both, incoming entries precede outgoing ones.
func (h *Handle) Neighbors(id, direction, edgeType string) ([]Neighbor, error) {
	if _, ok := h.Index.NodeByID[id]; !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrNodeNotFound, id)
	}
	if direction == "" {
		direction = DirectionBoth
	}

	var out []Neighbor
	if direction == DirectionIncoming || direction == DirectionBoth {
		for _, e := range h.Index.EdgesByTarget[id] {
			if edgeType != "" && e.Type != edgeType {
				continue
			}
			src, ok := h.Index.NodeByID[e.Source]
			if !ok {
				continue
			}
			out = append(out, Neighbor{Node: src, EdgeType: e.Type, Direction: DirectionIncoming})
		}
	}
	if direction == DirectionOutgoing || direction == DirectionBoth {
		for _, e := range h.Index.EdgesBySource[id] {
			if edgeType != "" && e.Type != edgeType {
				continue
			}
			tgt, ok := h.Index.NodeByID[e.Target]
			if !ok {
				continue
			}
			out = append(out, Neighbor{Node: tgt, EdgeType: e.Type, Direction: DirectionOutgoing})
		}
	}
	return out, nil
}

// FindPath runs a breadth-first search over outgoing edges from fromID to
// toID and returns up to three paths as ordered id lists. A path with more
// than maxDepth nodes is dropped without expansion. Nodes are marked
// visited when enqueued, so each node appears at most once per path and
// cycles terminate. The result may be empty.
func (h *Handle) FindPath(fromID, toID string, maxDepth int) [][]string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if fromID == toID {
		return [][]string{{fromID}}
	}

	var paths [][]string
	visited := map[string]bool{fromID: true}
	queue := [][]string{{fromID}}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if len(path) > maxDepth {
			continue
		}
		last := path[len(path)-1]
		for _, e := range h.Index.EdgesBySource[last] {
			if e.Target == toID {
				found := make([]string, len(path), len(path)+1)
				copy(found, path)
				paths = append(paths, append(found, toID))
				if len(paths) >= maxPaths {
					return paths
				}
				continue
			}
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			next := make([]string, len(path), len(path)+1)
			copy(next, path)
			queue = append(queue, append(next, e.Target))
		}
	}
	return paths
}

// NodeTypes returns the number of nodes per type.
func (h *Handle) NodeTypes() map[string]int {
	out := make(map[string]int, len(h.Index.NodesByType))
	for typ, nodes := range h.Index.NodesByType {
		out[typ] = len(nodes)
	}
	return out
}

// Layer returns the member nodes of the named layer in membership order,
// or ErrLayerNotFound if the layer does not exist. Member ids that no
// longer resolve are skipped.
func (h *Handle) Layer(name string) ([]*Node, error) {
	ids, ok := h.Document.Layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrLayerNotFound, name)
	}
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := h.Index.NodeByID[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}
