package graph

import (
	"fmt"

	"github.com/starford/gebo/internal/apperr"
)

// Mutations update the document and all four index structures together
// before returning. Validation completes fully before the first write, so
// a failed mutation leaves the handle exactly as it was.

// AddNode validates and appends a new node. ID, Type, and Label are
// required; an existing id is rejected with ErrDuplicateID.
func (h *Handle) AddNode(n *Node) (*Node, error) {
	switch {
	case n.ID == "":
		return nil, fmt.Errorf("%w: id", apperr.ErrMissingField)
	case n.Type == "":
		return nil, fmt.Errorf("%w: type", apperr.ErrMissingField)
	case n.Label == "":
		return nil, fmt.Errorf("%w: label", apperr.ErrMissingField)
	}
	if _, exists := h.Index.NodeByID[n.ID]; exists {
		return nil, fmt.Errorf("%w: %q", apperr.ErrDuplicateID, n.ID)
	}

	h.Document.Nodes = append(h.Document.Nodes, n)
	h.Index.NodeByID[n.ID] = n
	h.Index.NodesByType[n.Type] = append(h.Index.NodesByType[n.Type], n)
	return n, nil
}

// AddEdge validates and appends a new edge. Both endpoints must exist
// (each checked separately so the error names the missing one) and the
// (source, target, type) triple must be new.
func (h *Handle) AddEdge(e *Edge) (*Edge, error) {
	if _, ok := h.Index.NodeByID[e.Source]; !ok {
		return nil, fmt.Errorf("%w: source %q", apperr.ErrUnknownNode, e.Source)
	}
	if _, ok := h.Index.NodeByID[e.Target]; !ok {
		return nil, fmt.Errorf("%w: target %q", apperr.ErrUnknownNode, e.Target)
	}
	for _, existing := range h.Index.EdgesBySource[e.Source] {
		if existing.Target == e.Target && existing.Type == e.Type {
			return nil, fmt.Errorf("%w: %s -[%s]-> %s", apperr.ErrDuplicateEdge, e.Source, e.Type, e.Target)
		}
	}

	h.Document.Edges = append(h.Document.Edges, e)
	h.Index.EdgesBySource[e.Source] = append(h.Index.EdgesBySource[e.Source], e)
	h.Index.EdgesByTarget[e.Target] = append(h.Index.EdgesByTarget[e.Target], e)
	return e, nil
}

// AddToLayer appends nodeID to the named layer, creating the layer if it
// is new. Adding a node twice to the same layer is rejected.
func (h *Handle) AddToLayer(nodeID, layer string) error {
	if _, ok := h.Index.NodeByID[nodeID]; !ok {
		return fmt.Errorf("%w: %q", apperr.ErrUnknownNode, nodeID)
	}
	for _, member := range h.Document.Layers[layer] {
		if member == nodeID {
			return fmt.Errorf("%w: node %q in layer %q", apperr.ErrAlreadyInLayer, nodeID, layer)
		}
	}
	h.Document.Layers[layer] = append(h.Document.Layers[layer], nodeID)
	return nil
}

// RemoveNode deletes a node, every edge touching it, and all of its layer
// memberships. It returns the number of cascade-removed edges.
func (h *Handle) RemoveNode(nodeID string) (int, error) {
	n, ok := h.Index.NodeByID[nodeID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperr.ErrUnknownNode, nodeID)
	}

	// Cascade: drop every edge whose source or target is the node.
	removed := 0
	kept := h.Document.Edges[:0]
	for _, e := range h.Document.Edges {
		if e.Source == nodeID || e.Target == nodeID {
			removed++
			if e.Source != nodeID {
				h.Index.EdgesBySource[e.Source] = removeEdge(h.Index.EdgesBySource[e.Source], e)
			}
			if e.Target != nodeID {
				h.Index.EdgesByTarget[e.Target] = removeEdge(h.Index.EdgesByTarget[e.Target], e)
			}
			continue
		}
		kept = append(kept, e)
	}
	h.Document.Edges = kept
	delete(h.Index.EdgesBySource, nodeID)
	delete(h.Index.EdgesByTarget, nodeID)

	// Node itself.
	for i, candidate := range h.Document.Nodes {
		if candidate == n {
			h.Document.Nodes = append(h.Document.Nodes[:i], h.Document.Nodes[i+1:]...)
			break
		}
	}
	delete(h.Index.NodeByID, nodeID)
	h.Index.NodesByType[n.Type] = removeNode(h.Index.NodesByType[n.Type], n)
	if len(h.Index.NodesByType[n.Type]) == 0 {
		delete(h.Index.NodesByType, n.Type)
	}

	// Layer memberships.
	for name, members := range h.Document.Layers {
		kept := members[:0]
		for _, member := range members {
			if member != nodeID {
				kept = append(kept, member)
			}
		}
		h.Document.Layers[name] = kept
	}

	return removed, nil
}

// RemoveEdge deletes the edge identified by (source, target, type).
func (h *Handle) RemoveEdge(source, target, edgeType string) error {
	var found *Edge
	for _, e := range h.Index.EdgesBySource[source] {
		if e.Target == target && e.Type == edgeType {
			found = e
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%w: %s -[%s]-> %s", apperr.ErrEdgeNotFound, source, edgeType, target)
	}

	for i, e := range h.Document.Edges {
		if e == found {
			h.Document.Edges = append(h.Document.Edges[:i], h.Document.Edges[i+1:]...)
			break
		}
	}
	h.Index.EdgesBySource[source] = removeEdge(h.Index.EdgesBySource[source], found)
	if len(h.Index.EdgesBySource[source]) == 0 {
		delete(h.Index.EdgesBySource, source)
	}
	h.Index.EdgesByTarget[target] = removeEdge(h.Index.EdgesByTarget[target], found)
	if len(h.Index.EdgesByTarget[target]) == 0 {
		delete(h.Index.EdgesByTarget, target)
	}
	return nil
}

// removeEdge drops e (by identity) from a bucket, preserving order.
func removeEdge(bucket []*Edge, e *Edge) []*Edge {
	for i, candidate := range bucket {
		if candidate == e {
			return append(bucket[:i], bucket[i+1:]...)
		}
	}
	return bucket
}

// removeNode drops n (by identity) from a bucket, preserving order.
func removeNode(bucket []*Node, n *Node) []*Node {
	for i, candidate := range bucket {
		if candidate == n {
			return append(bucket[:i], bucket[i+1:]...)
		}
	}
	return bucket
}
