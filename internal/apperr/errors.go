// Package apperr defines the sentinel errors shared by the graph engine
// and its transport layers. Callers classify failures with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound means the requested graph document does not exist in storage.
	ErrNotFound = errors.New("not found")
	// ErrParse means the stored bytes are not a valid graph document.
	ErrParse = errors.New("parse error")
	// ErrDuplicateID means a node with the same id already exists.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrDuplicateEdge means an edge with the same (source, target, type) exists.
	ErrDuplicateEdge = errors.New("duplicate edge")
	// ErrAlreadyInLayer means the node is already a member of the layer.
	ErrAlreadyInLayer = errors.New("already in layer")
	// ErrMissingField means a required node field is absent or empty.
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownNode means an operation referenced a nonexistent node id.
	ErrUnknownNode = errors.New("unknown node")
	// ErrEdgeNotFound means a removal targeted an edge that does not exist.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrNodeNotFound means a lookup targeted a node that does not exist.
	ErrNodeNotFound = errors.New("node not found")
	// ErrLayerNotFound means a lookup targeted a layer that does not exist.
	ErrLayerNotFound = errors.New("layer not found")
)
