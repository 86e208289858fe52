// Package graph implements the in-memory layered graph engine: the
// document model, its derived indexes, queries, mutations, and the
// integrity verifier.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/starford/gebo/internal/apperr"
)

// Node is a graph vertex. ID, Type, and Label are required; the rest are
// optional. Unknown JSON fields survive a load/save round trip through Meta.
type Node struct {
	ID          string
	Type        string
	Label       string
	Description string
	File        string
	Line        int
	Inferred    bool
	Meta        map[string]any
}

// knownNodeKeys are the JSON keys mapped to typed Node fields. Everything
// else lands in Meta.
var knownNodeKeys = []string{"id", "type", "label", "description", "file", "line", "inferred"}

type nodeFields struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Inferred    bool   `json:"inferred,omitempty"`
}

// UnmarshalJSON decodes the typed fields and stashes any remaining keys
// into Meta.
func (n *Node) UnmarshalJSON(data []byte) error {
	var f nodeFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownNodeKeys {
		delete(raw, k)
	}
	var meta map[string]any
	if len(raw) > 0 {
		meta = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			meta[k] = val
		}
	}
	*n = Node{
		ID:          f.ID,
		Type:        f.Type,
		Label:       f.Label,
		Description: f.Description,
		File:        f.File,
		Line:        f.Line,
		Inferred:    f.Inferred,
		Meta:        meta,
	}
	return nil
}

// MarshalJSON merges the typed fields with Meta. Typed fields win on key
// collision so Meta cannot shadow the node's identity.
func (n Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Meta)+len(knownNodeKeys))
	for k, v := range n.Meta {
		out[k] = v
	}
	out["id"] = n.ID
	out["type"] = n.Type
	out["label"] = n.Label
	if n.Description != "" {
		out["description"] = n.Description
	}
	if n.File != "" {
		out["file"] = n.File
	}
	if n.Line != 0 {
		out["line"] = n.Line
	}
	if n.Inferred {
		out["inferred"] = true
	}
	return json.Marshal(out)
}

// Edge is a directed, typed connection between two nodes. Its identity is
// the (Source, Target, Type) triple.
type Edge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Layer       string `json:"layer,omitempty"`
	Description string `json:"description,omitempty"`
}

// Document is the persisted graph: nodes, edges, and named layer
// memberships. Layers are non-exclusive tags; a node may appear in any
// number of them.
type Document struct {
	Nodes  []*Node             `json:"nodes"`
	Edges  []*Edge             `json:"edges"`
	Layers map[string][]string `json:"layers"`
}

// ParseDocument decodes raw JSON bytes into a Document. Absent collections
// default to empty so callers never see nil maps or slices.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrParse, err)
	}
	if doc.Nodes == nil {
		doc.Nodes = []*Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []*Edge{}
	}
	if doc.Layers == nil {
		doc.Layers = map[string][]string{}
	}
	return &doc, nil
}

// Encode serializes the document as 2-space-indented JSON with a trailing
// newline, the conventional on-disk form.
func (d *Document) Encode() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("graph: encode: %w", err)
	}
	return append(out, '\n'), nil
}
