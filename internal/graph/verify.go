package graph

import (
	"fmt"
	"sort"
	"strings"
)

// exampleCap limits how many node ids an aggregate finding lists.
const exampleCap = 5

// Stats summarizes a verified graph.
type Stats struct {
	Nodes    int `json:"nodes"`
	Edges    int `json:"edges"`
	Layers   int `json:"layers"`
	Orphaned int `json:"orphaned"`
}

// Report is the outcome of Verify. Issues are hard integrity errors;
// warnings are soft anomalies. Valid is true iff there are no issues.
type Report struct {
	Valid    bool     `json:"valid"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
	Stats    Stats    `json:"stats"`
}

// Verify scans the document for integrity problems: dangling edge
// endpoints and layer members (issues), duplicate edge triples injected by
// hand edits (issue), orphaned nodes and nodes outside every layer
// (warnings). Findings are ordered deterministically.
func (h *Handle) Verify() *Report {
	r := &Report{Issues: []string{}, Warnings: []string{}}

	// Edge endpoints must resolve.
	for _, e := range h.Document.Edges {
		if _, ok := h.Index.NodeByID[e.Source]; !ok {
			r.Issues = append(r.Issues, fmt.Sprintf("edge %s -[%s]-> %s: unknown source node %q", e.Source, e.Type, e.Target, e.Source))
		}
		if _, ok := h.Index.NodeByID[e.Target]; !ok {
			r.Issues = append(r.Issues, fmt.Sprintf("edge %s -[%s]-> %s: unknown target node %q", e.Source, e.Type, e.Target, e.Target))
		}
	}

	// Layer members must resolve.
	layerNames := make([]string, 0, len(h.Document.Layers))
	for name := range h.Document.Layers {
		layerNames = append(layerNames, name)
	}
	sort.Strings(layerNames)
	for _, name := range layerNames {
		for _, id := range h.Document.Layers[name] {
			if _, ok := h.Index.NodeByID[id]; !ok {
				r.Issues = append(r.Issues, fmt.Sprintf("layer %q: unknown node %q", name, id))
			}
		}
	}

	// Orphaned nodes: no incoming and no outgoing edges.
	var orphans []string
	for _, n := range h.Document.Nodes {
		if len(h.Index.EdgesBySource[n.ID]) == 0 && len(h.Index.EdgesByTarget[n.ID]) == 0 {
			orphans = append(orphans, n.ID)
		}
	}
	if len(orphans) > 0 {
		r.Warnings = append(r.Warnings, aggregate("orphaned nodes (no edges)", orphans))
	}

	// Duplicate (source, type, target) triples bypassing AddEdge.
	seen := make(map[string]int, len(h.Document.Edges))
	duplicates := 0
	for _, e := range h.Document.Edges {
		key := e.Source + "\x00" + e.Type + "\x00" + e.Target
		seen[key]++
		if seen[key] > 1 {
			duplicates++
		}
	}
	if duplicates > 0 {
		r.Issues = append(r.Issues, fmt.Sprintf("%d duplicate edge(s) share a (source, type, target) triple", duplicates))
	}

	// Nodes outside every layer.
	inAnyLayer := make(map[string]bool)
	for _, members := range h.Document.Layers {
		for _, id := range members {
			inAnyLayer[id] = true
		}
	}
	var layerless []string
	for _, n := range h.Document.Nodes {
		if !inAnyLayer[n.ID] {
			layerless = append(layerless, n.ID)
		}
	}
	if len(layerless) > 0 {
		r.Warnings = append(r.Warnings, aggregate("nodes not assigned to any layer", layerless))
	}

	r.Valid = len(r.Issues) == 0
	r.Stats = Stats{
		Nodes:    len(h.Document.Nodes),
		Edges:    len(h.Document.Edges),
		Layers:   len(h.Document.Layers),
		Orphaned: len(orphans),
	}
	return r
}

// aggregate formats a count plus up to exampleCap example ids.
func aggregate(what string, ids []string) string {
	examples := ids
	if len(examples) > exampleCap {
		examples = examples[:exampleCap]
	}
	return fmt.Sprintf("%d %s: %s", len(ids), what, strings.Join(examples, ", "))
}
