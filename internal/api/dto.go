package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/graphstore"
	"github.com/starford/gebo/internal/models"
)

// AddNodeRequest is the request body for creating a node.
type AddNodeRequest struct {
	ID          string         `json:"id" example:"auth-service" validate:"required"`
	Type        string         `json:"type" example:"Function" validate:"required"`
	Label       string         `json:"label" example:"Auth service" validate:"required"`
	Description string         `json:"description,omitempty"`
	File        string         `json:"file,omitempty" example:"auth/service.go"`
	Line        int            `json:"line,omitempty" example:"42"`
	Inferred    bool           `json:"inferred,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Validate checks the required node fields.
func (r AddNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.Label, validation.Required),
	)
}

// Node converts the request into the engine's node type.
func (r AddNodeRequest) Node() *graph.Node {
	return &graph.Node{
		ID:          r.ID,
		Type:        r.Type,
		Label:       r.Label,
		Description: r.Description,
		File:        r.File,
		Line:        r.Line,
		Inferred:    r.Inferred,
		Meta:        r.Meta,
	}
}

// AddEdgeRequest is the request body for creating an edge.
type AddEdgeRequest struct {
	Source      string `json:"source" example:"login" validate:"required"`
	Target      string `json:"target" example:"session" validate:"required"`
	Type        string `json:"type" example:"includes" validate:"required"`
	Layer       string `json:"layer,omitempty" example:"workflow"`
	Description string `json:"description,omitempty"`
}

// Validate checks the required edge fields.
func (r AddEdgeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Target, validation.Required),
		validation.Field(&r.Type, validation.Required),
	)
}

// Edge converts the request into the engine's edge type.
func (r AddEdgeRequest) Edge() *graph.Edge {
	return &graph.Edge{
		Source:      r.Source,
		Target:      r.Target,
		Type:        r.Type,
		Layer:       r.Layer,
		Description: r.Description,
	}
}

// AddToLayerRequest is the request body for tagging a node into a layer.
type AddToLayerRequest struct {
	ID string `json:"id" example:"login" validate:"required"`
}

// Validate checks the required membership fields.
func (r AddToLayerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
	)
}

// SaveRequest is the request body for persisting a graph. Absent flags
// default to true.
type SaveRequest struct {
	Backup *bool `json:"backup,omitempty"`
	Sort   *bool `json:"sort,omitempty"`
}

// GraphListResponse wraps the workspace graph listing.
type GraphListResponse struct {
	Graphs []models.GraphFile `json:"graphs" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []*graph.Node `json:"results" validate:"required"`
}

// PathResponse wraps path-finding results.
type PathResponse struct {
	Paths [][]string `json:"paths" validate:"required"`
}

// RemoveNodeResponse reports a cascade delete.
type RemoveNodeResponse struct {
	Removed      string `json:"removed" example:"login"`
	EdgesRemoved int    `json:"edges_removed" example:"2"`
}

// NodeDetail is the enriched node response type (aliased from the engine).
type NodeDetail = graph.NodeDetail

// SaveResult is the save response type (aliased from the store layer).
type SaveResult = graphstore.SaveResult
