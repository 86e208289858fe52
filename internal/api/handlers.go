package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/audit"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/graphstore"
)

// Handler holds API route handlers.
type Handler struct {
	mgr *graphstore.Manager
	aud *audit.Log // may be nil when auditing is disabled
}

// NewHandler creates a new Handler.
func NewHandler(mgr *graphstore.Manager, aud *audit.Log) *Handler {
	return &Handler{mgr: mgr, aud: aud}
}

// graphParam extracts the target graph document from the query string.
func graphParam(r *http.Request) string {
	return r.URL.Query().Get("graph")
}

// urlParam returns a chi route parameter with encoded slashes decoded
// (e.g. auth%2Ftoken for ids derived from file paths).
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrNodeNotFound),
		errors.Is(err, apperr.ErrEdgeNotFound),
		errors.Is(err, apperr.ErrLayerNotFound),
		errors.Is(err, apperr.ErrUnknownNode):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrDuplicateID),
		errors.Is(err, apperr.ErrDuplicateEdge),
		errors.Is(err, apperr.ErrAlreadyInLayer):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrMissingField),
		errors.Is(err, apperr.ErrParse):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListGraphs handles GET /api/graphs.
//
//	@Summary		List graph documents in the workspace
//	@Tags			graphs
//	@Produce		json
//	@Success		200	{object}	GraphListResponse
//	@Security		BearerAuth
//	@Router			/graphs [get]
func (h *Handler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.mgr.ListGraphs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": graphs})
}

// Search handles GET /api/search.
//
//	@Summary		Substring search over node id, label, and description
//	@Tags			query
//	@Produce		json
//	@Param			graph	query		string	true	"Graph document path"
//	@Param			q		query		string	true	"Search query"
//	@Param			type	query		string	false	"Restrict to node type"
//	@Param			layer	query		string	false	"Restrict to layer members"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	results, err := h.mgr.Search(r.Context(), path, q.Get("q"), graph.SearchOptions{
		Type:  q.Get("type"),
		Layer: q.Get("layer"),
		Limit: limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []*graph.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary		Get a node with resolved neighbors and layer
//	@Tags			query
//	@Produce		json
//	@Param			graph	query		string	true	"Graph document path"
//	@Param			id		path		string	true	"Node id"
//	@Success		200		{object}	NodeDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	detail, err := h.mgr.GetNode(r.Context(), path, urlParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Neighbors handles GET /api/nodes/{id}/neighbors.
//
//	@Summary		List nodes adjacent to a node
//	@Tags			query
//	@Produce		json
//	@Param			graph		query		string	true	"Graph document path"
//	@Param			id			path		string	true	"Node id"
//	@Param			direction	query		string	false	"Traversal direction"	Enums(incoming, outgoing, both)
//	@Param			type		query		string	false	"Restrict to edge type"
//	@Success		200			{array}		graph.Neighbor
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id}/neighbors [get]
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	q := r.URL.Query()
	neighbors, err := h.mgr.Neighbors(r.Context(), path, urlParam(r, "id"), q.Get("direction"), q.Get("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	if neighbors == nil {
		neighbors = []graph.Neighbor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"neighbors": neighbors})
}

// FindPath handles GET /api/path.
//
//	@Summary		Find up to three directed paths between two nodes
//	@Tags			query
//	@Produce		json
//	@Param			graph		query		string	true	"Graph document path"
//	@Param			from		query		string	true	"Start node id"
//	@Param			to			query		string	true	"End node id"
//	@Param			max_depth	query		int		false	"Max path length in nodes"
//	@Success		200			{object}	PathResponse
//	@Security		BearerAuth
//	@Router			/path [get]
func (h *Handler) FindPath(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if path == "" || from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("'graph', 'from' and 'to' are required"))
		return
	}
	maxDepth, _ := strconv.Atoi(q.Get("max_depth"))
	paths, err := h.mgr.FindPath(r.Context(), path, from, to, maxDepth)
	if err != nil {
		writeError(w, err)
		return
	}
	if paths == nil {
		paths = [][]string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

// NodeTypes handles GET /api/types.
//
//	@Summary		Count nodes per type
//	@Tags			query
//	@Produce		json
//	@Param			graph	query	string	true	"Graph document path"
//	@Success		200		{object}	map[string]int
//	@Security		BearerAuth
//	@Router			/types [get]
func (h *Handler) NodeTypes(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	types, err := h.mgr.NodeTypes(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types})
}

// Layer handles GET /api/layers/{name}.
//
//	@Summary		List the member nodes of a layer
//	@Tags			query
//	@Produce		json
//	@Param			graph	query		string	true	"Graph document path"
//	@Param			name	path		string	true	"Layer name"
//	@Success		200		{array}		graph.Node
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layers/{name} [get]
func (h *Handler) Layer(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	nodes, err := h.mgr.Layer(r.Context(), path, urlParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

// AddNode handles POST /api/nodes.
//
//	@Summary		Create a node
//	@Tags			mutation
//	@Accept			json
//	@Produce		json
//	@Param			graph	query		string			true	"Graph document path"
//	@Param			body	body		AddNodeRequest	true	"Node to create"
//	@Success		201		{object}	graph.Node
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes [post]
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	node, err := h.mgr.AddNode(r.Context(), path, req.Node())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// AddEdge handles POST /api/edges.
//
//	@Summary		Create an edge
//	@Tags			mutation
//	@Accept			json
//	@Produce		json
//	@Param			graph	query		string			true	"Graph document path"
//	@Param			body	body		AddEdgeRequest	true	"Edge to create"
//	@Success		201		{object}	graph.Edge
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [post]
func (h *Handler) AddEdge(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	edge, err := h.mgr.AddEdge(r.Context(), path, req.Edge())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

// AddToLayer handles POST /api/layers/{name}/nodes.
//
//	@Summary		Add a node to a layer
//	@Tags			mutation
//	@Accept			json
//	@Param			graph	query		string				true	"Graph document path"
//	@Param			name	path		string				true	"Layer name"
//	@Param			body	body		AddToLayerRequest	true	"Node to tag"
//	@Success		204		"Added"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layers/{name}/nodes [post]
func (h *Handler) AddToLayer(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	var req AddToLayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.mgr.AddToLayer(r.Context(), path, req.ID, urlParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveNode handles DELETE /api/nodes/{id}.
//
//	@Summary		Remove a node and cascade to its edges and layers
//	@Tags			mutation
//	@Produce		json
//	@Param			graph	query		string	true	"Graph document path"
//	@Param			id		path		string	true	"Node id"
//	@Success		200		{object}	RemoveNodeResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [delete]
func (h *Handler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	id := urlParam(r, "id")
	removed, err := h.mgr.RemoveNode(r.Context(), path, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveNodeResponse{Removed: id, EdgesRemoved: removed})
}

// RemoveEdge handles DELETE /api/edges.
//
//	@Summary		Remove the edge identified by (source, target, type)
//	@Tags			mutation
//	@Param			graph	query	string	true	"Graph document path"
//	@Param			source	query	string	true	"Edge source id"
//	@Param			target	query	string	true	"Edge target id"
//	@Param			type	query	string	true	"Edge type"
//	@Success		204		"Removed"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [delete]
func (h *Handler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	q := r.URL.Query()
	source, target, edgeType := q.Get("source"), q.Get("target"), q.Get("type")
	if path == "" || source == "" || target == "" || edgeType == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("'graph', 'source', 'target' and 'type' are required"))
		return
	}
	if err := h.mgr.RemoveEdge(r.Context(), path, source, target, edgeType); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify handles GET /api/verify.
//
//	@Summary		Run the integrity scanner over a graph
//	@Tags			graphs
//	@Produce		json
//	@Param			graph	query		string	true	"Graph document path"
//	@Success		200		{object}	graph.Report
//	@Security		BearerAuth
//	@Router			/verify [get]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	report, err := h.mgr.Verify(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Save handles POST /api/save.
//
//	@Summary		Persist a graph with optional backup and edge sort
//	@Tags			graphs
//	@Accept			json
//	@Produce		json
//	@Param			graph	query		string		true	"Graph document path"
//	@Param			body	body		SaveRequest	false	"Save options"
//	@Success		200		{object}	SaveResult
//	@Security		BearerAuth
//	@Router			/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	req := SaveRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	backup, sortEdges := true, true
	if req.Backup != nil {
		backup = *req.Backup
	}
	if req.Sort != nil {
		sortEdges = *req.Sort
	}
	result, err := h.mgr.Save(r.Context(), path, backup, sortEdges)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Discard handles POST /api/discard.
//
//	@Summary		Drop unsaved in-memory mutations for a graph
//	@Tags			graphs
//	@Param			graph	query	string	true	"Graph document path"
//	@Success		204		"Discarded"
//	@Security		BearerAuth
//	@Router			/discard [post]
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	path := graphParam(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'graph' is required"))
		return
	}
	if err := h.mgr.Discard(r.Context(), path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audit handles GET /api/audit.
//
//	@Summary		List recent recorded mutations
//	@Tags			graphs
//	@Produce		json
//	@Param			graph	query		string	false	"Filter to one graph"
//	@Param			limit	query		int		false	"Max entries"
//	@Success		200		{array}		audit.Entry
//	@Security		BearerAuth
//	@Router			/audit [get]
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	if h.aud == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []audit.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.aud.Recent(graphParam(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
