package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/gebo/internal/apperr"
)

func TestSearchSubstringCaseInsensitive(t *testing.T) {
	h := testHandle(t)
	got := h.Search("TOKEN", SearchOptions{})
	if len(got) != 1 || got[0].ID != "token" {
		t.Fatalf("search TOKEN = %v", ids(got))
	}

	// Description text matches too.
	got = h.Search("authentication", SearchOptions{})
	if len(got) != 1 || got[0].ID != "login" {
		t.Fatalf("search authentication = %v", ids(got))
	}
}

func TestSearchFilters(t *testing.T) {
	h := testHandle(t)

	// Type filter is exact.
	got := h.Search("", SearchOptions{Type: "Function"})
	if !reflect.DeepEqual(ids(got), []string{"token", "metrics"}) {
		t.Errorf("type filter = %v", ids(got))
	}

	// Layer filter restricts to members.
	got = h.Search("", SearchOptions{Layer: "workflow"})
	if !reflect.DeepEqual(ids(got), []string{"login"}) {
		t.Errorf("layer filter = %v", ids(got))
	}

	// Unknown layer matches nothing.
	if got = h.Search("", SearchOptions{Layer: "nope"}); len(got) != 0 {
		t.Errorf("unknown layer = %v", ids(got))
	}
}

func TestSearchLimitAndOrder(t *testing.T) {
	h := testHandle(t)
	got := h.Search("", SearchOptions{Limit: 2})
	// Document order, truncated; no ranking.
	if !reflect.DeepEqual(ids(got), []string{"login", "session"}) {
		t.Errorf("limited search = %v", ids(got))
	}
}

func TestGetNodeDetail(t *testing.T) {
	h := testHandle(t)
	detail, err := h.GetNode("token")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if len(detail.Incoming) != 2 || len(detail.Outgoing) != 0 {
		t.Errorf("incoming/outgoing = %d/%d, want 2/0", len(detail.Incoming), len(detail.Outgoing))
	}
	if detail.Incoming[0].EdgeType != "uses" || detail.Incoming[0].Node.ID != "session" {
		t.Errorf("first incoming = %+v", detail.Incoming[0])
	}
	if detail.Layer != "technical" {
		t.Errorf("layer = %q, want technical", detail.Layer)
	}
}

func TestGetNodeFirstLayerOnly(t *testing.T) {
	h := testHandle(t)
	// token joins a second layer; the reported layer is the first in
	// sorted name order.
	if err := h.AddToLayer("token", "conceptual"); err != nil {
		t.Fatalf("AddToLayer: %v", err)
	}
	detail, err := h.GetNode("token")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if detail.Layer != "conceptual" {
		t.Errorf("layer = %q, want conceptual", detail.Layer)
	}
}

func TestGetNodeMissing(t *testing.T) {
	h := testHandle(t)
	_, err := h.GetNode("ghost")
	if !errors.Is(err, apperr.ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestNeighborsDirections(t *testing.T) {
	h := testHandle(t)

	both, err := h.Neighbors("session", DirectionBoth, "")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	// Incoming entries precede outgoing ones.
	if len(both) != 2 || both[0].Direction != DirectionIncoming || both[1].Direction != DirectionOutgoing {
		t.Fatalf("both = %+v", both)
	}

	in, _ := h.Neighbors("session", DirectionIncoming, "")
	if len(in) != 1 || in[0].Node.ID != "login" {
		t.Errorf("incoming = %+v", in)
	}

	out, _ := h.Neighbors("login", DirectionOutgoing, "calls")
	if len(out) != 1 || out[0].Node.ID != "token" {
		t.Errorf("filtered outgoing = %+v", out)
	}
}

func TestNeighborsSkipsDanglingEdges(t *testing.T) {
	h := testHandle(t)
	// Inject a corrupt edge directly, bypassing AddEdge.
	bad := &Edge{Source: "login", Target: "ghost", Type: "calls"}
	h.Document.Edges = append(h.Document.Edges, bad)
	h.Index.EdgesBySource["login"] = append(h.Index.EdgesBySource["login"], bad)
	h.Index.EdgesByTarget["ghost"] = append(h.Index.EdgesByTarget["ghost"], bad)

	out, err := h.Neighbors("login", DirectionOutgoing, "")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	for _, n := range out {
		if n.Node.ID == "ghost" {
			t.Error("dangling edge surfaced a missing node")
		}
	}
}

func TestFindPathTrivial(t *testing.T) {
	h := testHandle(t)
	got := h.FindPath("login", "login", 5)
	if !reflect.DeepEqual(got, [][]string{{"login"}}) {
		t.Errorf("trivial path = %v", got)
	}
}

func TestFindPathChainAndDisconnected(t *testing.T) {
	h := testHandle(t)

	got := h.FindPath("login", "session", 5)
	if !reflect.DeepEqual(got, [][]string{{"login", "session"}}) {
		t.Errorf("direct path = %v", got)
	}

	// Two routes login->token: direct call and via session.
	got = h.FindPath("login", "token", 5)
	want := [][]string{{"login", "token"}, {"login", "session", "token"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}

	// metrics is disconnected.
	if got = h.FindPath("login", "metrics", 5); len(got) != 0 {
		t.Errorf("disconnected = %v, want none", got)
	}

	// Paths are directed: no route against edge direction.
	if got = h.FindPath("token", "login", 5); len(got) != 0 {
		t.Errorf("reverse = %v, want none", got)
	}
}

func TestFindPathDepthLimit(t *testing.T) {
	h := testHandle(t)
	// Partial paths longer than maxDepth are dropped without expansion,
	// so depth 1 only admits the direct edge.
	got := h.FindPath("login", "token", 1)
	if !reflect.DeepEqual(got, [][]string{{"login", "token"}}) {
		t.Errorf("depth-limited = %v", got)
	}
}

func TestFindPathStopsAtThree(t *testing.T) {
	doc := &Document{
		Nodes: []*Node{
			{ID: "a", Type: "T", Label: "a"},
			{ID: "b", Type: "T", Label: "b"},
			{ID: "c", Type: "T", Label: "c"},
			{ID: "d", Type: "T", Label: "d"},
			{ID: "e", Type: "T", Label: "e"},
			{ID: "z", Type: "T", Label: "z"},
		},
		Edges: []*Edge{
			{Source: "a", Target: "b", Type: "t"},
			{Source: "a", Target: "c", Type: "t"},
			{Source: "a", Target: "d", Type: "t"},
			{Source: "a", Target: "e", Type: "t"},
			{Source: "b", Target: "z", Type: "t"},
			{Source: "c", Target: "z", Type: "t"},
			{Source: "d", Target: "z", Type: "t"},
			{Source: "e", Target: "z", Type: "t"},
		},
		Layers: map[string][]string{},
	}
	h := NewHandle(doc, "")
	got := h.FindPath("a", "z", 5)
	if len(got) != 3 {
		t.Errorf("recorded %d paths, want 3", len(got))
	}
}

func TestFindPathCycleTerminates(t *testing.T) {
	doc := &Document{
		Nodes: []*Node{
			{ID: "a", Type: "T", Label: "a"},
			{ID: "b", Type: "T", Label: "b"},
		},
		Edges: []*Edge{
			{Source: "a", Target: "b", Type: "t"},
			{Source: "b", Target: "a", Type: "t"},
		},
		Layers: map[string][]string{},
	}
	h := NewHandle(doc, "")
	if got := h.FindPath("a", "missing", 5); len(got) != 0 {
		t.Errorf("cycle search = %v, want none", got)
	}
}

func TestNodeTypes(t *testing.T) {
	h := testHandle(t)
	got := h.NodeTypes()
	want := map[string]int{"Workflow": 1, "Concept": 1, "Function": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NodeTypes = %v, want %v", got, want)
	}
}

func TestLayer(t *testing.T) {
	h := testHandle(t)
	nodes, err := h.Layer("workflow")
	if err != nil {
		t.Fatalf("Layer: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "login" {
		t.Errorf("workflow layer = %v", ids(nodes))
	}

	_, err = h.Layer("presentation")
	if !errors.Is(err, apperr.ErrLayerNotFound) {
		t.Errorf("err = %v, want ErrLayerNotFound", err)
	}
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
