package graph

// Index is the set of lookup structures derived from a Document. It is
// never persisted; every mutation keeps it consistent with the document
// before returning.
type Index struct {
	NodeByID      map[string]*Node
	NodesByType   map[string][]*Node
	EdgesBySource map[string][]*Edge
	EdgesByTarget map[string][]*Edge
}

// BuildIndex derives the four lookup structures in one pass over nodes and
// one pass over edges.
func BuildIndex(doc *Document) *Index {
	idx := &Index{
		NodeByID:      make(map[string]*Node, len(doc.Nodes)),
		NodesByType:   make(map[string][]*Node),
		EdgesBySource: make(map[string][]*Edge),
		EdgesByTarget: make(map[string][]*Edge),
	}
	for _, n := range doc.Nodes {
		idx.NodeByID[n.ID] = n
		idx.NodesByType[n.Type] = append(idx.NodesByType[n.Type], n)
	}
	for _, e := range doc.Edges {
		idx.EdgesBySource[e.Source] = append(idx.EdgesBySource[e.Source], e)
		idx.EdgesByTarget[e.Target] = append(idx.EdgesByTarget[e.Target], e)
	}
	return idx
}

// Handle bundles a live Document with its derived index and the absolute
// storage path it was loaded from. It is the unit the session cache holds
// and every engine operation works on.
type Handle struct {
	Document *Document
	Index    *Index
	Path     string
}

// NewHandle indexes doc and wraps it.
func NewHandle(doc *Document, path string) *Handle {
	return &Handle{
		Document: doc,
		Index:    BuildIndex(doc),
		Path:     path,
	}
}
