package mcpserver

// GraphFormatContract describes the canonical graph document format that
// LLM consumers should follow when creating or mutating graph files.
const GraphFormatContract = `# Gebo Graph Document Contract

Every graph stored in Gebo is a single JSON document with this shape.

## Structure

` + "```" + `json
{
  "nodes": [
    {
      "id": "unique-node-id",
      "type": "Workflow",
      "label": "Human-readable name",
      "description": "Optional longer text",
      "file": "optional/source/path.go",
      "line": 42,
      "inferred": false
    }
  ],
  "edges": [
    {
      "source": "unique-node-id",
      "target": "other-node-id",
      "type": "includes",
      "layer": "optional-layer-hint",
      "description": "optional"
    }
  ],
  "layers": {
    "workflow": ["unique-node-id"],
    "conceptual": [],
    "technical": []
  }
}
` + "```" + `

## Rules

1. **` + "`" + `id` + "`" + `, ` + "`" + `type` + "`" + ` and ` + "`" + `label` + "`" + ` are required** on every node. Ids are
   unique within a document and case-sensitive.
2. **Edges are directed.** ` + "`" + `source` + "`" + ` and ` + "`" + `target` + "`" + ` must name existing nodes,
   and the (source, type, target) triple must be unique.
3. **Layers partition intent, not structure.** The conventional three are
   ` + "`" + `workflow` + "`" + ` (user journeys), ` + "`" + `conceptual` + "`" + ` (domain ideas) and
   ` + "`" + `technical` + "`" + ` (code-level symbols), but any layer name is accepted.
   Layer member lists reference node ids.
4. **Unknown fields are preserved.** Any extra key on a node survives a
   load/save round trip untouched, so tools may attach their own metadata.
5. **` + "`" + `file` + "`" + ` and ` + "`" + `line` + "`" + ` anchor technical nodes** to source locations;
   omit them on conceptual and workflow nodes.
6. **` + "`" + `inferred` + "`" + `** marks nodes produced by automated extraction rather than
   a human author.
7. **Encoding** is UTF-8, two-space indented, with a trailing newline.
`
