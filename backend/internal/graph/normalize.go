package graph

import (
	"fmt"
	"strings"

	"kgraph-atlas/backend/internal/constants"
)

// Filters holds the free-text filters applied before layout.
// Blank values mean "no filter".
type Filters struct {
	Node string `json:"node"`
	Type string `json:"type"`
	Edge string `json:"edge"`
}

// Normalize derives the visible snapshot from a raw conversation graph.
// Filters match case-insensitively as substrings; the node filter looks at the
// label and aliases, the type filter at the normalized type, the edge filter at
// the relation type. Edges survive only when both endpoints are visible.
func Normalize(cg *ConversationGraph, f Filters) Snapshot {
	snap := Snapshot{Nodes: []Node{}, Edges: []Edge{}}
	if cg == nil {
		return snap
	}
	snap.ConversationID = cg.ConversationID

	nodeQ := normalizeQuery(f.Node)
	typeQ := normalizeQuery(f.Type)
	edgeQ := normalizeQuery(f.Edge)

	visible := make(map[int64]struct{}, len(cg.Entities))
	seen := make(map[int64]struct{}, len(cg.Entities))
	for _, e := range cg.Entities {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}

		n := NodeFromEntity(e)
		if nodeQ != "" && !nodeMatches(n, nodeQ) {
			continue
		}
		if typeQ != "" && !strings.Contains(strings.ToLower(n.Type), typeQ) {
			continue
		}
		visible[n.ID] = struct{}{}
		snap.Nodes = append(snap.Nodes, n)
	}

	for _, r := range cg.Relations {
		if _, ok := visible[r.FromEntityID]; !ok {
			continue
		}
		if _, ok := visible[r.ToEntityID]; !ok {
			continue
		}
		if edgeQ != "" && !strings.Contains(strings.ToLower(r.RelationType), edgeQ) {
			continue
		}
		snap.Edges = append(snap.Edges, EdgeFromRelation(r))
	}

	return snap
}

// NodeFromEntity converts a raw entity into a node
func NodeFromEntity(e Entity) Node {
	label := strings.TrimSpace(e.CanonicalName)
	if label == "" {
		label = fmt.Sprintf("entity #%d", e.ID)
	}
	aliases := make([]string, 0, len(e.KnownAliases))
	for _, a := range e.KnownAliases {
		if a = strings.TrimSpace(a); a != "" {
			aliases = append(aliases, a)
		}
	}
	return Node{
		ID:      e.ID,
		Label:   label,
		Type:    NormalizeType(e.TypeLabel),
		Aliases: aliases,
	}
}

// EdgeFromRelation converts a raw relation into an edge
func EdgeFromRelation(r Relation) Edge {
	confidence := r.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Edge{
		ID:           r.ID,
		Source:       r.FromEntityID,
		Target:       r.ToEntityID,
		RelationType: r.RelationType,
		Confidence:   confidence,
		Qualifiers:   r.Qualifiers,
	}
}

// NormalizeType trims a type label, keeping its case; empty becomes "untyped"
func NormalizeType(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return constants.UntypedLabel
	}
	return label
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func nodeMatches(n Node, q string) bool {
	if strings.Contains(strings.ToLower(n.Label), q) {
		return true
	}
	for _, a := range n.Aliases {
		if strings.Contains(strings.ToLower(a), q) {
			return true
		}
	}
	return false
}
