package graph

import (
	"fmt"
	"sort"

	"kgraph-atlas/backend/internal/constants"
)

// RelationTypeSummary is one legend row: a relation type, how many visible
// edges carry it, and a few example edges
type RelationTypeSummary struct {
	RelationType string   `json:"relation_type"`
	Count        int      `json:"count"`
	SampleEdges  []string `json:"sample_edges"`
}

// SummarizeRelationTypes groups the snapshot's edges by relation type, most
// frequent first (ties broken by label)
func SummarizeRelationTypes(snap Snapshot) []RelationTypeSummary {
	labels := make(map[int64]string, len(snap.Nodes))
	for _, n := range snap.Nodes {
		labels[n.ID] = n.Label
	}

	index := make(map[string]int)
	out := make([]RelationTypeSummary, 0)
	for _, e := range snap.Edges {
		i, ok := index[e.RelationType]
		if !ok {
			i = len(out)
			index[e.RelationType] = i
			out = append(out, RelationTypeSummary{RelationType: e.RelationType, SampleEdges: []string{}})
		}
		out[i].Count++
		if len(out[i].SampleEdges) < constants.MaxSampleEdges {
			out[i].SampleEdges = append(out[i].SampleEdges, fmt.Sprintf("%s -> %s", labelOr(labels, e.Source), labelOr(labels, e.Target)))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RelationType < out[j].RelationType
	})
	return out
}

func labelOr(labels map[int64]string, id int64) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return fmt.Sprintf("entity #%d", id)
}
