package style

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"kgraph-atlas/backend/internal/constants"
	"kgraph-atlas/backend/internal/focus"
	"kgraph-atlas/backend/internal/graph"
)

var clusterPalette = []string{
	"#8b5cf6", "#06b6d4", "#22c55e", "#f59e0b",
	"#ef4444", "#3b82f6", "#d946ef",
}

// Node size bounds, in rendering units
const (
	NodeSizeBase   = 18
	NodeSizeStep   = 3
	NodeSizeMax    = 42
	clusterIDScope = "cluster::"
)

// Cluster groups the visible nodes that share a type label
type Cluster struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Size  int    `json:"size"`
}

// AssignClusters returns one cluster per distinct type label, in the order
// the types first appear among nodes. Labels that slug to the same id
// ("Person", "person") keep separate clusters; later ones get a hash suffix.
func AssignClusters(nodes []graph.Node) []Cluster {
	index := make(map[string]int)
	used := make(map[string]struct{})
	clusters := make([]Cluster, 0)
	for _, n := range nodes {
		if i, ok := index[n.Type]; ok {
			clusters[i].Size++
			continue
		}
		id := ClusterID(n.Type)
		if _, taken := used[id]; taken {
			id = fmt.Sprintf("%s-%08x", id, hash32(n.Type))
			for k := 2; ; k++ {
				if _, taken := used[id]; !taken {
					break
				}
				id = fmt.Sprintf("%s-%08x-%d", ClusterID(n.Type), hash32(n.Type), k)
			}
		}
		used[id] = struct{}{}
		index[n.Type] = len(clusters)
		clusters = append(clusters, Cluster{
			ID:    id,
			Type:  n.Type,
			Color: ColorFor(n.Type),
			Size:  1,
		})
	}
	return clusters
}

// ClusterID builds the stable cluster id for a type label
func ClusterID(typeLabel string) string {
	return clusterIDScope + slug(typeLabel)
}

// ColorFor picks a palette color from the FNV-1a hash of label. Distinct
// labels may share a color once the palette is exhausted.
func ColorFor(label string) string {
	return clusterPalette[hash32(label)%uint32(len(clusterPalette))]
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// NodeSize scales with degree, clamped to [NodeSizeBase, NodeSizeMax]
func NodeSize(degree int) int {
	size := NodeSizeBase + degree*NodeSizeStep
	if size < NodeSizeBase {
		return NodeSizeBase
	}
	if size > NodeSizeMax {
		return NodeSizeMax
	}
	return size
}

// EdgeLabel returns the text shown on an edge. Only focus and highlight
// edges are labeled.
func EdgeLabel(e graph.Edge, class focus.EdgeClass) string {
	if !class.Labeled() {
		return ""
	}
	return e.RelationType
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return constants.UntypedLabel
	}
	return out
}
