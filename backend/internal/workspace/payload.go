package workspace

import (
	"kgraph-atlas/backend/internal/focus"
	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/state"
	"kgraph-atlas/backend/internal/style"
)

// NodeRender is everything a rendering surface needs to draw one node
type NodeRender struct {
	ID           int64   `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Label        string  `json:"label"`
	Type         string  `json:"type"`
	ClusterID    string  `json:"cluster_id"`
	ClusterColor string  `json:"cluster_color"`
	Size         int     `json:"size"`
	Degree       int     `json:"degree"`
	StyleClass   string  `json:"style_class"`

	Class focus.NodeClass `json:"-"`
}

// EdgeRender is everything a rendering surface needs to draw one edge
type EdgeRender struct {
	ID           int64   `json:"id"`
	Source       int64   `json:"source"`
	Target       int64   `json:"target"`
	X1           float64 `json:"x1"`
	Y1           float64 `json:"y1"`
	X2           float64 `json:"x2"`
	Y2           float64 `json:"y2"`
	Label        string  `json:"label"`
	RelationType string  `json:"relation_type"`
	Confidence   float64 `json:"confidence"`
	StyleClass   string  `json:"style_class"`

	Class focus.EdgeClass `json:"-"`
}

// Payload is one complete render pass
type Payload struct {
	ConversationID string                      `json:"conversation_id"`
	LayoutMode     layout.Mode                 `json:"layout_mode"`
	LayoutEpoch    uint64                      `json:"layout_epoch"`
	Nodes          []NodeRender                `json:"nodes"`
	Edges          []EdgeRender                `json:"edges"`
	Clusters       []style.Cluster             `json:"clusters"`
	RelationTypes  []graph.RelationTypeSummary `json:"relation_types"`
	Focus          state.Focus                 `json:"focus"`
	Filters        graph.Filters               `json:"filters"`
}

// Render classifies and styles the visible graph. An empty snapshot yields
// an empty payload.
func (c *Controller) Render() Payload {
	c.seed()

	f := c.view.Focus()
	classes := focus.Classify(c.adj, c.snapshot.Edges, f)
	clusters := style.AssignClusters(c.snapshot.Nodes)
	byType := make(map[string]style.Cluster, len(clusters))
	for _, cl := range clusters {
		byType[cl.Type] = cl
	}

	p := Payload{
		ConversationID: c.view.ConversationID,
		LayoutMode:     c.view.LayoutMode,
		LayoutEpoch:    c.store.Epoch(),
		Nodes:          make([]NodeRender, 0, len(c.snapshot.Nodes)),
		Edges:          make([]EdgeRender, 0, len(c.snapshot.Edges)),
		Clusters:       clusters,
		RelationTypes:  graph.SummarizeRelationTypes(c.snapshot),
		Focus:          f,
		Filters:        c.view.Filters,
	}

	for _, n := range c.snapshot.Nodes {
		pos, _ := c.store.Get(n.ID)
		cl := byType[n.Type]
		class := classes.Nodes[n.ID]
		degree := c.adj.Degree[n.ID]
		p.Nodes = append(p.Nodes, NodeRender{
			ID:           n.ID,
			X:            pos.X,
			Y:            pos.Y,
			Label:        n.Label,
			Type:         n.Type,
			ClusterID:    cl.ID,
			ClusterColor: cl.Color,
			Size:         style.NodeSize(degree),
			Degree:       degree,
			StyleClass:   class.String(),
			Class:        class,
		})
	}

	for _, e := range c.snapshot.Edges {
		from, _ := c.store.Get(e.Source)
		to, _ := c.store.Get(e.Target)
		class := classes.Edges[e.ID]
		p.Edges = append(p.Edges, EdgeRender{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			X1:           from.X,
			Y1:           from.Y,
			X2:           to.X,
			Y2:           to.Y,
			Label:        style.EdgeLabel(e, class),
			RelationType: e.RelationType,
			Confidence:   e.Confidence,
			StyleClass:   class.String(),
			Class:        class,
		})
	}

	return p
}
