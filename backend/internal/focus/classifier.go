package focus

import (
	"strings"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/state"
)

// NodeState is the focus tier of a node
type NodeState string

const (
	NodeDefault NodeState = "default"
	NodeFocused NodeState = "focused"
	NodeDimmed  NodeState = "dimmed"
)

// NodeClass is a node's visual class. Selected layers on top of State and is
// never hidden by dimming.
type NodeClass struct {
	State    NodeState `json:"state"`
	Selected bool      `json:"selected"`
}

// String renders CSS-like class names, e.g. "node dimmed selected"
func (c NodeClass) String() string {
	parts := []string{"node"}
	if c.State != NodeDefault && c.State != "" {
		parts = append(parts, string(c.State))
	}
	if c.Selected {
		parts = append(parts, "selected")
	}
	return strings.Join(parts, " ")
}

// EdgeClass is an edge's visual class. Focus and Highlight may co-occur;
// Dimmed is never set alongside either.
type EdgeClass struct {
	Focus     bool `json:"focus"`
	Highlight bool `json:"highlight"`
	Dimmed    bool `json:"dimmed"`
}

// String renders CSS-like class names, e.g. "edge focus highlight"
func (c EdgeClass) String() string {
	parts := []string{"edge"}
	if c.Focus {
		parts = append(parts, "focus")
	}
	if c.Highlight {
		parts = append(parts, "highlight")
	}
	if c.Dimmed {
		parts = append(parts, "dimmed")
	}
	return strings.Join(parts, " ")
}

// Labeled reports whether the edge shows its text label
func (c EdgeClass) Labeled() bool {
	return c.Focus || c.Highlight
}

// Result holds per-node and per-edge classes for one render pass
type Result struct {
	Nodes map[int64]NodeClass
	Edges map[int64]EdgeClass
	// FocusSet is the active node plus its neighbors; nil when nothing is active
	FocusSet map[int64]struct{}
}

// Classify computes visual classes for every node in adj and every edge in
// edges. An active node that is not in adj is treated as no focus.
func Classify(adj graph.Adjacency, edges []graph.Edge, st state.Focus) Result {
	res := Result{
		Nodes: make(map[int64]NodeClass, len(adj.Neighbors)),
		Edges: make(map[int64]EdgeClass, len(edges)),
	}

	var active int64
	hasActive := st.ActiveNodeID != nil && adj.Has(*st.ActiveNodeID)
	if hasActive {
		active = *st.ActiveNodeID
		res.FocusSet = map[int64]struct{}{active: {}}
		for n := range adj.Neighbors[active] {
			res.FocusSet[n] = struct{}{}
		}
	}

	for id := range adj.Neighbors {
		class := NodeClass{State: NodeDefault}
		if hasActive {
			if id == active || adj.Adjacent(active, id) {
				class.State = NodeFocused
			} else {
				class.State = NodeDimmed
			}
		}
		class.Selected = st.SelectedNodeID != nil && *st.SelectedNodeID == id
		res.Nodes[id] = class
	}

	highlight := st.HighlightRelationType
	for _, e := range edges {
		var class EdgeClass
		if hasActive && (e.Source == active || e.Target == active) {
			class.Focus = true
		}
		if highlight != "" && e.RelationType == highlight {
			class.Highlight = true
		}
		if !class.Focus && !class.Highlight {
			if highlight != "" {
				class.Dimmed = true
			}
			if hasActive && !res.inFocus(e.Source) && !res.inFocus(e.Target) {
				class.Dimmed = true
			}
		}
		res.Edges[e.ID] = class
	}

	return res
}

func (r Result) inFocus(id int64) bool {
	_, ok := r.FocusSet[id]
	return ok
}
