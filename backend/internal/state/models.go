package state

import (
	"fmt"
	"strings"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
)

// View is the interaction state of one graph view. It holds UI intent only;
// the graph data and positions live with the controller.
type View struct {
	ConversationID        string        `json:"conversation_id"`
	HoveredNodeID         *int64        `json:"hovered_node_id,omitempty"`
	PinnedNodeID          *int64        `json:"pinned_node_id,omitempty"`
	EditingNodeID         *int64        `json:"editing_node_id,omitempty"`
	Filters               graph.Filters `json:"filters"`
	HighlightRelationType string        `json:"highlight_relation_type,omitempty"`
	LayoutMode            layout.Mode   `json:"layout_mode"`
}

// Focus is the derived, transient focus state fed to the classifier
type Focus struct {
	ActiveNodeID          *int64 `json:"active_node_id,omitempty"`
	SelectedNodeID        *int64 `json:"selected_node_id,omitempty"`
	HighlightRelationType string `json:"highlight_relation_type,omitempty"`
}

// NewView returns the initial state for a conversation
func NewView(conversationID string, mode layout.Mode) View {
	return View{ConversationID: conversationID, LayoutMode: mode}
}

// Focus derives the focus state: hover wins over the pinned selection
func (v *View) Focus() Focus {
	f := Focus{
		SelectedNodeID:        copyID(v.PinnedNodeID),
		HighlightRelationType: v.HighlightRelationType,
	}
	switch {
	case v.HoveredNodeID != nil:
		f.ActiveNodeID = copyID(v.HoveredNodeID)
	case v.PinnedNodeID != nil:
		f.ActiveNodeID = copyID(v.PinnedNodeID)
	}
	return f
}

// Hover sets or clears the hovered node. The pin is untouched.
func (v *View) Hover(id *int64) {
	v.HoveredNodeID = copyID(id)
}

// TogglePin pins id, or unpins when id is already pinned or nil. Pinning a
// different node abandons an edit in progress on any other node.
func (v *View) TogglePin(id *int64) {
	if id == nil || (v.PinnedNodeID != nil && *v.PinnedNodeID == *id) {
		v.PinnedNodeID = nil
		return
	}
	v.PinnedNodeID = copyID(id)
	if v.EditingNodeID != nil && *v.EditingNodeID != *id {
		v.EditingNodeID = nil
	}
}

// SetFilter stores filter text; blank text clears the filter
func (v *View) SetFilter(kind FilterKind, text string) {
	text = strings.TrimSpace(text)
	switch kind {
	case FilterNode:
		v.Filters.Node = text
	case FilterType:
		v.Filters.Type = text
	case FilterEdge:
		v.Filters.Edge = text
	}
}

// SetHighlight stores the highlighted relation type; blank clears it.
// Matching stays case-sensitive, so only surrounding whitespace is removed.
func (v *View) SetHighlight(relationType string) {
	v.HighlightRelationType = strings.TrimSpace(relationType)
}

// DropMissing clears hover, pin and edit targets that fail visible
func (v *View) DropMissing(visible func(int64) bool) {
	if v.HoveredNodeID != nil && !visible(*v.HoveredNodeID) {
		v.HoveredNodeID = nil
	}
	if v.PinnedNodeID != nil && !visible(*v.PinnedNodeID) {
		v.PinnedNodeID = nil
	}
	if v.EditingNodeID != nil && !visible(*v.EditingNodeID) {
		v.EditingNodeID = nil
	}
}

// SwitchConversation moves the view to another conversation. Filters,
// highlight and layout mode are kept as UI intent; node references are not.
func (v *View) SwitchConversation(conversationID string) {
	v.ConversationID = conversationID
	v.HoveredNodeID = nil
	v.PinnedNodeID = nil
	v.EditingNodeID = nil
}

// LayoutRoot is the preferred tree root: pinned node, else hovered node
func (v *View) LayoutRoot() *int64 {
	if v.PinnedNodeID != nil {
		return copyID(v.PinnedNodeID)
	}
	return copyID(v.HoveredNodeID)
}

// FilterKind names one of the free-text filters
type FilterKind string

const (
	FilterNode FilterKind = "node"
	FilterType FilterKind = "type"
	FilterEdge FilterKind = "edge"
)

// ParseFilterKind resolves a filter kind name
func ParseFilterKind(s string) (FilterKind, error) {
	switch k := FilterKind(strings.ToLower(strings.TrimSpace(s))); k {
	case FilterNode, FilterType, FilterEdge:
		return k, nil
	}
	return "", ErrInvalidFilterKind{Kind: s}
}

// ID returns a pointer to a copy of id, handy for optional node references
func ID(id int64) *int64 {
	return &id
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Errors

type ErrInvalidFilterKind struct {
	Kind string
}

func (e ErrInvalidFilterKind) Error() string {
	return fmt.Sprintf("invalid filter kind %q: expected node, type or edge", e.Kind)
}
