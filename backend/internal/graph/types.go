package graph

import (
	"context"
	"fmt"
)

// ============================================================================
// Raw records (as served by the knowledge store)
// ============================================================================

// Entity is an extracted entity as stored for a conversation
type Entity struct {
	ID             int64    `json:"id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	CanonicalName  string   `json:"canonical_name"`
	TypeLabel      string   `json:"type_label"`
	KnownAliases   []string `json:"known_aliases"`
}

// Relation is a directed, typed link between two entities
type Relation struct {
	ID             int64                  `json:"id"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	FromEntityID   int64                  `json:"from_entity_id"`
	ToEntityID     int64                  `json:"to_entity_id"`
	RelationType   string                 `json:"relation_type"`
	Confidence     float64                `json:"confidence"`
	Qualifiers     map[string]interface{} `json:"qualifiers,omitempty"`
}

// ConversationGraph is everything observed in one conversation
type ConversationGraph struct {
	ConversationID string     `json:"conversation_id"`
	Entities       []Entity   `json:"entities"`
	Relations      []Relation `json:"relations"`
}

// ============================================================================
// Visible graph (what the layout sees)
// ============================================================================

// Node is the rendered representation of one entity
type Node struct {
	ID      int64    `json:"id"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Aliases []string `json:"aliases,omitempty"`
}

// Edge is the rendered representation of one relation
type Edge struct {
	ID           int64                  `json:"id"`
	Source       int64                  `json:"source"`
	Target       int64                  `json:"target"`
	RelationType string                 `json:"relation_type"`
	Confidence   float64                `json:"confidence"`
	Qualifiers   map[string]interface{} `json:"qualifiers,omitempty"`
}

// Snapshot is the visible node and edge set derived from one fetch plus the
// active filters. Order follows the source records.
type Snapshot struct {
	ConversationID string `json:"conversation_id"`
	Nodes          []Node `json:"nodes"`
	Edges          []Edge `json:"edges"`
}

// NodeIDs returns the visible node ids in snapshot order
func (s Snapshot) NodeIDs() []int64 {
	ids := make([]int64, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// HasNode reports whether id is part of the visible node set
func (s Snapshot) HasNode(id int64) bool {
	for _, n := range s.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Node returns the visible node with the given id
func (s Snapshot) Node(id int64) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasEdge reports whether id is part of the visible edge set
func (s Snapshot) HasEdge(id int64) bool {
	for _, e := range s.Edges {
		if e.ID == id {
			return true
		}
	}
	return false
}

// ============================================================================
// Data layer contracts
// ============================================================================

// Source loads the raw graph for a conversation
type Source interface {
	FetchConversationGraph(ctx context.Context, conversationID string) (*ConversationGraph, error)
}

// Editor persists entity and relation edits
type Editor interface {
	UpdateEntity(ctx context.Context, id int64, update EntityUpdate) error
	DeleteEntity(ctx context.Context, id int64) error
	UpdateRelation(ctx context.Context, id int64, update RelationUpdate) error
	DeleteRelation(ctx context.Context, id int64) error
}

// EntityUpdate lists the mutable entity fields; nil means unchanged
type EntityUpdate struct {
	CanonicalName *string  `json:"canonical_name,omitempty"`
	TypeLabel     *string  `json:"type_label,omitempty"`
	KnownAliases  []string `json:"known_aliases,omitempty"`
}

// Validate checks that the update carries at least one usable field
func (u EntityUpdate) Validate() error {
	if u.CanonicalName == nil && u.TypeLabel == nil && u.KnownAliases == nil {
		return ErrEmptyUpdate
	}
	if u.CanonicalName != nil && *u.CanonicalName == "" {
		return fmt.Errorf("canonical_name cannot be empty")
	}
	if u.TypeLabel != nil && *u.TypeLabel == "" {
		return fmt.Errorf("type_label cannot be empty")
	}
	return nil
}

// RelationUpdate lists the mutable relation fields; nil means unchanged
type RelationUpdate struct {
	RelationType *string                `json:"relation_type,omitempty"`
	Confidence   *float64               `json:"confidence,omitempty"`
	Qualifiers   map[string]interface{} `json:"qualifiers,omitempty"`
}

// Validate checks that the update carries at least one usable field
func (u RelationUpdate) Validate() error {
	if u.RelationType == nil && u.Confidence == nil && u.Qualifiers == nil {
		return ErrEmptyUpdate
	}
	if u.RelationType != nil && *u.RelationType == "" {
		return fmt.Errorf("relation_type cannot be empty")
	}
	if u.Confidence != nil && (*u.Confidence < 0 || *u.Confidence > 1) {
		return fmt.Errorf("confidence must be within [0, 1], got %v", *u.Confidence)
	}
	return nil
}

// ErrEmptyUpdate is returned when an update request changes nothing
var ErrEmptyUpdate = fmt.Errorf("at least one field must be provided")
