package layout

import (
	"errors"
	"fmt"
	"strings"

	"kgraph-atlas/backend/internal/graph"
)

// Position is a point in the normalized [0,100]x[0,100] plane
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mode names a layout strategy
type Mode string

const (
	ModeRing Mode = "ring"
	ModeTree Mode = "tree"
)

// ErrUnknownMode is returned for layout names other than ring and tree
var ErrUnknownMode = errors.New("unknown layout mode")

// Strategy maps a node id set to plane coordinates.
//
// Implementations must be deterministic for a given input order and must
// return an empty map (never an error) for an empty node set. root is a
// preferred starting node and may be ignored.
type Strategy interface {
	Name() Mode
	Compute(nodeIDs []int64, edges []graph.Edge, root *int64) map[int64]Position
}

// ParseMode resolves a layout mode name, case-insensitively
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRing:
		return ModeRing, nil
	case ModeTree:
		return ModeTree, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ForMode returns the strategy registered for mode
func ForMode(mode Mode) (Strategy, error) {
	switch mode {
	case ModeRing:
		return Ring{}, nil
	case ModeTree:
		return Tree{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
}
