package layout

import (
	"math"

	"kgraph-atlas/backend/internal/constants"
	"kgraph-atlas/backend/internal/graph"
)

// RingRadius is the ring layout radius in plane units
const RingRadius = 39.0

// Ring spreads nodes evenly on a circle around the plane center, first node
// at the top, proceeding clockwise in screen coordinates.
type Ring struct{}

// Name implements Strategy
func (Ring) Name() Mode { return ModeRing }

// Compute implements Strategy. Edges and root are ignored.
func (Ring) Compute(nodeIDs []int64, _ []graph.Edge, _ *int64) map[int64]Position {
	positions := make(map[int64]Position, len(nodeIDs))
	n := len(nodeIDs)
	if n == 0 {
		return positions
	}

	angleStep := 2 * math.Pi / float64(n)
	for i, id := range nodeIDs {
		angle := float64(i)*angleStep - math.Pi/2
		positions[id] = Position{
			X: constants.PlaneCenter + RingRadius*math.Cos(angle),
			Y: constants.PlaneCenter + RingRadius*math.Sin(angle),
		}
	}
	return positions
}
