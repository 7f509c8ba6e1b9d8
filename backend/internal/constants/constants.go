package constants

// Plane constants. Every layout coordinate lives in [PlaneMin, PlaneMax] on both axes.
const (
	PlaneMin = 0.0
	PlaneMax = 100.0

	// PlaneCenter is the x and y of the plane's midpoint
	PlaneCenter = 50.0
)

// Node type constants
const (
	// UntypedLabel replaces an empty entity type label
	UntypedLabel = "untyped"
)

// Interaction constants
const (
	// DragEpsilon is the smallest per-axis move (in plane units) that is
	// recorded as a new manual position
	DragEpsilon = 0.4
)

// Legend constants
const (
	// MaxSampleEdges caps the example edges listed per relation type
	MaxSampleEdges = 5
)
