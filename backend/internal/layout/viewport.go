package layout

import (
	"math"

	"kgraph-atlas/backend/internal/constants"
)

// MaxZoom caps the zoom factor produced by Fit
const MaxZoom = 4.0

// Viewport is the camera a rendering surface should apply: the plane point to
// put at the center of the screen and a zoom factor (1 shows the full plane).
type Viewport struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Zoom    float64 `json:"zoom"`
}

// DefaultViewport shows the whole plane
func DefaultViewport() Viewport {
	return Viewport{CenterX: constants.PlaneCenter, CenterY: constants.PlaneCenter, Zoom: 1}
}

// Fit returns the viewport that frames every position plus padding plane
// units on each side.
func Fit(positions map[int64]Position, padding float64) Viewport {
	if len(positions) == 0 {
		return DefaultViewport()
	}
	if padding < 0 {
		padding = 0
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range positions {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	span := math.Max(maxX-minX, maxY-minY) + 2*padding
	zoom := MaxZoom
	if span > 0 {
		zoom = math.Min(MaxZoom, (constants.PlaneMax-constants.PlaneMin)/span)
	}

	return Viewport{
		CenterX: (minX + maxX) / 2,
		CenterY: (minY + maxY) / 2,
		Zoom:    zoom,
	}
}

// CenterOn moves the camera onto pos, keeping zoom; a non-positive zoom
// resets to 1.
func CenterOn(pos Position, zoom float64) Viewport {
	if zoom <= 0 {
		zoom = 1
	}
	return Viewport{CenterX: pos.X, CenterY: pos.Y, Zoom: zoom}
}
