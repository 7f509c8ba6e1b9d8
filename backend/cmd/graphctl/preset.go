package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/BurntSushi/toml"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/state"
	"kgraph-atlas/backend/internal/workspace"
)

// Preset is a saved view configuration, e.g.
//
//	mode = "tree"
//	select = 3
//	highlight = "owns"
//
//	[filters]
//	type = "person"
//
//	[positions]
//	"2" = { x = 70.0, y = 70.0 }
type Preset struct {
	Mode      string                 `toml:"mode"`
	Hover     *int64                 `toml:"hover"`
	Select    *int64                 `toml:"select"`
	Highlight string                 `toml:"highlight"`
	Filters   presetFilters          `toml:"filters"`
	Positions map[string]presetPoint `toml:"positions"`
}

type presetFilters struct {
	Node string `toml:"node"`
	Type string `toml:"type"`
	Edge string `toml:"edge"`
}

type presetPoint struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
}

// loadPreset reads a TOML preset file
func loadPreset(path string) (*Preset, error) {
	var p Preset
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown preset keys in %s: %v", path, undecoded)
	}
	if p.Mode != "" {
		if _, err := layout.ParseMode(p.Mode); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// apply replays the preset onto a loaded controller in the order a user
// would: filters first, then layout, then manual moves, then focus. The
// layout is reset at most once, before the manual moves. Ids that are not
// visible are reported to warn and skipped.
func (p *Preset) apply(ctrl *workspace.Controller, warn io.Writer) error {
	ctrl.SetFilters(graph.Filters{Node: p.Filters.Node, Type: p.Filters.Type, Edge: p.Filters.Edge})

	mode := ctrl.View().LayoutMode
	if p.Mode != "" {
		m, err := layout.ParseMode(p.Mode)
		if err != nil {
			return err
		}
		mode = m
	}
	if mode != ctrl.View().LayoutMode {
		// SetLayoutMode resets the layout itself
		if err := ctrl.SetLayoutMode(mode); err != nil {
			return err
		}
	}

	if p.Select != nil {
		if ctrl.Select(state.ID(*p.Select)) {
			// re-seed so a tree layout roots at the selection
			ctrl.ResetLayout()
		} else {
			Bad.Fprintf(warn, "  node %d is not visible, ignoring select\n", *p.Select)
		}
	}

	for key, pt := range p.Positions {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid node id %q in positions: %w", key, err)
		}
		if !ctrl.Snapshot().HasNode(id) {
			Bad.Fprintf(warn, "  node %d is not visible, ignoring its position\n", id)
			continue
		}
		ctrl.NotePositionChange(id, layout.Position{X: pt.X, Y: pt.Y})
	}

	if p.Hover != nil && !ctrl.Hover(state.ID(*p.Hover)) {
		Bad.Fprintf(warn, "  node %d is not visible, ignoring hover\n", *p.Hover)
	}
	ctrl.SetHighlight(p.Highlight)
	return nil
}
