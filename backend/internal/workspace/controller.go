package workspace

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/metrics"
	"kgraph-atlas/backend/internal/positions"
	"kgraph-atlas/backend/internal/state"
	"kgraph-atlas/backend/pkg/logger"
)

// DefaultFitPadding is the margin, in plane units, kept around the graph by
// FitToView
const DefaultFitPadding = 6.0

// Options configures a Controller
type Options struct {
	Source  graph.Source
	Editor  graph.Editor
	Metrics *metrics.Collector
	Mode    layout.Mode
}

// Controller is the stateful shell around one graph view: it owns the
// interaction state, the current snapshot and the position store, and
// re-derives everything the renderer needs after each transition.
//
// A Controller is not safe for concurrent use. Callers serialize all calls
// for one view (see the api package for the HTTP session lock).
type Controller struct {
	source  graph.Source
	editor  graph.Editor
	metrics *metrics.Collector
	logger  *zap.Logger

	view     state.View
	raw      *graph.ConversationGraph
	snapshot graph.Snapshot
	adj      graph.Adjacency
	store    *positions.Store

	seq    uint64
	closed bool
}

// New creates a controller for conversationID. No data is loaded until the
// first Refresh.
func New(conversationID string, opts Options) *Controller {
	mode := opts.Mode
	if _, err := layout.ForMode(mode); err != nil {
		mode = layout.ModeRing
	}

	c := &Controller{
		source:  opts.Source,
		editor:  opts.Editor,
		metrics: opts.Metrics,
		logger:  logger.Named("workspace"),
		view:    state.NewView(conversationID, mode),
		store:   positions.New(),
	}
	c.rederive()
	return c
}

// View returns a copy of the interaction state
func (c *Controller) View() state.View { return c.view }

// Snapshot returns the visible graph
func (c *Controller) Snapshot() graph.Snapshot { return c.snapshot }

// Loaded reports whether a graph has been applied since the last
// conversation switch
func (c *Controller) Loaded() bool { return c.raw != nil }

// LayoutEpoch returns the position store epoch
func (c *Controller) LayoutEpoch() uint64 { return c.store.Epoch() }

// Position returns the stored position of a visible node
func (c *Controller) Position(id int64) (layout.Position, bool) {
	if !c.adj.Has(id) {
		return layout.Position{}, false
	}
	return c.store.Get(id)
}

// Hover sets (or with nil, clears) the hovered node. Hovering a node that is
// not visible is ignored and reported as false.
func (c *Controller) Hover(id *int64) bool {
	if id != nil && !c.known(*id, "hover") {
		return false
	}
	c.view.Hover(id)
	return true
}

// Select toggles the pin on id; nil clears the pin
func (c *Controller) Select(id *int64) bool {
	if id != nil && !c.known(*id, "select") {
		return false
	}
	c.view.TogglePin(id)
	return true
}

// BeginEdit marks id as the node being edited
func (c *Controller) BeginEdit(id int64) bool {
	if !c.known(id, "edit") {
		return false
	}
	c.view.EditingNodeID = state.ID(id)
	return true
}

// CancelEdit clears the edit target
func (c *Controller) CancelEdit() {
	c.view.EditingNodeID = nil
}

// SetFilter updates one text filter and re-derives the visible graph.
// Blank text removes the filter.
func (c *Controller) SetFilter(kind state.FilterKind, text string) {
	c.view.SetFilter(kind, text)
	c.rederive()
}

// SetFilters replaces all three filters at once
func (c *Controller) SetFilters(f graph.Filters) {
	c.view.SetFilter(state.FilterNode, f.Node)
	c.view.SetFilter(state.FilterType, f.Type)
	c.view.SetFilter(state.FilterEdge, f.Edge)
	c.rederive()
}

// SetHighlight highlights one relation type; blank clears the highlight
func (c *Controller) SetHighlight(relationType string) {
	c.view.SetHighlight(relationType)
}

// SetLayoutMode switches the layout strategy. A real change discards every
// stored position and lays the graph out again.
func (c *Controller) SetLayoutMode(mode layout.Mode) error {
	if _, err := layout.ForMode(mode); err != nil {
		return err
	}
	if mode == c.view.LayoutMode {
		return nil
	}
	c.view.LayoutMode = mode
	c.ResetLayout()
	return nil
}

// NotePositionChange records a manual move of a visible node. It reports
// whether the stored position changed.
func (c *Controller) NotePositionChange(id int64, pos layout.Position) bool {
	if !c.known(id, "move") {
		return false
	}
	return c.store.Set(id, pos)
}

// ResetLayout drops all positions, manual ones included, and re-seeds them
// from the active strategy
func (c *Controller) ResetLayout() {
	c.store.Reset()
	c.seed()
}

// FitToView returns the viewport framing every visible node
func (c *Controller) FitToView() layout.Viewport {
	return layout.Fit(c.visiblePositions(), DefaultFitPadding)
}

// CenterOnSelection centers the viewport on the pinned node, or the hovered
// node when nothing is pinned. It reports false when there is no target.
func (c *Controller) CenterOnSelection(zoom float64) (layout.Viewport, bool) {
	target := c.view.LayoutRoot()
	if target == nil {
		return layout.DefaultViewport(), false
	}
	pos, ok := c.Position(*target)
	if !ok {
		return layout.DefaultViewport(), false
	}
	return layout.CenterOn(pos, zoom), true
}

// ExportPositions serializes the position store
func (c *Controller) ExportPositions() ([]byte, error) {
	return json.Marshal(c.store)
}

// ImportPositions loads serialized positions for the visible nodes and lays
// out any node the data does not cover. It returns how many were loaded.
func (c *Controller) ImportPositions(data []byte) (int, error) {
	n, err := c.store.Restore(data, c.snapshot.NodeIDs())
	if err != nil {
		return 0, err
	}
	c.seed()
	return n, nil
}

// Close invalidates any pending fetch. A closed controller rejects refreshes.
func (c *Controller) Close() {
	c.closed = true
	c.seq++
}

// rederive rebuilds the visible snapshot and everything derived from it
func (c *Controller) rederive() {
	c.snapshot = graph.Normalize(c.raw, c.view.Filters)
	ids := c.snapshot.NodeIDs()
	c.adj = graph.BuildAdjacency(ids, c.snapshot.Edges)

	if c.store.Prune(ids) {
		c.logger.Debug("Pruned positions of vanished nodes",
			zap.String("conversation_id", c.view.ConversationID),
			zap.Int("remaining", c.store.Len()),
		)
	}
	c.view.DropMissing(c.adj.Has)
	c.seed()
}

// seed fills in positions for visible nodes that have none
func (c *Controller) seed() {
	ids := c.snapshot.NodeIDs()
	missing := 0
	for _, id := range ids {
		if _, ok := c.store.Get(id); !ok {
			missing++
		}
	}
	if missing == 0 {
		return
	}

	strategy, err := layout.ForMode(c.view.LayoutMode)
	if err != nil {
		c.logger.Error("No strategy for layout mode", zap.String("mode", string(c.view.LayoutMode)))
		return
	}

	start := time.Now()
	computed := strategy.Compute(ids, c.snapshot.Edges, c.view.LayoutRoot())
	c.metrics.ObserveLayout(string(strategy.Name()), len(ids), time.Since(start))

	added := c.store.Seed(ids, computed)
	c.logger.Debug("Seeded positions",
		zap.String("mode", string(strategy.Name())),
		zap.Int("added", added),
		zap.Uint64("epoch", c.store.Epoch()),
	)
}

func (c *Controller) visiblePositions() map[int64]layout.Position {
	out := make(map[int64]layout.Position, len(c.snapshot.Nodes))
	for _, id := range c.snapshot.NodeIDs() {
		if pos, ok := c.store.Get(id); ok {
			out[id] = pos
		}
	}
	return out
}

// known reports whether id is visible, logging stale references
func (c *Controller) known(id int64, action string) bool {
	if c.adj.Has(id) {
		return true
	}
	c.logger.Debug("Ignoring event for unknown node",
		zap.String("action", action),
		zap.Int64("node_id", id),
	)
	return false
}
