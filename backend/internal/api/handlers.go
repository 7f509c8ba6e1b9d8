package api

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/render"
	"kgraph-atlas/backend/internal/state"
	"kgraph-atlas/backend/internal/workspace"
	apperrors "kgraph-atlas/backend/pkg/errors"
	"kgraph-atlas/backend/pkg/logger"
)

// Handler serves the view session API
type Handler struct {
	source      graph.Source
	editor      graph.Editor
	registry    *Registry
	deps        Deps
	defaultMode layout.Mode
	logger      *zap.Logger
}

// NewHandler creates a handler from deps, filling in defaults
func NewHandler(deps Deps) *Handler {
	if deps.Registry == nil {
		deps.Registry = NewRegistry(0, deps.Metrics)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Named("api")
	}
	mode := deps.DefaultMode
	if _, err := layout.ForMode(mode); err != nil {
		mode = layout.ModeRing
	}
	return &Handler{
		source:      deps.Source,
		editor:      deps.Editor,
		registry:    deps.Registry,
		deps:        deps,
		defaultMode: mode,
		logger:      deps.Logger,
	}
}

// viewResponse is returned by every view endpoint
type viewResponse struct {
	ViewID  string            `json:"view_id"`
	State   state.View        `json:"state"`
	Payload workspace.Payload `json:"payload"`
}

type nodeRequest struct {
	NodeID *int64 `json:"node_id"`
}

// ============================================================================
// Raw data
// ============================================================================

// GetConversationGraph returns the unfiltered graph of a conversation
func (h *Handler) GetConversationGraph(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	cg, err := h.source.FetchConversationGraph(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, h.timedOut("fetch conversation graph", err))
		return
	}
	c.JSON(http.StatusOK, cg)
}

// ============================================================================
// View lifecycle
// ============================================================================

// CreateView opens a view on a conversation and loads its graph
func (h *Handler) CreateView(c *gin.Context) {
	var req struct {
		ConversationID string        `json:"conversation_id" binding:"required"`
		LayoutMode     string        `json:"layout_mode"`
		Filters        graph.Filters `json:"filters"`
		Highlight      string        `json:"highlight"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := h.defaultMode
	if req.LayoutMode != "" {
		parsed, err := layout.ParseMode(req.LayoutMode)
		if err != nil {
			h.respondError(c, err)
			return
		}
		mode = parsed
	}

	ctrl := workspace.New(req.ConversationID, workspace.Options{
		Source:  h.source,
		Editor:  h.editor,
		Metrics: h.deps.Metrics,
		Mode:    mode,
	})
	ctrl.SetFilters(req.Filters)
	ctrl.SetHighlight(req.Highlight)

	s := h.registry.open(ctrl)
	if err := h.refresh(c, s); err != nil {
		_ = h.registry.Close(s.id)
		h.respondError(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusCreated, respond(s))
}

// GetView renders the current state of a view
func (h *Handler) GetView(c *gin.Context) {
	h.withView(c, func(*workspace.Controller) error { return nil })
}

// CloseView discards a view
func (h *Handler) CloseView(c *gin.Context) {
	if err := h.registry.Close(c.Param("view")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// Interaction
// ============================================================================

// Hover sets or clears the hovered node
func (h *Handler) Hover(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		ctrl.Hover(req.NodeID)
		return nil
	})
}

// Select toggles the pinned node
func (h *Handler) Select(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		ctrl.Select(req.NodeID)
		return nil
	})
}

// BeginEdit marks a node as being edited; a null node_id cancels
func (h *Handler) BeginEdit(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		if req.NodeID == nil {
			ctrl.CancelEdit()
			return nil
		}
		ctrl.BeginEdit(*req.NodeID)
		return nil
	})
}

// SetFilter updates one text filter
func (h *Handler) SetFilter(c *gin.Context) {
	var req struct {
		Kind string `json:"kind" binding:"required"`
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := state.ParseFilterKind(req.Kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		ctrl.SetFilter(kind, req.Text)
		return nil
	})
}

// SetHighlight highlights a relation type; empty clears it
func (h *Handler) SetHighlight(c *gin.Context) {
	var req struct {
		RelationType string `json:"relation_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		ctrl.SetHighlight(req.RelationType)
		return nil
	})
}

// SetLayoutMode switches between ring and tree
func (h *Handler) SetLayoutMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := layout.ParseMode(req.Mode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		return ctrl.SetLayoutMode(mode)
	})
}

// NotePositionChange records a node drag
func (h *Handler) NotePositionChange(c *gin.Context) {
	var req struct {
		NodeID *int64   `json:"node_id" binding:"required"`
		X      *float64 `json:"x" binding:"required"`
		Y      *float64 `json:"y" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		ctrl.NotePositionChange(*req.NodeID, layout.Position{X: *req.X, Y: *req.Y})
		return nil
	})
}

// ResetLayout discards manual positions
func (h *Handler) ResetLayout(c *gin.Context) {
	h.withView(c, func(ctrl *workspace.Controller) error {
		ctrl.ResetLayout()
		return nil
	})
}

// Viewport returns the fit-to-view or center-on-selection camera
func (h *Handler) Viewport(c *gin.Context) {
	s, err := h.registry.get(c.Param("view"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	zoom := 1.0
	if raw := c.Query("zoom"); raw != "" {
		if zoom, err = strconv.ParseFloat(raw, 64); err != nil {
			h.respondError(c, apperrors.NewInvalidInput("zoom", "must be a number"))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.DefaultQuery("mode", "fit") {
	case "fit":
		c.JSON(http.StatusOK, gin.H{"viewport": s.ctrl.FitToView(), "found": true})
	case "center":
		vp, found := s.ctrl.CenterOnSelection(zoom)
		c.JSON(http.StatusOK, gin.H{"viewport": vp, "found": found})
	default:
		h.respondError(c, apperrors.NewInvalidInput("mode", "expected fit or center"))
	}
}

// ============================================================================
// Data refresh
// ============================================================================

// Refresh reloads the view's conversation graph
func (h *Handler) Refresh(c *gin.Context) {
	s, err := h.registry.get(c.Param("view"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.refresh(c, s); err != nil {
		h.respondError(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, respond(s))
}

// SwitchConversation points the view at another conversation
func (h *Handler) SwitchConversation(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.registry.get(c.Param("view"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	s.mu.Lock()
	s.ctrl.SetConversation(req.ConversationID)
	s.mu.Unlock()

	if err := h.refresh(c, s); err != nil {
		h.respondError(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, respond(s))
}

// refresh fetches without holding the session lock; a result superseded in
// the meantime is dropped by the controller
func (h *Handler) refresh(c *gin.Context, s *session) error {
	s.mu.Lock()
	ticket, err := s.ctrl.BeginRefresh()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	cg, fetchErr := s.ctrl.Fetch(ctx, ticket)

	s.mu.Lock()
	defer s.mu.Unlock()
	return h.timedOut("refresh", s.ctrl.ApplyRefresh(ticket, cg, fetchErr))
}

// ============================================================================
// Positions and export
// ============================================================================

// ExportPositions returns the view's position map
func (h *Handler) ExportPositions(c *gin.Context) {
	s, err := h.registry.get(c.Param("view"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	s.mu.Lock()
	data, err := s.ctrl.ExportPositions()
	s.mu.Unlock()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// ImportPositions replaces the view's position map
func (h *Handler) ImportPositions(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withView(c, func(ctrl *workspace.Controller) error {
		if _, err := ctrl.ImportPositions(data); err != nil {
			return apperrors.NewInvalidInput("positions", err.Error())
		}
		return nil
	})
}

// ExportSVG renders the view as SVG
func (h *Handler) ExportSVG(c *gin.Context) {
	s, err := h.registry.get(c.Param("view"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	s.mu.Lock()
	payload := s.ctrl.Render()
	s.mu.Unlock()
	c.Data(http.StatusOK, "image/svg+xml", render.SVG(payload))
}

// ============================================================================
// Edits
// ============================================================================

// UpdateNode edits an entity and reloads the view
func (h *Handler) UpdateNode(c *gin.Context) {
	id, ok := h.pathID(c, "node")
	if !ok {
		return
	}
	var update graph.EntityUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := update.Validate(); err != nil {
		h.respondError(c, apperrors.NewInvalidInput("entity", err.Error()))
		return
	}
	h.withViewContext(c, func(ctx context.Context, ctrl *workspace.Controller) error {
		if err := h.visibleNode(ctrl, id); err != nil {
			return err
		}
		return ctrl.UpdateNode(ctx, id, update)
	})
}

// DeleteNode deletes an entity and reloads the view
func (h *Handler) DeleteNode(c *gin.Context) {
	id, ok := h.pathID(c, "node")
	if !ok {
		return
	}
	h.withViewContext(c, func(ctx context.Context, ctrl *workspace.Controller) error {
		if err := h.visibleNode(ctrl, id); err != nil {
			return err
		}
		return ctrl.DeleteNode(ctx, id)
	})
}

// UpdateEdge edits a relation and reloads the view
func (h *Handler) UpdateEdge(c *gin.Context) {
	id, ok := h.pathID(c, "edge")
	if !ok {
		return
	}
	var update graph.RelationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := update.Validate(); err != nil {
		h.respondError(c, apperrors.NewInvalidInput("relation", err.Error()))
		return
	}
	h.withViewContext(c, func(ctx context.Context, ctrl *workspace.Controller) error {
		if !ctrl.Snapshot().HasEdge(id) {
			return apperrors.NewRecordNotFound("relation", id)
		}
		return ctrl.UpdateEdge(ctx, id, update)
	})
}

// DeleteEdge deletes a relation and reloads the view
func (h *Handler) DeleteEdge(c *gin.Context) {
	id, ok := h.pathID(c, "edge")
	if !ok {
		return
	}
	h.withViewContext(c, func(ctx context.Context, ctrl *workspace.Controller) error {
		if !ctrl.Snapshot().HasEdge(id) {
			return apperrors.NewRecordNotFound("relation", id)
		}
		return ctrl.DeleteEdge(ctx, id)
	})
}

// ============================================================================
// Helpers
// ============================================================================

// withView runs fn under the session lock and responds with the new state
func (h *Handler) withView(c *gin.Context, fn func(*workspace.Controller) error) {
	h.withViewContext(c, func(_ context.Context, ctrl *workspace.Controller) error {
		return fn(ctrl)
	})
}

func (h *Handler) withViewContext(c *gin.Context, fn func(context.Context, *workspace.Controller) error) {
	s, err := h.registry.get(c.Param("view"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := h.timedOut(c.FullPath(), fn(ctx, s.ctrl)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, respond(s))
}

// visibleNode rejects edits on nodes the view does not show
func (h *Handler) visibleNode(ctrl *workspace.Controller, id int64) error {
	n, ok := ctrl.Snapshot().Node(id)
	if !ok {
		return apperrors.NewRecordNotFound("entity", id)
	}
	h.logger.Debug("Editing node", zap.Int64("node_id", n.ID), zap.String("label", n.Label))
	return nil
}

// timedOut turns a deadline hit into a typed timeout error
func (h *Handler) timedOut(operation string, err error) error {
	if err == nil || !stderrors.Is(err, context.DeadlineExceeded) || apperrors.IsErrorType(err, apperrors.ErrorTypeContext) {
		return err
	}
	timeout := apperrors.NewContextTimeout(operation, h.deps.RequestTimeout)
	timeout.Err = err
	return timeout
}

// respond must be called with the session lock held
func respond(s *session) viewResponse {
	return viewResponse{
		ViewID:  s.id,
		State:   s.ctrl.View(),
		Payload: s.ctrl.Render(),
	}
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.deps.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.deps.RequestTimeout)
}

func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		h.respondError(c, apperrors.NewInvalidInput(name, "must be an integer id"))
		return 0, false
	}
	return id, true
}

// respondError maps engine errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var (
		notFound    *apperrors.ErrRecordNotFound
		viewMissing *apperrors.ErrViewNotFound
		badFilter   state.ErrInvalidFilterKind
	)
	switch {
	case stderrors.As(err, &viewMissing), stderrors.As(err, &notFound):
		status = http.StatusNotFound
	case stderrors.Is(err, apperrors.ErrViewClosed):
		status = http.StatusGone
	case stderrors.Is(err, apperrors.ErrStaleFetch):
		status = http.StatusConflict
	case stderrors.Is(err, workspace.ErrNoEditor):
		status = http.StatusNotImplemented
	case stderrors.Is(err, layout.ErrUnknownMode),
		stderrors.Is(err, graph.ErrEmptyUpdate),
		stderrors.As(err, &badFilter),
		apperrors.IsErrorType(err, apperrors.ErrorTypeInput):
		status = http.StatusBadRequest
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext),
		stderrors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case apperrors.IsErrorType(err, apperrors.ErrorTypeFetch),
		apperrors.IsErrorType(err, apperrors.ErrorTypeGraph):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":     err.Error(),
		"retryable": apperrors.IsRetryable(err),
	})
}
