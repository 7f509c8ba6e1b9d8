package workspace

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/metrics"
	apperrors "kgraph-atlas/backend/pkg/errors"
)

// Ticket identifies one fetch. Only the most recently issued ticket for the
// current conversation may be applied.
type Ticket struct {
	Seq            uint64
	ConversationID string
}

// BeginRefresh issues a ticket for a new fetch, superseding every earlier one
func (c *Controller) BeginRefresh() (Ticket, error) {
	if c.closed {
		return Ticket{}, apperrors.ErrViewClosed
	}
	c.seq++
	return Ticket{Seq: c.seq, ConversationID: c.view.ConversationID}, nil
}

// Fetch loads the graph a ticket refers to. It touches no controller state,
// so it may run while other calls on the controller proceed.
func (c *Controller) Fetch(ctx context.Context, t Ticket) (*graph.ConversationGraph, error) {
	if c.source == nil {
		return nil, apperrors.NewFetchFailed(t.ConversationID, errors.New("no graph source configured"))
	}
	return c.source.FetchConversationGraph(ctx, t.ConversationID)
}

// ApplyRefresh installs the result of a fetch. Superseded tickets return
// ErrStaleFetch and change nothing. A failed fetch leaves the previous
// snapshot and positions in place.
func (c *Controller) ApplyRefresh(t Ticket, cg *graph.ConversationGraph, fetchErr error) error {
	if c.closed {
		c.metrics.ObserveRefresh(metrics.RefreshStale)
		return apperrors.ErrViewClosed
	}
	if t.Seq != c.seq || t.ConversationID != c.view.ConversationID {
		c.metrics.ObserveRefresh(metrics.RefreshStale)
		c.logger.Debug("Discarding superseded fetch",
			zap.Uint64("ticket", t.Seq),
			zap.Uint64("latest", c.seq),
			zap.String("ticket_conversation", t.ConversationID),
			zap.String("conversation_id", c.view.ConversationID),
		)
		return apperrors.ErrStaleFetch
	}
	if fetchErr != nil {
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		c.logger.Warn("Graph fetch failed, keeping last snapshot",
			zap.String("conversation_id", t.ConversationID),
			zap.Error(fetchErr),
		)
		if apperrors.IsErrorType(fetchErr, apperrors.ErrorTypeFetch) {
			return fetchErr
		}
		return apperrors.NewFetchFailed(t.ConversationID, fetchErr)
	}

	if cg == nil {
		cg = &graph.ConversationGraph{ConversationID: t.ConversationID}
	}
	c.raw = cg
	c.rederive()
	c.metrics.ObserveRefresh(metrics.RefreshApplied)
	c.logger.Debug("Applied graph snapshot",
		zap.String("conversation_id", t.ConversationID),
		zap.Int("nodes", len(c.snapshot.Nodes)),
		zap.Int("edges", len(c.snapshot.Edges)),
	)
	return nil
}

// Refresh fetches and applies the current conversation's graph in one step.
// Use the BeginRefresh/Fetch/ApplyRefresh sequence to fetch without holding
// the caller's lock.
func (c *Controller) Refresh(ctx context.Context) error {
	t, err := c.BeginRefresh()
	if err != nil {
		return err
	}
	cg, fetchErr := c.Fetch(ctx, t)
	return c.ApplyRefresh(t, cg, fetchErr)
}

// SetConversation moves the view to another conversation: positions, node
// references and the current graph are dropped and pending fetches become
// stale. Filters, highlight and layout mode carry over. It reports whether
// the conversation actually changed.
func (c *Controller) SetConversation(conversationID string) bool {
	if conversationID == c.view.ConversationID {
		return false
	}
	c.view.SwitchConversation(conversationID)
	c.seq++
	c.raw = nil
	c.store.Reset()
	c.rederive()
	c.logger.Info("Switched conversation", zap.String("conversation_id", conversationID))
	return true
}

// SwitchConversation changes conversation and loads its graph
func (c *Controller) SwitchConversation(ctx context.Context, conversationID string) error {
	c.SetConversation(conversationID)
	return c.Refresh(ctx)
}
