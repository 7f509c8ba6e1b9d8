package workspace

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"kgraph-atlas/backend/internal/graph"
)

// ErrNoEditor is returned by edit operations on a read-only controller
var ErrNoEditor = errors.New("graph editing is not configured")

// UpdateNode persists an entity edit and reloads the graph
func (c *Controller) UpdateNode(ctx context.Context, id int64, update graph.EntityUpdate) error {
	return c.edit(ctx, "entity", "update", id, func(e graph.Editor) error {
		return e.UpdateEntity(ctx, id, update)
	})
}

// DeleteNode deletes an entity and reloads the graph
func (c *Controller) DeleteNode(ctx context.Context, id int64) error {
	return c.edit(ctx, "entity", "delete", id, func(e graph.Editor) error {
		return e.DeleteEntity(ctx, id)
	})
}

// UpdateEdge persists a relation edit and reloads the graph
func (c *Controller) UpdateEdge(ctx context.Context, id int64, update graph.RelationUpdate) error {
	return c.edit(ctx, "relation", "update", id, func(e graph.Editor) error {
		return e.UpdateRelation(ctx, id, update)
	})
}

// DeleteEdge deletes a relation and reloads the graph
func (c *Controller) DeleteEdge(ctx context.Context, id int64) error {
	return c.edit(ctx, "relation", "delete", id, func(e graph.Editor) error {
		return e.DeleteRelation(ctx, id)
	})
}

func (c *Controller) edit(ctx context.Context, kind, op string, id int64, fn func(graph.Editor) error) error {
	if c.editor == nil {
		return ErrNoEditor
	}

	err := fn(c.editor)
	c.metrics.ObserveEdit(kind, op, err)
	if err != nil {
		c.logger.Warn("Edit failed",
			zap.String("kind", kind),
			zap.String("operation", op),
			zap.Int64("id", id),
			zap.Error(err),
		)
		return err
	}

	if kind == "entity" {
		c.CancelEdit()
	}
	return c.Refresh(ctx)
}
