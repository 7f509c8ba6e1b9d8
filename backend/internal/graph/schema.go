package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

var schemaStatements = []string{
	"CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE",
	"CREATE INDEX entity_conversation IF NOT EXISTS FOR (e:Entity) ON (e.conversation_id)",
	"CREATE INDEX relates_id IF NOT EXISTS FOR ()-[r:RELATES]-() ON (r.id)",
	"CREATE INDEX relates_conversation IF NOT EXISTS FOR ()-[r:RELATES]-() ON (r.conversation_id)",
}

// EnsureSchema creates the constraints and indexes the graph queries rely on.
// Failures are logged and skipped; older servers may lack relationship indexes.
func (r *Repository) EnsureSchema(ctx context.Context) int {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	applied := 0
	for _, stmt := range schemaStatements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			r.logger.Warn("Failed to apply schema statement (may already exist)",
				zap.String("statement", stmt),
				zap.Error(err),
			)
			continue
		}
		applied++
	}
	return applied
}
