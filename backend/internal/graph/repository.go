package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "kgraph-atlas/backend/pkg/errors"
	"kgraph-atlas/backend/pkg/logger"
)

// Repository reads and edits the conversation knowledge graph stored in Neo4j.
//
// Entities are (:Entity) nodes keyed by an integer id; relations are
// [:RELATES] relationships carrying their own id and relation_type.
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, database string) *Repository {
	return &Repository{
		driver:   driver,
		database: database,
		logger:   logger.Named("graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

const entityColumns = `
	e.id as id,
	e.conversation_id as conversation_id,
	e.canonical_name as canonical_name,
	e.type_label as type_label,
	e.known_aliases as known_aliases`

// FetchConversationGraph returns every unmerged entity of a conversation and
// every relation recorded in it. Relation endpoints that live outside the
// conversation are fetched as well so no relation is left dangling.
func (r *Repository) FetchConversationGraph(ctx context.Context, conversationID string) (*ConversationGraph, error) {
	var (
		entities  []Entity
		relations []Relation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entities, err = r.listEntities(gctx, conversationID)
		return err
	})
	g.Go(func() error {
		var err error
		relations, err = r.listRelations(gctx, conversationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewFetchFailed(conversationID, err)
	}

	known := make(map[int64]struct{}, len(entities))
	for _, e := range entities {
		known[e.ID] = struct{}{}
	}
	missing := make([]int64, 0)
	for _, rel := range relations {
		for _, id := range []int64{rel.FromEntityID, rel.ToEntityID} {
			if _, ok := known[id]; !ok {
				known[id] = struct{}{}
				missing = append(missing, id)
			}
		}
	}
	if len(missing) > 0 {
		extra, err := r.entitiesByID(ctx, missing)
		if err != nil {
			return nil, apperrors.NewFetchFailed(conversationID, err)
		}
		r.logger.Debug("Fetched out-of-conversation relation endpoints",
			zap.String("conversation_id", conversationID),
			zap.Int("count", len(extra)),
		)
		entities = append(entities, extra...)
	}

	sort.SliceStable(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })

	return &ConversationGraph{
		ConversationID: conversationID,
		Entities:       entities,
		Relations:      relations,
	}, nil
}

func (r *Repository) listEntities(ctx context.Context, conversationID string) ([]Entity, error) {
	query := `
		MATCH (e:Entity {conversation_id: $conversationID})
		WHERE e.merged_into_id IS NULL
		RETURN` + entityColumns + `
		ORDER BY e.id`
	return r.queryEntities(ctx, query, map[string]interface{}{"conversationID": conversationID})
}

func (r *Repository) entitiesByID(ctx context.Context, ids []int64) ([]Entity, error) {
	query := `
		MATCH (e:Entity)
		WHERE e.id IN $ids
		RETURN` + entityColumns + `
		ORDER BY e.id`
	return r.queryEntities(ctx, query, map[string]interface{}{"ids": ids})
}

func (r *Repository) queryEntities(ctx context.Context, query string, params map[string]interface{}) ([]Entity, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("list entities", err)
	}

	entities := make([]Entity, 0)
	for result.Next(ctx) {
		record := result.Record()
		entities = append(entities, Entity{
			ID:             getInt64FromRecord(record, "id"),
			ConversationID: getStringFromRecord(record, "conversation_id"),
			CanonicalName:  getStringFromRecord(record, "canonical_name"),
			TypeLabel:      getStringFromRecord(record, "type_label"),
			KnownAliases:   getStringSliceFromRecord(record, "known_aliases"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewGraphQueryFailed("list entities", err)
	}
	return entities, nil
}

func (r *Repository) listRelations(ctx context.Context, conversationID string) ([]Relation, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (a:Entity)-[rel:RELATES {conversation_id: $conversationID}]->(b:Entity)
		RETURN
			rel.id as id,
			rel.conversation_id as conversation_id,
			a.id as from_entity_id,
			b.id as to_entity_id,
			rel.relation_type as relation_type,
			rel.confidence as confidence,
			rel.qualifiers_json as qualifiers_json
		ORDER BY rel.id`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"conversationID": conversationID,
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("list relations", err)
	}

	relations := make([]Relation, 0)
	for result.Next(ctx) {
		record := result.Record()
		qualifiers, err := decodeQualifiers(getStringFromRecord(record, "qualifiers_json"))
		if err != nil {
			r.logger.Warn("Dropping malformed relation qualifiers",
				zap.Int64("relation_id", getInt64FromRecord(record, "id")),
				zap.Error(err),
			)
		}
		relations = append(relations, Relation{
			ID:             getInt64FromRecord(record, "id"),
			ConversationID: getStringFromRecord(record, "conversation_id"),
			FromEntityID:   getInt64FromRecord(record, "from_entity_id"),
			ToEntityID:     getInt64FromRecord(record, "to_entity_id"),
			RelationType:   getStringFromRecord(record, "relation_type"),
			Confidence:     getFloat64FromRecord(record, "confidence"),
			Qualifiers:     qualifiers,
		})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewGraphQueryFailed("list relations", err)
	}
	return relations, nil
}

// runCount executes a write query that returns a single "n" count column
func (r *Repository) runCount(ctx context.Context, query string, params map[string]interface{}) (int64, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return 0, fmt.Errorf("failed to fetch record: %w", err)
		}
		return 0, nil
	}
	return getInt64FromRecord(result.Record(), "n"), nil
}
