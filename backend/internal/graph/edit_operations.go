package graph

import (
	"context"

	"go.uber.org/zap"

	apperrors "kgraph-atlas/backend/pkg/errors"
)

// ============================================================================
// Entity Operations
// ============================================================================

// UpdateEntity applies a partial update to an entity
func (r *Repository) UpdateEntity(ctx context.Context, id int64, update EntityUpdate) error {
	if err := update.Validate(); err != nil {
		return apperrors.NewEditFailed("entity", id, err)
	}

	var aliases interface{}
	if update.KnownAliases != nil {
		aliases = update.KnownAliases
	}

	query := `
		MATCH (e:Entity {id: $id})
		SET
			e.canonical_name = coalesce($canonicalName, e.canonical_name),
			e.type_label = coalesce($typeLabel, e.type_label),
			e.known_aliases = coalesce($knownAliases, e.known_aliases),
			e.updated_at = datetime()
		RETURN count(e) as n
	`

	n, err := r.runCount(ctx, query, map[string]interface{}{
		"id":            id,
		"canonicalName": optionalString(update.CanonicalName),
		"typeLabel":     optionalString(update.TypeLabel),
		"knownAliases":  aliases,
	})
	if err != nil {
		return apperrors.NewEditFailed("entity", id, err)
	}
	if n == 0 {
		return apperrors.NewRecordNotFound("entity", id)
	}

	r.logger.Info("Entity updated", zap.Int64("entity_id", id))
	return nil
}

// DeleteEntity removes an entity together with its relations
func (r *Repository) DeleteEntity(ctx context.Context, id int64) error {
	query := `
		MATCH (e:Entity {id: $id})
		DETACH DELETE e
		RETURN count(e) as n
	`

	n, err := r.runCount(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return apperrors.NewEditFailed("entity", id, err)
	}
	if n == 0 {
		return apperrors.NewRecordNotFound("entity", id)
	}

	r.logger.Info("Entity deleted", zap.Int64("entity_id", id))
	return nil
}

// UpsertEntity creates or replaces an entity node
func (r *Repository) UpsertEntity(ctx context.Context, e Entity) error {
	query := `
		MERGE (e:Entity {id: $id})
		ON CREATE SET e.created_at = datetime()
		SET
			e.conversation_id = $conversationID,
			e.canonical_name = $canonicalName,
			e.type_label = $typeLabel,
			e.known_aliases = $knownAliases,
			e.updated_at = datetime()
		RETURN count(e) as n
	`

	aliases := e.KnownAliases
	if aliases == nil {
		aliases = []string{}
	}
	_, err := r.runCount(ctx, query, map[string]interface{}{
		"id":             e.ID,
		"conversationID": e.ConversationID,
		"canonicalName":  e.CanonicalName,
		"typeLabel":      e.TypeLabel,
		"knownAliases":   aliases,
	})
	if err != nil {
		return apperrors.NewEditFailed("entity", e.ID, err)
	}
	return nil
}

// ============================================================================
// Relation Operations
// ============================================================================

// UpdateRelation applies a partial update to a relation
func (r *Repository) UpdateRelation(ctx context.Context, id int64, update RelationUpdate) error {
	if err := update.Validate(); err != nil {
		return apperrors.NewEditFailed("relation", id, err)
	}

	qualifiers, err := encodeQualifiers(update.Qualifiers)
	if err != nil {
		return apperrors.NewEditFailed("relation", id, err)
	}
	var confidence interface{}
	if update.Confidence != nil {
		confidence = *update.Confidence
	}

	query := `
		MATCH ()-[rel:RELATES {id: $id}]->()
		SET
			rel.relation_type = coalesce($relationType, rel.relation_type),
			rel.confidence = coalesce($confidence, rel.confidence),
			rel.qualifiers_json = coalesce($qualifiers, rel.qualifiers_json),
			rel.updated_at = datetime()
		RETURN count(rel) as n
	`

	n, err := r.runCount(ctx, query, map[string]interface{}{
		"id":           id,
		"relationType": optionalString(update.RelationType),
		"confidence":   confidence,
		"qualifiers":   qualifiers,
	})
	if err != nil {
		return apperrors.NewEditFailed("relation", id, err)
	}
	if n == 0 {
		return apperrors.NewRecordNotFound("relation", id)
	}

	r.logger.Info("Relation updated", zap.Int64("relation_id", id))
	return nil
}

// DeleteRelation removes a single relation
func (r *Repository) DeleteRelation(ctx context.Context, id int64) error {
	query := `
		MATCH ()-[rel:RELATES {id: $id}]->()
		DELETE rel
		RETURN count(rel) as n
	`

	n, err := r.runCount(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return apperrors.NewEditFailed("relation", id, err)
	}
	if n == 0 {
		return apperrors.NewRecordNotFound("relation", id)
	}

	r.logger.Info("Relation deleted", zap.Int64("relation_id", id))
	return nil
}

// UpsertRelation creates or replaces a relation between two existing entities
func (r *Repository) UpsertRelation(ctx context.Context, rel Relation) error {
	qualifiers, err := encodeQualifiers(rel.Qualifiers)
	if err != nil {
		return apperrors.NewEditFailed("relation", rel.ID, err)
	}

	query := `
		MATCH (a:Entity {id: $fromID})
		MATCH (b:Entity {id: $toID})
		MERGE (a)-[rel:RELATES {id: $id}]->(b)
		ON CREATE SET rel.created_at = datetime()
		SET
			rel.conversation_id = $conversationID,
			rel.relation_type = $relationType,
			rel.confidence = $confidence,
			rel.qualifiers_json = $qualifiers
		RETURN count(rel) as n
	`

	n, err := r.runCount(ctx, query, map[string]interface{}{
		"id":             rel.ID,
		"fromID":         rel.FromEntityID,
		"toID":           rel.ToEntityID,
		"conversationID": rel.ConversationID,
		"relationType":   rel.RelationType,
		"confidence":     rel.Confidence,
		"qualifiers":     qualifiers,
	})
	if err != nil {
		return apperrors.NewEditFailed("relation", rel.ID, err)
	}
	if n == 0 {
		return apperrors.NewRecordNotFound("entity", rel.FromEntityID)
	}
	return nil
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// DeleteConversation removes every entity and relation recorded for a
// conversation and returns the number of entities removed
func (r *Repository) DeleteConversation(ctx context.Context, conversationID string) (int64, error) {
	rels := `
		MATCH ()-[rel:RELATES {conversation_id: $conversationID}]->()
		DELETE rel
		RETURN count(rel) as n
	`
	if _, err := r.runCount(ctx, rels, map[string]interface{}{"conversationID": conversationID}); err != nil {
		return 0, apperrors.NewGraphQueryFailed("delete conversation relations", err)
	}

	entities := `
		MATCH (e:Entity {conversation_id: $conversationID})
		DETACH DELETE e
		RETURN count(e) as n
	`
	n, err := r.runCount(ctx, entities, map[string]interface{}{"conversationID": conversationID})
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("delete conversation entities", err)
	}

	r.logger.Info("Conversation deleted",
		zap.String("conversation_id", conversationID),
		zap.Int64("entities", n),
	)
	return n, nil
}
