package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/pkg/config"
	"kgraph-atlas/backend/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

func main() {
	conversationID := flag.String("conversation", "demo", "Conversation id to seed")
	input := flag.String("file", "", "Conversation graph JSON to load instead of the demo graph")
	reset := flag.Bool("reset", false, "Delete the conversation's existing entities and relations first")
	skipConfirm := flag.Bool("y", false, "Skip confirmation prompt")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...", zap.String("conversation_id", *conversationID))

	cg, err := loadGraph(*input, *conversationID)
	if err != nil {
		log.Fatal("Failed to load conversation graph", zap.Error(err))
	}

	if *reset && !*skipConfirm {
		log.Warn("This will DELETE the conversation's entities and relations",
			zap.String("conversation_id", cg.ConversationID))
		fmt.Print("Are you sure you want to continue? (yes/no): ")
		var response string
		fmt.Scanln(&response)
		if response != "yes" && response != "y" {
			log.Info("Aborted.")
			os.Exit(0)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	repo := graph.NewRepository(driver, cfg.Neo4jDatabase)

	log.Info("Applying schema...")
	applied := repo.EnsureSchema(ctx)
	log.Info("Schema applied", zap.Int("statements", applied))

	if *reset {
		n, err := repo.DeleteConversation(ctx, cg.ConversationID)
		if err != nil {
			log.Fatal("Failed to delete conversation", zap.Error(err))
		}
		log.Info("Existing conversation removed", zap.Int64("entities", n))
	}

	for _, e := range cg.Entities {
		if e.ConversationID == "" {
			e.ConversationID = cg.ConversationID
		}
		if err := repo.UpsertEntity(ctx, e); err != nil {
			log.Fatal("Failed to create entity", zap.Int64("entity_id", e.ID), zap.Error(err))
		}
	}
	log.Info("Entities created", zap.Int("count", len(cg.Entities)))

	for _, rel := range cg.Relations {
		if rel.ConversationID == "" {
			rel.ConversationID = cg.ConversationID
		}
		if err := repo.UpsertRelation(ctx, rel); err != nil {
			log.Fatal("Failed to create relation", zap.Int64("relation_id", rel.ID), zap.Error(err))
		}
	}
	log.Info("Relations created", zap.Int("count", len(cg.Relations)))

	// Read back through the same path the server uses
	fetched, err := repo.FetchConversationGraph(ctx, cg.ConversationID)
	if err != nil {
		log.Fatal("Failed to verify seeded conversation", zap.Error(err))
	}
	log.Info("Database seeding completed successfully!",
		zap.String("conversation_id", fetched.ConversationID),
		zap.Int("entities", len(fetched.Entities)),
		zap.Int("relations", len(fetched.Relations)),
	)
}

func loadGraph(path, conversationID string) (*graph.ConversationGraph, error) {
	if path == "" {
		return demoGraph(conversationID), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cg graph.ConversationGraph
	if err := json.Unmarshal(data, &cg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if cg.ConversationID == "" {
		cg.ConversationID = conversationID
	}
	return &cg, nil
}

func demoGraph(conversationID string) *graph.ConversationGraph {
	return &graph.ConversationGraph{
		ConversationID: conversationID,
		Entities: []graph.Entity{
			{ID: 1001, CanonicalName: "Alice Moreau", TypeLabel: "Person", KnownAliases: []string{"Alice", "Ali"}},
			{ID: 1002, CanonicalName: "Bob Tanaka", TypeLabel: "Person", KnownAliases: []string{"Bob"}},
			{ID: 1003, CanonicalName: "Acme Robotics", TypeLabel: "Organization", KnownAliases: []string{"Acme"}},
			{ID: 1004, CanonicalName: "Lyon", TypeLabel: "Place"},
			{ID: 1005, CanonicalName: "Project Atlas", TypeLabel: "Project", KnownAliases: []string{"Atlas"}},
			{ID: 1006, CanonicalName: "Rover X2", TypeLabel: "Product"},
			{ID: 1007, CanonicalName: "Chloe Park", TypeLabel: "Person"},
			{ID: 1008, CanonicalName: "Kyoto", TypeLabel: "Place"},
		},
		Relations: []graph.Relation{
			{ID: 2001, FromEntityID: 1001, ToEntityID: 1003, RelationType: "works_at", Confidence: 0.95},
			{ID: 2002, FromEntityID: 1002, ToEntityID: 1003, RelationType: "works_at", Confidence: 0.9},
			{ID: 2003, FromEntityID: 1001, ToEntityID: 1002, RelationType: "knows", Confidence: 0.8},
			{ID: 2004, FromEntityID: 1003, ToEntityID: 1004, RelationType: "located_in", Confidence: 0.85},
			{ID: 2005, FromEntityID: 1001, ToEntityID: 1005, RelationType: "leads", Confidence: 0.7,
				Qualifiers: map[string]interface{}{"since": "2023"}},
			{ID: 2006, FromEntityID: 1003, ToEntityID: 1006, RelationType: "owns", Confidence: 0.9},
			{ID: 2007, FromEntityID: 1005, ToEntityID: 1006, RelationType: "produces", Confidence: 0.6},
			{ID: 2008, FromEntityID: 1007, ToEntityID: 1002, RelationType: "knows", Confidence: 0.5},
			{ID: 2009, FromEntityID: 1007, ToEntityID: 1008, RelationType: "lives_in", Confidence: 0.75},
		},
	}
}
