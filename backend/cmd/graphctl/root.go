package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/pkg/config"
)

var version = "0.3.0"

// sourceFlags selects where a command reads its conversation graph from
type sourceFlags struct {
	input          string
	conversationID string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Conversation graph JSON file (reads Neo4j when empty)")
	cmd.Flags().StringVarP(&f.conversationID, "conversation", "c", "", "Conversation id")
}

// open returns a graph source and a cleanup function. A file source fills
// in the conversation id when none was given.
func (f *sourceFlags) open(ctx context.Context) (graph.Source, func(), error) {
	if f.input != "" {
		src, err := loadFileSource(f.input)
		if err != nil {
			return nil, nil, err
		}
		if f.conversationID == "" {
			f.conversationID = src.graph.ConversationID
		}
		return src, func() {}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	repo := graph.NewRepository(driver, cfg.Neo4jDatabase)
	return repo, func() { _ = repo.Close() }, nil
}

// fileSource serves a conversation graph stored as JSON
type fileSource struct {
	path  string
	graph graph.ConversationGraph
}

func loadFileSource(path string) (*fileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	src := &fileSource{path: path}
	if err := json.Unmarshal(data, &src.graph); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return src, nil
}

func (s *fileSource) FetchConversationGraph(_ context.Context, conversationID string) (*graph.ConversationGraph, error) {
	if s.graph.ConversationID != "" && s.graph.ConversationID != conversationID {
		return nil, fmt.Errorf("%s holds conversation %q, not %q", s.path, s.graph.ConversationID, conversationID)
	}
	cg := s.graph
	cg.ConversationID = conversationID
	return &cg, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "graphctl",
		Short: "Lay out and inspect conversation graphs",
		Long: Brand.Sprint("graphctl") + " lays out and inspects conversation graphs\n" +
			Subtle.Sprint("Reads a graph from JSON or Neo4j and renders it as JSON, SVG or a table"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetVersionTemplate("graphctl {{ .Version }}\n")

	root.AddCommand(
		layoutCmd(),
		inspectCmd(),
		legendCmd(),
	)
	return root
}
