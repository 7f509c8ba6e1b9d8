package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"kgraph-atlas/backend/internal/render"
)

func inspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <file.svg>",
		Short: "Summarize an SVG export: node states, labeled edges, clusters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			s, err := render.Inspect(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			heading(out, "svg "+s.ConversationID, fmt.Sprintf("%s layout, epoch %d", s.LayoutMode, s.LayoutEpoch))
			field(out, "nodes", fmt.Sprintf("%d (%d focused, %d dimmed)", s.Nodes, s.FocusedNodes, s.DimmedNodes))
			field(out, "edges", fmt.Sprintf("%d (%d labeled, %d dimmed)", s.Edges, s.LabeledEdges, s.DimmedEdges))
			if len(s.Selected) > 0 {
				field(out, "selected", s.Selected)
			}
			fmt.Fprintln(out)

			ids := make([]string, 0, len(s.Clusters))
			for id := range s.Clusters {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{id, strconv.Itoa(s.Clusters[id])})
			}
			printTable(out, []string{"CLUSTER", "NODES"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}
