package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func legendCmd() *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "legend",
		Short: "List relation types and node clusters of a conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctrl, cleanup, err := loadController(ctx, &src)
			if err != nil {
				return err
			}
			defer cleanup()

			p := ctrl.Render()
			out := cmd.OutOrStdout()
			heading(out, "legend "+p.ConversationID, strconv.Itoa(len(p.Nodes))+" nodes, "+strconv.Itoa(len(p.Edges))+" edges")

			rows := make([][]string, 0, len(p.RelationTypes))
			for _, rt := range p.RelationTypes {
				rows = append(rows, []string{rt.RelationType, strconv.Itoa(rt.Count), strings.Join(rt.SampleEdges, ", ")})
			}
			printTable(out, []string{"RELATION", "COUNT", "EXAMPLES"}, rows)
			fmt.Fprintln(out)

			rows = rows[:0]
			for _, cl := range p.Clusters {
				rows = append(rows, []string{cl.ID, cl.Type, cl.Color, strconv.Itoa(cl.Size)})
			}
			printTable(out, []string{"CLUSTER", "TYPE", "COLOR", "NODES"}, rows)
			return nil
		},
	}
	src.register(cmd)
	return cmd
}
