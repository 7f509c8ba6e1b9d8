package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/render"
	"kgraph-atlas/backend/internal/state"
	"kgraph-atlas/backend/internal/workspace"
)

type layoutOptions struct {
	source     sourceFlags
	preset     string
	mode       string
	selectID   int64
	hoverID    int64
	highlight  string
	nodeFilter string
	typeFilter string
	edgeFilter string
	format     string
	output     string
}

func layoutCmd() *cobra.Command {
	opts := &layoutOptions{}
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Lay out a conversation graph and print it as JSON, SVG or a table",
		Example: "  graphctl layout -i graph.json --mode tree --select 3 --format svg -o graph.svg\n" +
			"  graphctl layout -c conv-42 --preset view.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.Context(), cmd, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.preset, "preset", "", "TOML view preset; explicit flags override its fields")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Layout mode: ring or tree")
	cmd.Flags().Int64Var(&opts.selectID, "select", 0, "Pin a node (also the tree root)")
	cmd.Flags().Int64Var(&opts.hoverID, "hover", 0, "Hover a node")
	cmd.Flags().StringVar(&opts.highlight, "highlight", "", "Highlight a relation type")
	cmd.Flags().StringVar(&opts.nodeFilter, "node", "", "Node label/alias filter")
	cmd.Flags().StringVar(&opts.typeFilter, "type", "", "Node type filter")
	cmd.Flags().StringVar(&opts.edgeFilter, "edge", "", "Relation type filter")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: json, svg or table")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func runLayout(ctx context.Context, cmd *cobra.Command, opts *layoutOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch opts.format {
	case "json", "svg", "table":
	default:
		return fmt.Errorf("unknown format %q: expected json, svg or table", opts.format)
	}

	ctrl, cleanup, err := loadController(ctx, &opts.source)
	if err != nil {
		return err
	}
	defer cleanup()

	preset := &Preset{}
	if opts.preset != "" {
		if preset, err = loadPreset(opts.preset); err != nil {
			return err
		}
	}
	if err := opts.mergeInto(cmd, preset); err != nil {
		return err
	}
	if err := preset.apply(ctrl, cmd.ErrOrStderr()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.output, err)
		}
		defer f.Close()
		out = f
	}

	if err := writePayload(out, opts.format, ctrl.Render()); err != nil {
		return err
	}
	if opts.output != "" {
		Good.Fprintf(cmd.ErrOrStderr(), "  wrote %s\n", opts.output)
	}
	return nil
}

func writePayload(out io.Writer, format string, payload workspace.Payload) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "svg":
		_, err := out.Write(render.SVG(payload))
		return err
	}
	printPayload(out, payload)
	return nil
}

// mergeInto overrides preset fields with the flags given on the command line
func (opts *layoutOptions) mergeInto(cmd *cobra.Command, p *Preset) error {
	flags := cmd.Flags()
	if flags.Changed("node") {
		p.Filters.Node = opts.nodeFilter
	}
	if flags.Changed("type") {
		p.Filters.Type = opts.typeFilter
	}
	if flags.Changed("edge") {
		p.Filters.Edge = opts.edgeFilter
	}
	if opts.mode != "" {
		if _, err := layout.ParseMode(opts.mode); err != nil {
			return err
		}
		p.Mode = opts.mode
	}
	if flags.Changed("select") {
		p.Select = state.ID(opts.selectID)
	}
	if flags.Changed("hover") {
		p.Hover = state.ID(opts.hoverID)
	}
	if flags.Changed("highlight") {
		p.Highlight = opts.highlight
	}
	return nil
}

// loadController fetches the requested conversation into a new controller
func loadController(ctx context.Context, src *sourceFlags) (*workspace.Controller, func(), error) {
	source, cleanup, err := src.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	ctrl := workspace.New(src.conversationID, workspace.Options{Source: source})
	if err := ctrl.Refresh(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctrl, cleanup, nil
}

func printPayload(w io.Writer, p workspace.Payload) {
	heading(w, "graph "+p.ConversationID, fmt.Sprintf("%s layout, epoch %d", p.LayoutMode, p.LayoutEpoch))

	labels := make(map[int64]string, len(p.Nodes))
	rows := make([][]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		labels[n.ID] = n.Label
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10),
			n.Label,
			n.Type,
			fmt.Sprintf("%6.2f", n.X),
			fmt.Sprintf("%6.2f", n.Y),
			strconv.Itoa(n.Degree),
			n.StyleClass,
		})
	}
	printTable(w, []string{"ID", "LABEL", "TYPE", "X", "Y", "DEG", "CLASS"}, rows)
	fmt.Fprintln(w)

	rows = rows[:0]
	for _, e := range p.Edges {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			labels[e.Source] + " -> " + labels[e.Target],
			e.RelationType,
			fmt.Sprintf("%.2f", e.Confidence),
			e.StyleClass,
		})
	}
	printTable(w, []string{"ID", "EDGE", "RELATION", "CONF", "CLASS"}, rows)
	fmt.Fprintln(w)

	field(w, "clusters", len(p.Clusters))
	if p.Focus.ActiveNodeID != nil {
		field(w, "focus", labels[*p.Focus.ActiveNodeID])
	}
	if p.Focus.HighlightRelationType != "" {
		field(w, "highlight", p.Focus.HighlightRelationType)
	}
	if f := p.Filters; f != (graph.Filters{}) {
		field(w, "filters", fmt.Sprintf("node=%q type=%q edge=%q", f.Node, f.Type, f.Edge))
	}
}
