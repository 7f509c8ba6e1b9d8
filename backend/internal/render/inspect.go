package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Summary describes an SVG export
type Summary struct {
	ConversationID string         `json:"conversation_id"`
	LayoutMode     string         `json:"layout_mode"`
	LayoutEpoch    uint64         `json:"layout_epoch"`
	Nodes          int            `json:"nodes"`
	Edges          int            `json:"edges"`
	LabeledEdges   int            `json:"labeled_edges"`
	FocusedNodes   int            `json:"focused_nodes"`
	DimmedNodes    int            `json:"dimmed_nodes"`
	DimmedEdges    int            `json:"dimmed_edges"`
	Selected       []int64        `json:"selected"`
	Clusters       map[string]int `json:"clusters"`
	EdgeLabels     []string       `json:"edge_labels"`
}

// Inspect parses an SVG produced by SVG and counts what it shows
func Inspect(r io.Reader) (*Summary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}

	root := doc.Find("svg").First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("no svg element found")
	}

	s := &Summary{
		ConversationID: root.AttrOr("data-conversation", ""),
		LayoutMode:     root.AttrOr("data-layout-mode", ""),
		Selected:       []int64{},
		Clusters:       map[string]int{},
		EdgeLabels:     []string{},
	}
	if epoch := root.AttrOr("data-layout-epoch", ""); epoch != "" {
		s.LayoutEpoch, _ = strconv.ParseUint(epoch, 10, 64)
	}

	doc.Find("g.nodes > g.node").Each(func(_ int, node *goquery.Selection) {
		s.Nodes++
		if node.HasClass("focused") {
			s.FocusedNodes++
		}
		if node.HasClass("dimmed") {
			s.DimmedNodes++
		}
		if node.HasClass("selected") {
			id, err := strconv.ParseInt(strings.TrimPrefix(node.AttrOr("id", ""), "node-"), 10, 64)
			if err == nil {
				s.Selected = append(s.Selected, id)
			}
		}
		s.Clusters[node.AttrOr("data-cluster", "")]++
	})

	doc.Find("g.edges > line.edge").Each(func(_ int, edge *goquery.Selection) {
		s.Edges++
		if edge.HasClass("dimmed") {
			s.DimmedEdges++
		}
	})

	doc.Find("text.edge-label").Each(func(_ int, label *goquery.Selection) {
		s.LabeledEdges++
		s.EdgeLabels = append(s.EdgeLabels, label.Text())
	})
	sort.Strings(s.EdgeLabels)

	return s, nil
}
