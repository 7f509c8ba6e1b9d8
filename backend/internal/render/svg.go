package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"kgraph-atlas/backend/internal/workspace"
)

// nodeRadiusScale converts a node size into a circle radius in plane units
const nodeRadiusScale = 10.0

// SVG draws a render payload on a 100x100 canvas. Element classes mirror the
// payload's style classes so stylesheets can target focus and dim states.
func SVG(p workspace.Payload) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" data-conversation="%s" data-layout-mode="%s" data-layout-epoch="%d">`,
		escape(p.ConversationID), escape(string(p.LayoutMode)), p.LayoutEpoch)
	buf.WriteString("\n")

	buf.WriteString(`<g class="edges">` + "\n")
	for _, e := range p.Edges {
		fmt.Fprintf(&buf, `<line id="edge-%d" class="%s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" data-source="%d" data-target="%d" data-relation-type="%s" stroke-opacity="%.2f"/>`,
			e.ID, escape(e.StyleClass), e.X1, e.Y1, e.X2, e.Y2, e.Source, e.Target, escape(e.RelationType), edgeOpacity(e))
		buf.WriteString("\n")
		if e.Label != "" {
			fmt.Fprintf(&buf, `<text class="edge-label" data-edge="%d" x="%.2f" y="%.2f">%s</text>`,
				e.ID, (e.X1+e.X2)/2, (e.Y1+e.Y2)/2, escape(e.Label))
			buf.WriteString("\n")
		}
	}
	buf.WriteString("</g>\n")

	buf.WriteString(`<g class="nodes">` + "\n")
	for _, n := range p.Nodes {
		r := float64(n.Size) / nodeRadiusScale
		fmt.Fprintf(&buf, `<g id="node-%d" class="%s" data-cluster="%s" data-type="%s">`,
			n.ID, escape(n.StyleClass), escape(n.ClusterID), escape(n.Type))
		fmt.Fprintf(&buf, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>`, n.X, n.Y, r, escape(n.ClusterColor))
		fmt.Fprintf(&buf, `<text class="node-label" x="%.2f" y="%.2f">%s</text>`, n.X, n.Y+r+2, escape(n.Label))
		buf.WriteString("</g>\n")
	}
	buf.WriteString("</g>\n")

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func edgeOpacity(e workspace.EdgeRender) float64 {
	if e.Class.Dimmed {
		return 0.15
	}
	return 0.35 + 0.65*e.Confidence
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
