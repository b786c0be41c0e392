// Package scenegraph draws a persisted state document as a Graphviz diagram:
// one cluster per figure, one box per drawing object and one ellipse per
// collaborator (mesh, swarm or function) the objects reference. Hidden
// objects are dashed and grey.
package scenegraph

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/chronictectonic/underworld2/pkg/state"
)

// handleKeys are the properties holding collaborator identities.
var handleKeys = []string{"mesh", "swarm", "fn", "fn_colour", "fn_mask"}

// Options configures the diagram.
type Options struct {
	// Figure limits the diagram to one figure when set.
	Figure string
	// Detailed lists each object's properties in its label.
	Detailed bool
	// HideHidden omits objects that are not visible in their figure.
	HideHidden bool
}

// ToDOT converts doc to Graphviz DOT.
func ToDOT(doc state.Document, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("  compound=true;\n")

	handles := map[string]bool{}
	var edges []string

	for i, fs := range doc {
		if opts.Figure != "" && fs.Figure != opts.Figure {
			continue
		}
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", figureLabel(fs))
		buf.WriteString("    style=rounded;\n")
		for _, d := range fs.Objects {
			if opts.HideHidden && !d.Visible {
				continue
			}
			id := fs.Figure + "/" + d.Name
			fmt.Fprintf(&buf, "    %q [%s];\n", id, strings.Join(objectAttrs(d, opts.Detailed), ", "))
			for _, k := range handleKeys {
				v, ok := d.Props.Get(k)
				if !ok {
					continue
				}
				h := k + ":" + v.String()
				handles[h] = true
				edges = append(edges, fmt.Sprintf("  %q -> %q [label=%q];\n", id, h, k))
			}
		}
		buf.WriteString("  }\n")
	}

	if len(handles) > 0 {
		buf.WriteString("\n")
		keys := make([]string, 0, len(handles))
		for h := range handles {
			keys = append(keys, h)
		}
		slices.Sort(keys)
		for _, h := range keys {
			fmt.Fprintf(&buf, "  %q [shape=ellipse, style=filled, fillcolor=\"#E8F1F8\"];\n", h)
		}
		buf.WriteString("\n")
		for _, e := range edges {
			buf.WriteString(e)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func figureLabel(fs state.FigureState) string {
	if title := fs.Properties.GetString("title", ""); title != "" {
		return fs.Figure + ": " + title
	}
	return fs.Figure
}

func objectAttrs(d state.Descriptor, detailed bool) []string {
	label := d.Name
	if detailed {
		var parts []string
		for _, k := range d.Props.Keys() {
			if slices.Contains(handleKeys, k) {
				continue
			}
			v, _ := d.Props.Get(k)
			parts = append(parts, k+": "+v.String())
		}
		if len(parts) > 0 {
			label += "\n" + strings.Join(parts, "\n")
		}
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if !d.Visible {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=grey40")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg tag with one that
// scales with its container.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
